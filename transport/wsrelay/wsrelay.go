// Package wsrelay implements transport.Relay over WebSocket connections,
// carrying one msgist Packet per binary message.
package wsrelay

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"nhooyr.io/websocket"

	"github.com/relaybridge/msgist/transport"
)

const (
	defaultPath      = "/msgist"
	defaultReadLimit = 16 * 1024 * 1024 // 16 MB, generous for an image-bearing payload
)

// Relay is a transport.Relay backed by nhooyr.io/websocket.
type Relay struct{}

// New returns a ready-to-use websocket Relay.
func New() *Relay {
	return &Relay{}
}

// Dial opens a websocket connection to addr, which may already be a full
// ws:// or wss:// URL, or a bare host[:port] to default to wss://.
func (Relay) Dial(ctx context.Context, addr string, opts transport.DialOptions) (transport.RelayConn, error) {
	wsURL := toWebSocketURL(addr)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	httpClient, err := buildHTTPClient(opts)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPClient: httpClient})
	if err != nil {
		return nil, fmt.Errorf("wsrelay: dial %s: %w", wsURL, err)
	}
	conn.SetReadLimit(defaultReadLimit)

	return &conn1{conn: conn}, nil
}

// toWebSocketURL translates addr to a ws:// or wss:// URL the underlying
// websocket.Dial call can use. addr may already carry a ws/wss scheme, a
// bare host[:port], or the client's configured relay scheme (e.g.
// "msgist://host:6996") — any scheme other than ws/wss is stripped and
// replaced with wss, since the relay scheme is purely a client-facing
// address-validation literal (transport.Config.Scheme), not a distinct
// wire protocol.
func toWebSocketURL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}

	u, err := url.Parse(addr)
	if err != nil || u.Host == "" {
		return "wss://" + addr + defaultPath
	}

	u.Scheme = "wss"
	if u.Path == "" {
		u.Path = defaultPath
	}
	return u.String()
}

func buildHTTPClient(opts transport.DialOptions) (*http.Client, error) {
	tlsConfig := opts.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: opts.InsecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
		}
	}
	return &http.Client{Transport: &http.Transport{TLSClientConfig: tlsConfig}}, nil
}

// conn1 adapts a single *websocket.Conn to transport.RelayConn.
type conn1 struct {
	conn *websocket.Conn
}

func (c *conn1) Send(ctx context.Context, frame []byte) error {
	return c.conn.Write(ctx, websocket.MessageBinary, frame)
}

func (c *conn1) Receive(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c *conn1) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *conn1) Close(reason transport.CloseReason) error {
	return c.conn.Close(websocket.StatusNormalClosure, string(reason))
}
