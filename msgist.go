package msgist

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/relaybridge/msgist/cipher"
	"github.com/relaybridge/msgist/config"
	"github.com/relaybridge/msgist/fetch"
	"github.com/relaybridge/msgist/fetch/httpfetch"
	"github.com/relaybridge/msgist/imagestore"
	"github.com/relaybridge/msgist/imagestore/bboltstore"
	"github.com/relaybridge/msgist/logging"
	"github.com/relaybridge/msgist/metrics"
	"github.com/relaybridge/msgist/resourcecache"
	"github.com/relaybridge/msgist/transport"
	"github.com/relaybridge/msgist/transport/wsrelay"
	"github.com/relaybridge/msgist/wire"
)

// Library is a fully wired msgist instance: a cipher, an image-id store,
// a resource cache, a downloader, and a transport client, all configured
// from a single config.Config.
type Library struct {
	Cipher     *cipher.Cipher
	ImageStore imagestore.Store
	Downloader fetch.Downloader
	Resources  *resourcecache.Cache
	Transport  *transport.Client
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Apply builds a Library from cfg, wiring every subsystem in dependency
// order: Cipher, then the image-id store, then the HTTP downloader, then
// the resource cache (constructed without its transport reference, since
// the transport client does not exist yet), then the transport client,
// and finally back-filling the resource cache's transport reference so
// it can issue RequestImage events.
func Apply(cfg config.Config) (*Library, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	met := metrics.New(cfg.MetricsEnabled)

	c, err := cipher.New(cfg.CipherKey)
	if err != nil {
		return nil, fmt.Errorf("msgist: build cipher: %w", err)
	}

	dbPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s-%s.db", resourcecache.DirName, cfg.Name))
	store, err := bboltstore.Open(dbPath, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("msgist: open image store: %w", err)
	}

	downloader, err := httpfetch.New(httpfetch.Options{
		ProxyURL:           cfg.Proxy,
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("msgist: build downloader: %w", err)
	}

	resources, err := resourcecache.New(store, downloader, nil, c, logger, met)
	if err != nil {
		return nil, fmt.Errorf("msgist: build resource cache: %w", err)
	}

	tc, err := transport.New(transport.Config{
		Scheme:             "msgist",
		ServerAddresses:    cfg.RemoteAddress,
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
		Relay:              wsrelay.New(),
		Logger:             logger,
		Metrics:            met,
	})
	if err != nil {
		return nil, fmt.Errorf("msgist: build transport: %w", err)
	}
	resources.SetTransport(tc)

	return &Library{
		Cipher:     c,
		ImageStore: store,
		Downloader: downloader,
		Resources:  resources,
		Transport:  tc,
		Logger:     logger,
		Metrics:    met,
	}, nil
}

// SetPacketHandler registers the adapter's packet handler exactly once.
func (l *Library) SetPacketHandler(fn PacketHandler) error {
	return l.Transport.SetHandler(fn)
}

// Start attempts an initial connection to every configured server.
func (l *Library) Start(ctx context.Context) {
	l.Transport.Start(ctx)
}

// Close shuts down the transport and resource cache poller.
func (l *Library) Close() {
	l.Transport.Close()
	l.Resources.Close()
}

// Send encrypts payload for roomID and enqueues it on serverID's
// connection.
func (l *Library) Send(ctx context.Context, serverID string, roomID uuid.UUID, payload wire.Payload) error {
	pkt, err := wire.New(roomID, payload, l.Cipher)
	if err != nil {
		return fmt.Errorf("msgist: build packet: %w", err)
	}
	return l.Transport.Send(ctx, serverID, pkt)
}

// Sub subscribes to roomID on serverID.
func (l *Library) Sub(ctx context.Context, serverID string, roomID uuid.UUID) error {
	return l.Transport.Sub(ctx, serverID, roomID)
}

// Unsub unsubscribes from roomID on serverID.
func (l *Library) Unsub(ctx context.Context, serverID string, roomID uuid.UUID) error {
	return l.Transport.Unsub(ctx, serverID, roomID)
}

// Request sends an encrypted payload and waits for its correlated
// response, decrypting it before returning.
func (l *Library) Request(ctx context.Context, serverID string, roomID uuid.UUID, payload wire.Payload) (*wire.Payload, error) {
	pkt, err := wire.New(roomID, payload, l.Cipher)
	if err != nil {
		return nil, fmt.Errorf("msgist: build packet: %w", err)
	}
	resp, err := l.Transport.Request(ctx, serverID, pkt)
	if err != nil {
		return nil, err
	}
	decrypted, err := resp.Decrypt(l.Cipher)
	if err != nil {
		return nil, fmt.Errorf("msgist: decrypt response: %w", err)
	}
	return decrypted, nil
}

// RoomID derives the deterministic room id for address under this
// Library's cipher passphrase.
func (l *Library) RoomID(address string) uuid.UUID {
	return wire.RoomID(address, l.Cipher.Passphrase())
}

// File resolves a resource id to a local path, downloading it if
// necessary.
func (l *Library) File(ctx context.Context, id []byte, url *string, roomID uuid.UUID, serverID string) (string, error) {
	return l.Resources.File(ctx, id, url, roomID, serverID)
}

var (
	defaultLibrary *Library
	defaultOnce    sync.Once
	defaultErr     error
)

// Default lazily builds and returns a package-level Library from cfg the
// first time it's called, for callers who don't want to thread a
// *Library value through their own code. Subsequent calls ignore cfg and
// return the already-built instance.
func Default(cfg config.Config) (*Library, error) {
	defaultOnce.Do(func() {
		defaultLibrary, defaultErr = Apply(cfg)
	})
	return defaultLibrary, defaultErr
}
