// Package resourcecache is a content-addressed on-disk cache for image
// blobs. It deduplicates parallel requests for the same resource,
// fetches by URL directly, and fetches by uid through an Event
// round-trip issued over the transport when only a remote peer knows the
// URL behind a uid.
package resourcecache

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaybridge/msgist/cipher"
	"github.com/relaybridge/msgist/fetch"
	"github.com/relaybridge/msgist/imagestore"
	"github.com/relaybridge/msgist/logging"
	"github.com/relaybridge/msgist/transport"
	"github.com/relaybridge/msgist/wire"
)

// DirName is the fixed subdirectory created under the OS temp directory
// to hold cached resources, kept stable across processes so a restart
// reuses whatever was already downloaded.
const DirName = "msgist"

// ImageRoundTripTimeout bounds a file_by_uid Event request end-to-end.
const ImageRoundTripTimeout = 7 * time.Second

// WaitTimeout bounds how long a caller waits behind an in-progress
// download before giving up.
const WaitTimeout = 13 * time.Second

// pollInterval is how often the poller scans for completed downloads.
const pollInterval = 200 * time.Millisecond

type waitResult struct {
	path string
	err  error
}

// MetricsRecorder is the observability seam the cache reports downloads
// to, mirroring transport.MetricsRecorder so the metrics package can
// implement both without resourcecache depending on Prometheus directly.
type MetricsRecorder interface {
	ResourceCacheHit()
	ResourceDownload(seconds float64, err error)
}

type noopMetrics struct{}

func (noopMetrics) ResourceCacheHit()               {}
func (noopMetrics) ResourceDownload(float64, error) {}

// Cache is a process-scoped resource cache instance.
type Cache struct {
	dir        string
	store      imagestore.Store
	downloader fetch.Downloader
	transport  *transport.Client
	cipher     *cipher.Cipher
	logger     *slog.Logger
	metrics    MetricsRecorder

	mu      sync.Mutex
	waiters map[string][]chan waitResult
	done    chan struct{}
}

// New creates a resource cache rooted at os.TempDir()/DirName, creating
// the directory if necessary, and starts its completion poller.
func New(store imagestore.Store, downloader fetch.Downloader, transportClient *transport.Client, cipherObj *cipher.Cipher, logger *slog.Logger, metricsRecorder MetricsRecorder) (*Cache, error) {
	dir := filepath.Join(os.TempDir(), DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache dir: %v", ErrResourceIO, err)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logging.WithComponent(logger, "resourcecache")
	if metricsRecorder == nil {
		metricsRecorder = noopMetrics{}
	}

	c := &Cache{
		dir:        dir,
		store:      store,
		downloader: downloader,
		transport:  transportClient,
		cipher:     cipherObj,
		logger:     logger,
		metrics:    metricsRecorder,
		waiters:    make(map[string][]chan waitResult),
		done:       make(chan struct{}),
	}
	go c.poll()
	return c, nil
}

// SetTransport wires the transport client used for file_by_uid Event
// round-trips. It exists because the façade's Apply builds the resource
// cache before the transport client and fills this reference in
// afterwards.
func (c *Cache) SetTransport(transportClient *transport.Client) {
	c.transport = transportClient
}

// Close stops the completion poller.
func (c *Cache) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// ResourceID derives the content-addressed cache key for raw id bytes.
func ResourceID(id []byte) string {
	return base64.RawURLEncoding.EncodeToString(id)
}

func (c *Cache) path(resID string) string {
	return filepath.Join(c.dir, resID)
}

func (c *Cache) tmpPath(resID string) string {
	return filepath.Join(c.dir, resID+".tmp")
}

// File resolves id to a local path: by url directly if one is supplied,
// otherwise by asking the peer on serverID/roomID to resolve it.
func (c *Cache) File(ctx context.Context, id []byte, url *string, roomID uuid.UUID, serverID string) (string, error) {
	resID := ResourceID(id)
	if url != nil {
		return c.fileByURL(ctx, resID, *url)
	}
	return c.fileByUID(ctx, id, resID, roomID, serverID)
}

func (c *Cache) fileByURL(ctx context.Context, resID, url string) (string, error) {
	final := c.path(resID)
	if _, err := os.Stat(final); err == nil {
		c.metrics.ResourceCacheHit()
		return final, nil
	}

	tmp := c.tmpPath(resID)
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return c.waitFor(ctx, resID)
		}
		return "", fmt.Errorf("%w: create tmp file: %v", ErrResourceIO, err)
	}
	f.Close()

	start := time.Now()
	if err := c.downloader.Download(ctx, url, tmp); err != nil {
		os.Remove(tmp)
		wrapped := fmt.Errorf("%w: download %s: %v", ErrResourceIO, url, err)
		c.metrics.ResourceDownload(time.Since(start).Seconds(), wrapped)
		c.failWaiters(resID, wrapped)
		return "", wrapped
	}

	if err := os.Rename(tmp, final); err != nil {
		wrapped := fmt.Errorf("%w: finalize: %v", ErrResourceIO, err)
		c.metrics.ResourceDownload(time.Since(start).Seconds(), wrapped)
		c.failWaiters(resID, wrapped)
		return "", wrapped
	}

	c.metrics.ResourceDownload(time.Since(start).Seconds(), nil)
	return final, nil
}

func (c *Cache) fileByUID(ctx context.Context, id []byte, resID string, roomID uuid.UUID, serverID string) (string, error) {
	final := c.path(resID)
	if _, err := os.Stat(final); err == nil {
		c.metrics.ResourceCacheHit()
		return final, nil
	}
	if _, err := os.Stat(c.tmpPath(resID)); err == nil {
		return c.waitFor(ctx, resID)
	}

	reqCtx, cancel := context.WithTimeout(ctx, ImageRoundTripTimeout)
	defer cancel()

	pkt, err := wire.New(roomID, wire.NewEventPayload(wire.Event{RequestImage: &wire.RequestImage{ID: id}}), c.cipher)
	if err != nil {
		return "", fmt.Errorf("resourcecache: build request: %w", err)
	}

	resp, err := c.transport.Request(reqCtx, serverID, pkt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &TimeoutError{Op: "image round-trip", Duration: ImageRoundTripTimeout}
		}
		return "", fmt.Errorf("resourcecache: image request: %w", err)
	}

	payload, err := resp.Decrypt(c.cipher)
	if err != nil {
		return "", fmt.Errorf("resourcecache: decrypt response: %w", err)
	}
	if payload.Event == nil || payload.Event.RespondImage == nil {
		return "", ErrProtocolMismatch
	}

	return c.fileByURL(ctx, resID, payload.Event.RespondImage.URL)
}

func (c *Cache) waitFor(ctx context.Context, resID string) (string, error) {
	ch := make(chan waitResult, 1)
	c.mu.Lock()
	c.waiters[resID] = append(c.waiters[resID], ch)
	c.mu.Unlock()

	select {
	case res := <-ch:
		return res.path, res.err
	case <-time.After(WaitTimeout):
		c.removeWaiter(resID, ch)
		return "", &TimeoutError{Op: "resource wait", Duration: WaitTimeout}
	case <-ctx.Done():
		c.removeWaiter(resID, ch)
		return "", ctx.Err()
	}
}

func (c *Cache) removeWaiter(resID string, ch chan waitResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.waiters[resID]
	for i, w := range list {
		if w == ch {
			c.waiters[resID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(c.waiters[resID]) == 0 {
		delete(c.waiters, resID)
	}
}

func (c *Cache) failWaiters(resID string, err error) {
	c.mu.Lock()
	list := c.waiters[resID]
	delete(c.waiters, resID)
	c.mu.Unlock()

	for _, ch := range list {
		ch <- waitResult{err: err}
	}
}

// poll runs every pollInterval, checking whether any resource with
// pending waiters now has its final file in place. This is the portable
// substitute for a filesystem watch, per the design's polling policy.
func (c *Cache) poll() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.pollOnce()
		}
	}
}

func (c *Cache) pollOnce() {
	c.mu.Lock()
	ready := make(map[string][]chan waitResult)
	for resID := range c.waiters {
		if _, err := os.Stat(c.path(resID)); err == nil {
			ready[resID] = c.waiters[resID]
			delete(c.waiters, resID)
		}
	}
	c.mu.Unlock()

	for resID, list := range ready {
		final := c.path(resID)
		for _, ch := range list {
			ch <- waitResult{path: final}
		}
	}
}

// PutFile atomically moves srcPath into the cache under id's content
// address and returns the final path.
func (c *Cache) PutFile(id []byte, srcPath string) (string, error) {
	final := c.path(ResourceID(id))
	if err := os.Rename(srcPath, final); err != nil {
		return "", fmt.Errorf("%w: put file: %v", ErrResourceIO, err)
	}
	return final, nil
}

// PutImageID records the durable uid -> platform-file-id mapping in the
// external key-value store, for adapters that need to translate a cached
// image back into a platform-native attachment reference.
func (c *Cache) PutImageID(uid, platformFileID []byte) error {
	return c.store.Put(uid, platformFileID)
}

// GetImageID looks up a previously stored platform-file-id for uid.
func (c *Cache) GetImageID(uid []byte) ([]byte, bool, error) {
	return c.store.Get(uid)
}
