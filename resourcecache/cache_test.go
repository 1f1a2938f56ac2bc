package resourcecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/relaybridge/msgist/imagestore/memstore"
)

// blockingDownloader lets tests control exactly when a download completes,
// to exercise the wait/dedup path deterministically.
type blockingDownloader struct {
	release chan struct{}
	content []byte
	err     error

	mu    sync.Mutex
	calls int
}

func (d *blockingDownloader) Download(ctx context.Context, url, dstPath string) error {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	select {
	case <-d.release:
	case <-ctx.Done():
		return ctx.Err()
	}

	if d.err != nil {
		return d.err
	}
	return os.WriteFile(dstPath, d.content, 0o644)
}

func (d *blockingDownloader) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func newTestCache(t *testing.T, downloader *blockingDownloader) *Cache {
	t.Helper()
	dir := t.TempDir()
	c := &Cache{
		dir:        dir,
		store:      memstore.New(),
		downloader: downloader,
		metrics:    noopMetrics{},
		waiters:    make(map[string][]chan waitResult),
		done:       make(chan struct{}),
	}
	go c.poll()
	t.Cleanup(c.Close)
	return c
}

func TestFileByURLConcurrentCallersGetOneDownload(t *testing.T) {
	d := &blockingDownloader{release: make(chan struct{}), content: []byte("image bytes")}
	c := newTestCache(t, d)

	const n = 8
	id := []byte("resource-1")
	url := "https://example.invalid/resource-1"

	results := make(chan string, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path, err := c.fileByURL(context.Background(), ResourceID(id), url)
			if err != nil {
				errs <- err
				return
			}
			results <- path
		}()
	}

	// Give every goroutine a chance to either win the race (creating the
	// tmp file) or register as a waiter.
	time.Sleep(50 * time.Millisecond)
	close(d.release)
	wg.Wait()
	close(errs)
	close(results)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	final := filepath.Join(c.dir, ResourceID(id))
	count := 0
	for path := range results {
		count++
		if path != final {
			t.Fatalf("got path %q, want %q", path, final)
		}
	}
	if count != n {
		t.Fatalf("got %d successful resolutions, want %d", count, n)
	}
	if d.callCount() != 1 {
		t.Fatalf("downloader called %d times, want exactly 1", d.callCount())
	}
}

func TestFileByURLCachedSkipsDownload(t *testing.T) {
	d := &blockingDownloader{release: make(chan struct{})}
	close(d.release)
	c := newTestCache(t, d)

	id := []byte("resource-2")
	final := filepath.Join(c.dir, ResourceID(id))
	if err := os.WriteFile(final, []byte("already here"), 0o644); err != nil {
		t.Fatalf("seed final file: %v", err)
	}

	path, err := c.fileByURL(context.Background(), ResourceID(id), "https://example.invalid/ignored")
	if err != nil {
		t.Fatalf("fileByURL: %v", err)
	}
	if path != final {
		t.Fatalf("got %q, want %q", path, final)
	}
	if d.callCount() != 0 {
		t.Fatalf("downloader should not have been called, got %d calls", d.callCount())
	}
}

func TestFileByURLDownloadFailurePropagatesToAllWaiters(t *testing.T) {
	wantErr := errors.New("upstream unavailable")
	d := &blockingDownloader{release: make(chan struct{}), err: wantErr}
	c := newTestCache(t, d)

	id := []byte("resource-3")
	url := "https://example.invalid/resource-3"

	const n = 4
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.fileByURL(context.Background(), ResourceID(id), url)
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(d.release)
	wg.Wait()
	close(errs)

	count := 0
	for err := range errs {
		count++
		if err == nil {
			t.Fatal("expected every caller to receive an error")
		}
	}
	if count != n {
		t.Fatalf("got %d results, want %d", count, n)
	}

	if _, err := os.Stat(c.tmpPath(ResourceID(id))); !os.IsNotExist(err) {
		t.Fatalf("expected tmp file to be cleaned up after a failed download, stat err=%v", err)
	}
}

func TestWaitForTimesOutWhenDownloadNeverCompletes(t *testing.T) {
	d := &blockingDownloader{release: make(chan struct{})}
	c := newTestCache(t, d)
	c2 := c // alias for clarity below

	id := []byte("resource-4")
	resID := ResourceID(id)

	started := make(chan struct{})
	go func() {
		close(started)
		c.fileByURL(context.Background(), resID, "https://example.invalid/resource-4")
	}()
	<-started
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c2.waitFor(ctx, resID)
	if err == nil {
		t.Fatal("expected waitFor to time out")
	}
	close(d.release)
}
