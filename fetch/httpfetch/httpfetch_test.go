package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDownloadWritesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello resource"))
	}))
	defer srv.Close()

	d, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "out")
	if err := d.Download(context.Background(), srv.URL, dst); err != nil {
		t.Fatalf("Download: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello resource" {
		t.Fatalf("got %q, want %q", got, "hello resource")
	}
}

func TestDownloadNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "out")
	if err := d.Download(context.Background(), srv.URL, dst); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}
