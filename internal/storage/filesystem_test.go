package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "videos/a.mp4", want: "videos/a.mp4"},
		{in: "/videos//a.mp4", want: "videos/a.mp4"},
		{in: "./a.png", want: "a.png"},
		{in: `videos\a.mp4`, want: "videos/a.mp4"},
		{in: "videos/../a.mp4", want: "a.mp4"},
		{in: "../etc/passwd", wantErr: true},
		{in: "..", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("sanitizeKey(%q) unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWriteRemove(t *testing.T) {
	store, err := NewMediaStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	key, err := store.Write(ctx, "/videos/clip.mp4", []byte("mp4"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if key != "videos/clip.mp4" {
		t.Fatalf("unexpected key %q", key)
	}

	path, err := store.Path(key)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "mp4" {
		t.Fatalf("unexpected data %q", data)
	}

	if err := store.Remove(key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(key); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected file to be gone, stat err = %v", err)
	}
}

func TestWriteRejectsCanceledContext(t *testing.T) {
	store, err := NewMediaStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Write(ctx, "a.png", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEphemeralStoreRemovedOnClose(t *testing.T) {
	store, err := NewMediaStore("")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	root := store.Root()
	if _, err := store.Write(context.Background(), "a.png", []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(root); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected temp root removed, stat err = %v", err)
	}
	if _, err := store.Write(context.Background(), "b.png", []byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestConfiguredRootSurvivesClose(t *testing.T) {
	root := filepath.Join(t.TempDir(), "media")
	store, err := NewMediaStore(root)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Write(context.Background(), "a.png", []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a.png")); err != nil {
		t.Fatalf("expected file kept: %v", err)
	}
}

func TestNewKey(t *testing.T) {
	key := NewKey("/videos/", "video/mp4")
	if !strings.HasPrefix(key, "videos/") || !strings.HasSuffix(key, ".mp4") {
		t.Fatalf("unexpected key %q", key)
	}
	if NewKey("videos", "video/mp4") == key {
		t.Fatal("keys must be unique")
	}
	if got := NewKey("x", "image/jpeg; q=1"); !strings.HasSuffix(got, ".jpg") {
		t.Fatalf("unexpected key %q", got)
	}
	if got := NewKey("x", ""); !strings.HasSuffix(got, ".bin") {
		t.Fatalf("unexpected key %q", got)
	}
	if URL("videos/a.mp4") != "/media/videos/a.mp4" {
		t.Fatalf("unexpected url %q", URL("videos/a.mp4"))
	}
}

func TestHandlerServesStoredMedia(t *testing.T) {
	store, err := NewMediaStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Write(context.Background(), "videos/a.mp4", []byte("mp4")); err != nil {
		t.Fatalf("write: %v", err)
	}
	srv := httptest.NewServer(http.StripPrefix("/media", store.Handler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/media/videos/a.mp4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "mp4" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}
}
