package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// URLPrefix is where the session bridge serves stored media.
const URLPrefix = "/media/"

// ErrClosed is returned once the store has been closed.
var ErrClosed = errors.New("storage: store closed")

var extensions = map[string]string{
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"audio/pcm":  ".pcm",
	"audio/wav":  ".wav",
}

// MediaStore keeps generated media on local disk for the lifetime of one
// session so it can be played back by reference. A store created without a
// root lives in a fresh temp directory that Close removes.
type MediaStore struct {
	root      string
	ephemeral bool

	mu     sync.RWMutex
	closed bool
}

// NewMediaStore opens a store at root, or in a new temp directory when root
// is blank.
func NewMediaStore(root string) (*MediaStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		dir, err := os.MkdirTemp("", "studio-media-*")
		if err != nil {
			return nil, fmt.Errorf("storage: create temp root: %w", err)
		}
		return &MediaStore{root: dir, ephemeral: true}, nil
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure root: %w", err)
	}
	return &MediaStore{root: root}, nil
}

func (s *MediaStore) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

// Extension maps a MIME type to a file extension, ".bin" when unknown.
func Extension(mime string) string {
	if ext := extensions[strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))]; ext != "" {
		return ext
	}
	return ".bin"
}

// NewKey returns a unique key under dir with an extension matching mime.
func NewKey(dir, mime string) string {
	return strings.Trim(dir, "/") + "/" + uuid.NewString() + Extension(mime)
}

// URL is the bridge path a stored key is served under.
func URL(key string) string {
	return URLPrefix + strings.TrimLeft(key, "/")
}

// Write stores data at key and returns the cleaned key.
func (s *MediaStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", ErrClosed
	}

	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.root, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// Path resolves key to its location on disk.
func (s *MediaStore) Path(key string) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleanKey)), nil
}

// Remove deletes a stored item. Removing a missing key is not an error.
func (s *MediaStore) Remove(key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", key, err)
	}
	return nil
}

// Handler serves stored media read-only. Mount it under URLPrefix with the
// prefix stripped.
func (s *MediaStore) Handler() http.Handler {
	return http.FileServer(http.Dir(s.root))
}

// Close ends the session. A temp-rooted store deletes everything it holds.
func (s *MediaStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.ephemeral {
		return nil
	}
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("storage: remove root: %w", err)
	}
	return nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
