package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// KeyGemini is the fixed name the session key is stored under.
	KeyGemini = "gemini_api_key"

	// PlaceholderKey is shipped in sample environments and never counts as a key.
	PlaceholderKey = "PLACEHOLDER_API_KEY"
)

// KV is the session storage boundary: a synchronous get/set of string values
// scoped to the local profile. No transactional guarantees are assumed.
type KV interface {
	Get(name string) (string, error)
	Set(name, value string) error
	Delete(name string) error
}

// Store exposes the Gemini key on top of a KV.
type Store struct {
	kv KV
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// GeminiAPIKey returns the stored key, trimmed. A missing key is not an error.
func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := s.kv.Get(KeyGemini)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	return s.kv.Set(KeyGemini, key)
}

func (s *Store) ClearGeminiAPIKey(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.kv.Delete(KeyGemini)
}

// MemoryKV keeps values for the lifetime of the process.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string]string{}}
}

func (m *MemoryKV) Get(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[name], nil
}

func (m *MemoryKV) Set(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
	return nil
}

func (m *MemoryKV) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, name)
	return nil
}

// ProfileKV persists values as a flat YAML map in the user's profile
// directory. The file is private to the user and rewritten atomically.
type ProfileKV struct {
	path string
	mu   sync.Mutex
}

// NewProfileKV returns a KV backed by path. The file is created lazily on
// the first Set.
func NewProfileKV(path string) (*ProfileKV, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("credentials: profile path is required")
	}
	return &ProfileKV{path: filepath.Clean(path)}, nil
}

func (p *ProfileKV) Path() string {
	return p.path
}

func (p *ProfileKV) Get(name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	values, err := p.load()
	if err != nil {
		return "", err
	}
	return values[name], nil
}

func (p *ProfileKV) Set(name, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	values, err := p.load()
	if err != nil {
		return err
	}
	values[name] = value
	return p.save(values)
}

func (p *ProfileKV) Delete(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	values, err := p.load()
	if err != nil {
		return err
	}
	if _, ok := values[name]; !ok {
		return nil
	}
	delete(values, name)
	return p.save(values)
}

func (p *ProfileKV) load() (map[string]string, error) {
	values := map[string]string{}
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("credentials: read profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("credentials: decode profile: %w", err)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

func (p *ProfileKV) save(values map[string]string) error {
	raw, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("credentials: encode profile: %w", err)
	}
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credentials: ensure profile dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".profile-*.yaml")
	if err != nil {
		return fmt.Errorf("credentials: create temp profile: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("credentials: write profile: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("credentials: chmod profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credentials: close profile: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		return fmt.Errorf("credentials: replace profile: %w", err)
	}
	return nil
}

var (
	_ KV = (*MemoryKV)(nil)
	_ KV = (*ProfileKV)(nil)
)
