package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"studio/internal/apierr"
)

// ErrNoHost is returned by SelectWithHost when the environment has no
// host-side key selection.
var ErrNoHost = errors.New("credentials: no host key selection available")

// Credential is an opaque API key. It never prints its value.
type Credential string

func (c Credential) String() string {
	if c == "" {
		return ""
	}
	return "[redacted]"
}

// Value returns the raw key for the remote boundary.
func (c Credential) Value() string {
	return string(c)
}

// Source names where a credential came from.
type Source string

const (
	SourceHost        Source = "host"
	SourceSession     Source = "session"
	SourceEnvironment Source = "environment"
)

// HostDelegate is the host-provided key selection capability. When one is
// configured it alone decides whether a key is available.
type HostDelegate interface {
	HasSelectedKey(ctx context.Context) (bool, error)
	OpenSelectKey(ctx context.Context) error
	SelectedKey(ctx context.Context) (string, error)
}

// Resolution is the outcome of a successful resolve.
type Resolution struct {
	Credential Credential
	Source     Source
}

// Resolver resolves the session credential and keeps the last resolution so
// every gateway call reads one consistent value at call start.
type Resolver struct {
	store  *Store
	host   HostDelegate
	envKey string
	log    zerolog.Logger

	mu      sync.RWMutex
	current *Resolution
}

type ResolverOption func(*Resolver)

// WithHost installs a host delegate.
func WithHost(h HostDelegate) ResolverOption {
	return func(r *Resolver) { r.host = h }
}

// WithEnvironmentKey sets the ambient key taken from the process environment.
func WithEnvironmentKey(key string) ResolverOption {
	return func(r *Resolver) { r.envKey = key }
}

func WithLogger(log zerolog.Logger) ResolverOption {
	return func(r *Resolver) { r.log = log }
}

func NewResolver(store *Store, opts ...ResolverOption) *Resolver {
	if store == nil {
		store = NewStore(NewMemoryKV())
	}
	r := &Resolver{store: store, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Usable reports whether key may be sent to the remote service.
func Usable(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderKey
}

// Resolve walks the precedence chain without touching the cached value.
func (r *Resolver) Resolve(ctx context.Context) (Resolution, error) {
	if r.host != nil {
		ok, err := r.host.HasSelectedKey(ctx)
		if err != nil {
			return Resolution{}, fmt.Errorf("credentials: host check: %w", err)
		}
		if !ok {
			return Resolution{}, apierr.ErrNoCredential
		}
		key, err := r.host.SelectedKey(ctx)
		if err != nil {
			return Resolution{}, fmt.Errorf("credentials: host key: %w", err)
		}
		if !Usable(key) {
			return Resolution{}, apierr.ErrNoCredential
		}
		return Resolution{Credential: Credential(strings.TrimSpace(key)), Source: SourceHost}, nil
	}

	stored, err := r.store.GeminiAPIKey(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("credentials: read session key: %w", err)
	}
	if Usable(stored) {
		return Resolution{Credential: Credential(stored), Source: SourceSession}, nil
	}
	if Usable(r.envKey) {
		return Resolution{Credential: Credential(strings.TrimSpace(r.envKey)), Source: SourceEnvironment}, nil
	}
	return Resolution{}, apierr.ErrNoCredential
}

// Credential returns the cached resolution. While nothing is configured it
// re-resolves on every call, so a key stored by another process is picked up
// without a restart.
func (r *Resolver) Credential(ctx context.Context) (Credential, error) {
	r.mu.RLock()
	current := r.current
	r.mu.RUnlock()
	if current != nil {
		return current.Credential, nil
	}
	res, err := r.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return res.Credential, nil
}

// Refresh re-runs resolution and replaces the cached value. A missing
// credential clears the cache so Status reports it as not configured.
func (r *Resolver) Refresh(ctx context.Context) (Resolution, error) {
	res, err := r.Resolve(ctx)
	if err != nil && !errors.Is(err, apierr.ErrNoCredential) {
		return Resolution{}, err
	}

	r.mu.Lock()
	if err != nil {
		r.current = nil
	} else {
		r.current = &res
	}
	r.mu.Unlock()

	if err != nil {
		r.log.Debug().Msg("credentials: no credential configured")
		return Resolution{}, err
	}
	r.log.Info().Str("source", string(res.Source)).Msg("credentials: resolved")
	return res, nil
}

// Status reports the cached resolution without resolving.
func (r *Resolver) Status() (Resolution, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return Resolution{}, false
	}
	return *r.current, true
}

// Update stores a session key and re-resolves.
func (r *Resolver) Update(ctx context.Context, key string) (Resolution, error) {
	if !Usable(key) {
		return Resolution{}, errors.New("credentials: a non-placeholder key is required")
	}
	if err := r.store.SetGeminiAPIKey(ctx, key); err != nil {
		return Resolution{}, fmt.Errorf("credentials: store key: %w", err)
	}
	return r.Refresh(ctx)
}

// Forget removes the session key and re-resolves. The environment or host may
// still provide a credential afterwards.
func (r *Resolver) Forget(ctx context.Context) error {
	if err := r.store.ClearGeminiAPIKey(ctx); err != nil {
		return fmt.Errorf("credentials: clear key: %w", err)
	}
	_, err := r.Refresh(ctx)
	if errors.Is(err, apierr.ErrNoCredential) {
		return nil
	}
	return err
}

// SelectWithHost opens the host selection flow and re-resolves.
func (r *Resolver) SelectWithHost(ctx context.Context) (Resolution, error) {
	if r.host == nil {
		return Resolution{}, ErrNoHost
	}
	if err := r.host.OpenSelectKey(ctx); err != nil {
		return Resolution{}, fmt.Errorf("credentials: open host selection: %w", err)
	}
	return r.Refresh(ctx)
}

// HasHost reports whether a host delegate is configured.
func (r *Resolver) HasHost() bool {
	return r.host != nil
}
