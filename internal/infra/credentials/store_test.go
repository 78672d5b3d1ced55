package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreSetAndGet(t *testing.T) {
	store := NewStore(NewMemoryKV())
	ctx := context.Background()

	if err := store.SetGeminiAPIKey(ctx, "  key-123  "); err != nil {
		t.Fatalf("SetGeminiAPIKey: %v", err)
	}
	got, err := store.GeminiAPIKey(ctx)
	if err != nil {
		t.Fatalf("GeminiAPIKey: %v", err)
	}
	if got != "key-123" {
		t.Fatalf("expected trimmed key, got %q", got)
	}
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	store := NewStore(NewMemoryKV())
	if err := store.SetGeminiAPIKey(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestStoreMissingKeyIsEmpty(t *testing.T) {
	store := NewStore(NewMemoryKV())
	got, err := store.GeminiAPIKey(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty key, got %q", got)
	}
}

func TestProfileKVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profile.yaml")
	kv, err := NewProfileKV(path)
	if err != nil {
		t.Fatalf("NewProfileKV: %v", err)
	}
	store := NewStore(kv)
	ctx := context.Background()

	if err := store.SetGeminiAPIKey(ctx, "abc"); err != nil {
		t.Fatalf("SetGeminiAPIKey: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat profile: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected mode 0600, got %o", perm)
	}

	reopened, err := NewProfileKV(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := NewStore(reopened).GeminiAPIKey(ctx)
	if err != nil {
		t.Fatalf("GeminiAPIKey: %v", err)
	}
	if got != "abc" {
		t.Fatalf("expected persisted key, got %q", got)
	}

	if err := store.ClearGeminiAPIKey(ctx); err != nil {
		t.Fatalf("ClearGeminiAPIKey: %v", err)
	}
	got, _ = store.GeminiAPIKey(ctx)
	if got != "" {
		t.Fatalf("expected key removed, got %q", got)
	}
}

func TestProfileKVKeepsOtherEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("theme: dark\n"), 0o600); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	kv, err := NewProfileKV(path)
	if err != nil {
		t.Fatalf("NewProfileKV: %v", err)
	}
	if err := kv.Set(KeyGemini, "k"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	theme, err := kv.Get("theme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if theme != "dark" {
		t.Fatalf("expected unrelated entry kept, got %q", theme)
	}
}

func TestProfileKVRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("- not\n- a map\n"), 0o600); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	kv, err := NewProfileKV(path)
	if err != nil {
		t.Fatalf("NewProfileKV: %v", err)
	}
	if _, err := kv.Get(KeyGemini); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNewProfileKVRequiresPath(t *testing.T) {
	if _, err := NewProfileKV(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
