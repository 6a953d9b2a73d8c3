package voice

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestKeyIsStableAndSettingsSensitive(t *testing.T) {
	a, err := Key("edge", "Hello", map[string]any{"voice": "a", "rate": "+0%"})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Key("edge", "Hello", map[string]any{"rate": "+0%", "voice": "a"})
	if a != b {
		t.Fatal("key must not depend on map order")
	}
	c, _ := Key("edge", "Hello", map[string]any{"voice": "b", "rate": "+0%"})
	d, _ := Key("say", "Hello", map[string]any{"voice": "a", "rate": "+0%"})
	if a == c || a == d {
		t.Fatal("key must change with settings and provider")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
}

func seedEntry(t *testing.T, s *Store, provider, key string, created time.Time) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "src.wav")
	if err := os.WriteFile(src, []byte("1.000"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := s.Put(context.Background(), Entry{Provider: provider, CacheKey: key, Text: "t", Duration: 1, CreatedAt: created}, src)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestStoreLookupMissesWithoutSidecar(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := os.MkdirAll(filepath.Join(s.Root, "edge"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Root, "edge", "abc.wav"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := s.Lookup("edge", "abc", filepath.Join(t.TempDir(), "out.wav")); hit || err != nil {
		t.Fatalf("expected clean miss, got hit=%v err=%v", hit, err)
	}
}

func TestStoreListFindPrune(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(t.TempDir())
	s.now = func() time.Time { return now }

	seedEntry(t, s, "edge", "aaaa1111", now.Add(-48*time.Hour))
	seedEntry(t, s, "edge", "aaaa2222", now.Add(-time.Hour))
	seedEntry(t, s, "say", "bbbb3333", now.Add(-72*time.Hour))

	all, err := s.List("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].CacheKey != "aaaa2222" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if edge, _ := s.List("edge"); len(edge) != 2 {
		t.Fatalf("provider filter returned %d", len(edge))
	}

	if _, err := s.Find("aaaa"); err == nil {
		t.Fatal("ambiguous prefix must fail")
	}
	hit, err := s.Find("bbbb")
	if err != nil || hit.Provider != "say" {
		t.Fatalf("Find = %+v, %v", hit, err)
	}

	dry, err := s.Prune(context.Background(), PruneOptions{OlderThan: 24 * time.Hour, DryRun: true})
	if err != nil || dry.Removed != 2 {
		t.Fatalf("dry run = %+v, %v", dry, err)
	}
	if left, _ := s.List(""); len(left) != 3 {
		t.Fatal("dry run must not delete")
	}

	res, err := s.Prune(context.Background(), PruneOptions{Provider: "edge", OlderThan: 24 * time.Hour})
	if err != nil || res.Removed != 1 || res.Bytes == 0 {
		t.Fatalf("prune = %+v, %v", res, err)
	}
	left, _ := s.List("")
	if len(left) != 2 {
		t.Fatalf("expected 2 entries left, got %d", len(left))
	}
}
