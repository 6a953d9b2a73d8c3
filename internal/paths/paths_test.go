package paths

import (
	"os"
	"path/filepath"
	"testing"

	"scenereel/internal/config"
)

func TestResolveDefaultsManifestUnderOutput(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.OutputDir = root

	pp, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if want := filepath.Join(root, "scene-manifest.json"); pp.ManifestFile != want {
		t.Fatalf("expected manifest %s, got %s", want, pp.ManifestFile)
	}
	if want := filepath.Join(root, "cache", "voice"); pp.CacheDir != want {
		t.Fatalf("expected cache dir %s, got %s", want, pp.CacheDir)
	}
	if want := filepath.Join(root, "work", "scene-voice-edge"); pp.VoiceWorkDir("edge") != want {
		t.Fatalf("expected voice work dir %s, got %s", want, pp.VoiceWorkDir("edge"))
	}
}

func TestResolveManifestOverride(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	manifest := filepath.Join(t.TempDir(), "custom.json")
	cfg.Manifest = manifest

	pp, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if pp.ManifestFile != manifest {
		t.Fatalf("expected manifest %s, got %s", manifest, pp.ManifestFile)
	}
}

func TestResolveInput(t *testing.T) {
	pp := newOutputPaths("/out")
	if got := pp.ResolveInput("clips/a.webm"); got != filepath.Join("/out", "clips/a.webm") {
		t.Fatalf("relative input resolved to %s", got)
	}
	if got := pp.ResolveInput("/abs/a.webm"); got != "/abs/a.webm" {
		t.Fatalf("absolute input resolved to %s", got)
	}
	if got := pp.Rel(filepath.Join("/out", "cache", "voice")); got != "cache/voice" {
		t.Fatalf("Rel = %s", got)
	}
}

func TestResetWorkDir(t *testing.T) {
	pp := newOutputPaths(t.TempDir())
	stale := filepath.Join(pp.WorkDir, "stale.mp4")
	if err := os.MkdirAll(pp.WorkDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := pp.ResetWorkDir(); err != nil {
		t.Fatalf("ResetWorkDir returned error: %v", err)
	}
	if exists, _ := FileExists(stale); exists {
		t.Fatal("expected stale file to be removed")
	}
	if exists, _ := DirExists(pp.WorkDir); !exists {
		t.Fatal("expected work dir to be recreated")
	}
}
