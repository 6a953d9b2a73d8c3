package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scenereel/internal/config"
)

// OutputPaths captures canonical locations inside a composition output directory.
type OutputPaths struct {
	Root          string
	ManifestFile  string
	WorkDir       string
	CacheDir      string
	LogsDir       string
	StepLogsDir   string
	JoinedVideo   string
	VoiceoverFile string
	CaptionsFile  string
	CuesFile      string
	NarrationFile string
	OutputFile    string
	MetadataFile  string
}

// Resolve derives the output layout from the configured output directory.
// Relative directories are resolved against the current working directory.
func Resolve(cfg config.Config) (OutputPaths, error) {
	root, err := filepath.Abs(strings.TrimSpace(cfg.OutputDir))
	if err != nil {
		return OutputPaths{}, fmt.Errorf("resolve output dir: %w", err)
	}
	pp := newOutputPaths(root)
	if manifest := strings.TrimSpace(cfg.Manifest); manifest != "" {
		abs, err := filepath.Abs(manifest)
		if err != nil {
			return OutputPaths{}, fmt.Errorf("resolve manifest path: %w", err)
		}
		pp.ManifestFile = abs
	}
	return pp, nil
}

func newOutputPaths(root string) OutputPaths {
	workDir := filepath.Join(root, "work")
	logsDir := filepath.Join(root, "logs")
	return OutputPaths{
		Root:          root,
		ManifestFile:  filepath.Join(root, "scene-manifest.json"),
		WorkDir:       workDir,
		CacheDir:      filepath.Join(root, "cache", "voice"),
		LogsDir:       logsDir,
		StepLogsDir:   filepath.Join(logsDir, "steps"),
		JoinedVideo:   filepath.Join(workDir, "video-joined.mp4"),
		VoiceoverFile: filepath.Join(root, "voiceover.wav"),
		CaptionsFile:  filepath.Join(root, "captions.srt"),
		CuesFile:      filepath.Join(root, "caption-cues.json"),
		NarrationFile: filepath.Join(root, "narration.txt"),
		OutputFile:    filepath.Join(root, "tutorial.mp4"),
		MetadataFile:  filepath.Join(root, "tutorial-metadata.json"),
	}
}

// ResolveInput resolves a manifest-relative artifact path against the output root.
func (p OutputPaths) ResolveInput(value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(p.Root, value)
}

// Rel returns path relative to the output root, or path itself when that fails.
func (p OutputPaths) Rel(path string) string {
	rel, err := filepath.Rel(p.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// VoiceWorkDir is the scratch directory for one provider's attempt.
func (p OutputPaths) VoiceWorkDir(provider string) string {
	return filepath.Join(p.WorkDir, "scene-voice-"+provider)
}

// EnsureDirs creates the output root, cache and log hierarchy.
func (p OutputPaths) EnsureDirs() error {
	dirs := []string{p.Root, p.CacheDir, p.LogsDir, p.StepLogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ResetWorkDir removes and recreates the per-run work directory.
func (p OutputPaths) ResetWorkDir() error {
	return ResetDir(p.WorkDir)
}

// ResetDir removes dir and everything below it, then recreates it empty.
func ResetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
