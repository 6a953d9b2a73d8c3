package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"scenereel/internal/config"
	"scenereel/internal/paths"
	"scenereel/pkg/manifest"
)

// Clip pairs a manifest scene with its resolved source and normalization
// parameters.
type Clip struct {
	Position  int // 1-based playback position
	Scene     manifest.Scene
	Source    string
	Output    string
	TrimStart float64
}

// Geometry is the target frame size.
type Geometry struct {
	Width  int
	Height int
}

// ResolveGeometry prefers configured dimensions and falls back to the
// manifest's declared size.
func ResolveGeometry(cfg config.Config, m manifest.Manifest) Geometry {
	if cfg.Video.Width > 0 && cfg.Video.Height > 0 {
		return Geometry{Width: cfg.Video.Width, Height: cfg.Video.Height}
	}
	return Geometry{Width: m.Size.Width, Height: m.Size.Height}
}

// ResolveClips maps each scene to its source file and normalized output.
// The first scene uses the longer first-trim to skip setup motion.
func ResolveClips(m manifest.Manifest, pp paths.OutputPaths, timeline config.TimelineConfig) []Clip {
	clips := make([]Clip, len(m.Scenes))
	for i, scene := range m.Scenes {
		trim := timeline.TrimStartSec
		if i == 0 {
			trim = timeline.FirstTrimStartSec
		}
		clips[i] = Clip{
			Position:  i + 1,
			Scene:     scene,
			Source:    pp.ResolveInput(scene.Clip),
			Output:    filepath.Join(pp.WorkDir, SceneFileStem(i+1, scene.ID)+".mp4"),
			TrimStart: trim,
		}
	}
	return clips
}

// SceneFileStem returns "NN-<id>" with the id reduced to a filesystem-safe slug.
func SceneFileStem(position int, id string) string {
	return fmt.Sprintf("%02d-%s", position, safeSlug(id))
}

func safeSlug(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "scene"
	}
	var b strings.Builder
	b.Grow(len(value))
	lastDash := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-.")
	if slug == "" {
		return "scene"
	}
	return slug
}
