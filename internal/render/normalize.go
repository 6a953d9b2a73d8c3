package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"scenereel/internal/project"
)

// NormalizeSpec describes how one source clip is conformed.
type NormalizeSpec struct {
	FPS       int
	TrimStart float64
	SettlePad float64
	Width     int
	Height    int
}

// BuildNormalizeFilter returns the video filter chain that trims, pads,
// letterboxes and converts a clip to the shared frame format.
func BuildNormalizeFilter(spec NormalizeSpec) string {
	fps := spec.FPS
	if fps <= 0 {
		fps = 30
	}
	parts := []string{
		"fps=" + strconv.Itoa(fps),
		"trim=start=" + fixed3(spec.TrimStart),
		"setpts=PTS-STARTPTS",
	}
	if spec.SettlePad > 0 {
		parts = append(parts, "tpad=start_duration="+fixed3(spec.SettlePad)+":start_mode=clone")
	}
	w, h := strconv.Itoa(spec.Width), strconv.Itoa(spec.Height)
	parts = append(parts,
		"scale="+w+":"+h+":force_original_aspect_ratio=decrease",
		"pad="+w+":"+h+":(ow-iw)/2:(oh-ih)/2",
		"format=yuv420p",
	)
	return strings.Join(parts, ",")
}

func (s *Service) videoEncodeArgs() []string {
	v := s.Config.Video
	codec := firstNonEmpty(v.Codec, "libx264")
	preset := firstNonEmpty(v.Preset, "veryfast")
	crf := v.CRF
	if crf <= 0 {
		crf = 20
	}
	return []string{"-c:v", codec, "-preset", preset, "-crf", strconv.Itoa(crf)}
}

// Normalize conforms one clip and returns the probed duration of the result.
func (s *Service) Normalize(ctx context.Context, clip project.Clip, geo project.Geometry) (float64, error) {
	if _, err := os.Stat(clip.Source); err != nil {
		return 0, fmt.Errorf("scene %d clip: %w", clip.Position, err)
	}
	if err := os.MkdirAll(filepath.Dir(clip.Output), 0o755); err != nil {
		return 0, fmt.Errorf("prepare %s: %w", filepath.Dir(clip.Output), err)
	}

	filter := BuildNormalizeFilter(NormalizeSpec{
		FPS:       s.Config.Video.FPS,
		TrimStart: clip.TrimStart,
		SettlePad: s.Config.Timeline.SettlePadSec,
		Width:     geo.Width,
		Height:    geo.Height,
	})
	args := []string{"-y", "-i", clip.Source, "-an", "-vf", filter}
	args = append(args, s.videoEncodeArgs()...)
	args = append(args, clip.Output)

	if err := s.ffmpeg(ctx, fmt.Sprintf("normalize-%02d", clip.Position), args); err != nil {
		return 0, err
	}
	d, err := s.Duration(ctx, clip.Output)
	if err != nil {
		return 0, err
	}
	s.logger.Info().
		Int("scene", clip.Position).
		Str("output", s.Paths.Rel(clip.Output)).
		Float64("duration", d).
		Msg("clip normalized")
	return d, nil
}

// NormalizeAll conforms clips in order and returns their durations.
func (s *Service) NormalizeAll(ctx context.Context, clips []project.Clip, geo project.Geometry) ([]float64, error) {
	durations := make([]float64, 0, len(clips))
	for _, clip := range clips {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := s.Normalize(ctx, clip, geo)
		if err != nil {
			return nil, err
		}
		durations = append(durations, d)
	}
	return durations, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
