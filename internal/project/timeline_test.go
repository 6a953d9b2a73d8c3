package project

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"scenereel/internal/config"
	"scenereel/internal/paths"
	"scenereel/pkg/manifest"
)

const eps = 1e-9

func TestBuildTimelineThreeScenes(t *testing.T) {
	segments, err := BuildTimeline([]float64{6.0, 5.0, 4.0}, 0.35)
	if err != nil {
		t.Fatalf("BuildTimeline returned error: %v", err)
	}
	want := [][2]float64{{0, 6}, {5.65, 10.65}, {10.30, 14.30}}
	if len(segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(segments))
	}
	for i, seg := range segments {
		if math.Abs(seg.Start-want[i][0]) > eps || math.Abs(seg.End-want[i][1]) > eps {
			t.Errorf("segment %d = (%.2f, %.2f), want (%.2f, %.2f)", i, seg.Start, seg.End, want[i][0], want[i][1])
		}
	}
	if total := TotalDuration(segments); math.Abs(total-14.30) > eps {
		t.Errorf("total = %v, want 14.30", total)
	}
}

func TestBuildTimelineTiles(t *testing.T) {
	cases := [][]float64{
		{3.2},
		{1, 1},
		{6.1, 0.65, 12.75, 3.3, 0.2},
	}
	const fade = 0.5
	for _, durations := range cases {
		segments, err := BuildTimeline(durations, fade)
		if err != nil {
			t.Fatalf("BuildTimeline(%v) returned error: %v", durations, err)
		}
		sum := 0.0
		for i, seg := range segments {
			sum += durations[i]
			if math.Abs(seg.End-seg.Start-durations[i]) > eps {
				t.Errorf("segment %d length %v, want %v", i, seg.End-seg.Start, durations[i])
			}
			if i > 0 && math.Abs(segments[i-1].End-seg.Start-fade) > eps {
				t.Errorf("segments %d/%d overlap %v, want %v", i-1, i, segments[i-1].End-seg.Start, fade)
			}
		}
		want := sum - float64(len(durations)-1)*fade
		if got := TotalDuration(segments); math.Abs(got-want) > eps {
			t.Errorf("total = %v, want %v", got, want)
		}
	}
}

func TestBuildTimelineRejectsBadInput(t *testing.T) {
	if _, err := BuildTimeline(nil, 0.35); err == nil {
		t.Error("expected error for empty durations")
	}
	if _, err := BuildTimeline([]float64{2, 0}, 0.35); err == nil {
		t.Error("expected error for zero duration")
	}
}

func TestBuildTimelineRejectsClipShorterThanFade(t *testing.T) {
	for _, durations := range [][]float64{
		{6, 0.3, 4},
		{6, 0.35, 4},
		{6, 0.4, 4},
	} {
		_, err := BuildTimeline(durations, 0.35)
		if err == nil || !strings.Contains(err.Error(), "clip 2") {
			t.Errorf("BuildTimeline(%v) error = %v, want clip 2 rejected", durations, err)
		}
	}
	// Only the final clip may be shorter than the fade.
	segments, err := BuildTimeline([]float64{6, 0.5, 0.2}, 0.35)
	if err != nil {
		t.Fatalf("BuildTimeline returned error: %v", err)
	}
	if got := TotalDuration(segments); math.Abs(got-6.0) > eps {
		t.Errorf("total = %v, want 6.0", got)
	}
}

func TestSlotDuration(t *testing.T) {
	segments, err := BuildTimeline([]float64{6.0, 0.5, 4.0}, 0.35)
	if err != nil {
		t.Fatalf("BuildTimeline returned error: %v", err)
	}
	cases := []struct {
		index int
		want  float64
	}{
		{0, 5.65},
		{1, 0.15},
		{2, 4.0},
		{3, 0},
	}
	for _, tc := range cases {
		if got := SlotDuration(segments, tc.index, 0.35); math.Abs(got-tc.want) > eps {
			t.Errorf("SlotDuration(%d) = %v, want %v", tc.index, got, tc.want)
		}
	}
}

func TestResolveClips(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	pp, err := paths.Resolve(cfg)
	if err != nil {
		t.Fatalf("resolve paths: %v", err)
	}
	m := manifest.Manifest{
		Size: manifest.Size{Width: 1280, Height: 720},
		Scenes: []manifest.Scene{
			{ID: "intro", Clip: "clips/intro.webm"},
			{ID: "run tests/now", Clip: "/abs/run.webm"},
		},
	}

	clips := ResolveClips(m, pp, cfg.Timeline)
	if clips[0].TrimStart != cfg.Timeline.FirstTrimStartSec {
		t.Errorf("first clip trim = %v, want %v", clips[0].TrimStart, cfg.Timeline.FirstTrimStartSec)
	}
	if clips[1].TrimStart != cfg.Timeline.TrimStartSec {
		t.Errorf("second clip trim = %v, want %v", clips[1].TrimStart, cfg.Timeline.TrimStartSec)
	}
	if want := filepath.Join(pp.Root, "clips/intro.webm"); clips[0].Source != want {
		t.Errorf("source = %s, want %s", clips[0].Source, want)
	}
	if want := filepath.Join(pp.WorkDir, "02-run-tests-now.mp4"); clips[1].Output != want {
		t.Errorf("output = %s, want %s", clips[1].Output, want)
	}
}

func TestResolveGeometry(t *testing.T) {
	m := manifest.Manifest{Size: manifest.Size{Width: 1280, Height: 720}}
	cfg := config.Default()
	if g := ResolveGeometry(cfg, m); g.Width != 1280 || g.Height != 720 {
		t.Errorf("geometry = %+v, want manifest size", g)
	}
	cfg.Video.Width, cfg.Video.Height = 1920, 1080
	if g := ResolveGeometry(cfg, m); g.Width != 1920 || g.Height != 1080 {
		t.Errorf("geometry = %+v, want configured size", g)
	}
}
