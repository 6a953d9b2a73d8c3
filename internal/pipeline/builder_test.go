package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"scenereel/internal/captions"
	"scenereel/internal/config"
	"scenereel/internal/paths"
	"scenereel/internal/render"
	"scenereel/internal/voice"
)

// mediaRunner imitates ffmpeg by writing a file whose contents are its
// duration, and ffprobe by reading it back.
type mediaRunner struct {
	durations map[string]string
	calls     [][]string
}

func (r *mediaRunner) Run(_ context.Context, command string, args []string, _ render.RunOptions) (render.RunResult, error) {
	r.calls = append(r.calls, append([]string{command}, args...))
	target := args[len(args)-1]
	if command == "ffprobe" {
		data, err := os.ReadFile(target)
		if err != nil {
			return render.RunResult{}, err
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64); err != nil {
			return render.RunResult{Stderr: []byte("invalid data")}, errors.New("exit status 1")
		}
		return render.RunResult{Stdout: data}, nil
	}
	content := "media"
	if d, ok := r.durations[filepath.Base(target)]; ok {
		content = d
	}
	return render.RunResult{}, os.WriteFile(target, []byte(content), 0o644)
}

func (r *mediaRunner) ffmpegCall(match string) []string {
	for _, c := range r.calls {
		if c[0] == "ffmpeg" && strings.HasSuffix(c[len(c)-1], match) {
			return c
		}
	}
	return nil
}

type stubProvider struct {
	name string
	fail bool
}

func (p *stubProvider) Name() string                   { return p.name }
func (p *stubProvider) Available(context.Context) bool { return true }
func (p *stubProvider) Settings() map[string]any       { return map[string]any{"voice": "stub"} }

func (p *stubProvider) Synthesize(_ context.Context, text, out string) (voice.Synthesis, error) {
	if p.fail {
		return voice.Synthesis{}, errors.New("service unavailable")
	}
	d := 0.4 * float64(len(strings.Fields(text)))
	return voice.Synthesis{}, os.WriteFile(out, []byte(strconv.FormatFloat(d, 'f', 3, 64)), 0o644)
}

type fixture struct {
	builder *Builder
	runner  *mediaRunner
	paths   paths.OutputPaths
	metrics string
}

const testManifest = `{
  "generated_at": "2026-02-01T10:00:00Z",
  "base_url": "http://localhost:5173",
  "size": {"width": 1280, "height": 720},
  "scenes": [
    {"id": "intro", "title": "Intro", "voiceover": "Welcome to the editor.", "clip": "clips/intro.webm"},
    {"id": "run", "caption": "Hit Play. Execute left to right.", "clip": "clips/run.webm"},
    {"id": "outro", "clip": "clips/outro.webm"}
  ]
}`

func newFixture(t *testing.T, provider string, strict bool, providers ...voice.Provider) fixture {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "clips"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"intro", "run", "outro"} {
		if err := os.WriteFile(filepath.Join(root, "clips", name+".webm"), []byte("raw"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "scene-manifest.json"), []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.OutputDir = root
	cfg.Voice.Provider = provider
	cfg.Voice.Strict = strict
	cfg.Metrics.Textfile = filepath.Join(root, "metrics", "scenereel.prom")
	pp, err := paths.Resolve(cfg)
	if err != nil {
		t.Fatal(err)
	}

	runner := &mediaRunner{durations: map[string]string{
		"01-intro.mp4": "6.000",
		"02-run.mp4":   "5.000",
		"03-outro.mp4": "4.000",
		"tutorial.mp4": "14.300",
	}}
	svc := render.New(pp, cfg, runner, zerolog.Nop(), render.Binaries{FFmpeg: "ffmpeg", FFprobe: "ffprobe"})
	b := NewBuilder(cfg, pp, svc, voice.NewRegistryOf(providers...), zerolog.Nop())
	b.newRunID = func() string { return "run-1" }
	b.now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }
	return fixture{builder: b, runner: runner, paths: pp, metrics: cfg.Metrics.Textfile}
}

func TestRunNarrated(t *testing.T) {
	f := newFixture(t, config.ProviderAuto, false, &stubProvider{name: "edge"})
	rec, err := f.builder.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rec.RunID != "run-1" || rec.SceneCount != 3 || rec.VoiceProvider != "edge" {
		t.Fatalf("unexpected record header %+v", rec)
	}
	if rec.DurationSeconds != 14.3 {
		t.Fatalf("duration = %v", rec.DurationSeconds)
	}
	wantTimeline := []TimelineEntry{{1, 0, 6}, {2, 5.65, 10.65}, {3, 10.3, 14.3}}
	if !slices.Equal(rec.TimelineSeconds, wantTimeline) {
		t.Fatalf("timeline = %+v", rec.TimelineSeconds)
	}
	if rec.Voiceover == nil || *rec.Voiceover != "voiceover.wav" {
		t.Fatalf("voiceover = %v", rec.Voiceover)
	}
	if rec.Captions.Mode != captions.ModeEstimated || rec.VoiceCache.Misses != 2 {
		t.Fatalf("captions/cache = %+v / %+v", rec.Captions, rec.VoiceCache)
	}
	if len(rec.SceneAudio) != 3 || !rec.SceneAudio[2].Silent {
		t.Fatalf("scene audio = %+v", rec.SceneAudio)
	}
	if rec.ManifestGeneratedAt != "2026-02-01T10:00:00Z" || rec.BaseURL != "http://localhost:5173" {
		t.Fatalf("manifest metadata not carried: %+v", rec)
	}

	mux := f.runner.ffmpegCall("tutorial.mp4")
	if mux == nil || !slices.Contains(mux, "-filter:a") {
		t.Fatalf("expected mastered mux, got %v", mux)
	}

	var cues []captions.Cue
	data, err := os.ReadFile(f.paths.CuesFile)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &cues); err != nil {
		t.Fatal(err)
	}
	if len(cues) != rec.Captions.CueCount || math.Abs(cues[len(cues)-1].End-14.3) > 1e-9 {
		t.Fatalf("cues = %+v", cues)
	}
	if cues[len(cues)-1].Text != "Scene 3" {
		t.Fatalf("silent scene should carry its label, got %q", cues[len(cues)-1].Text)
	}
	srt, err := captions.ReadSRT(f.paths.CaptionsFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(srt) != len(cues) || srt[0].Text != cues[0].Text {
		t.Fatalf("captions.srt disagrees with cue data: %+v", srt)
	}

	narration, err := os.ReadFile(f.paths.NarrationFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(narration), "Scene 1 (intro): Welcome to the editor.\n") {
		t.Fatalf("narration = %q", narration)
	}

	saved, err := LoadRecord(f.paths.MetadataFile)
	if err != nil || saved.RunID != "run-1" {
		t.Fatalf("record not persisted: %+v, %v", saved, err)
	}

	metrics, err := os.ReadFile(f.metrics)
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	for _, want := range []string{"scenereel_scenes 3", `scenereel_voice_cache_lookups{result="miss"} 2`, `scenereel_voice_provider_attempt{provider="edge"} 1`} {
		if !strings.Contains(string(metrics), want) {
			t.Fatalf("metrics missing %q:\n%s", want, metrics)
		}
	}
}

func TestRunExhaustedUsesSilentTrack(t *testing.T) {
	f := newFixture(t, config.ProviderAuto, false, &stubProvider{name: "edge", fail: true})
	rec, err := f.builder.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.VoiceProvider != config.ProviderNone || rec.Voiceover != nil {
		t.Fatalf("expected no narration, got %+v", rec)
	}
	if len(rec.AttemptedVoiceProviders) != 1 || rec.AttemptedVoiceProviders[0].OK {
		t.Fatalf("attempts = %+v", rec.AttemptedVoiceProviders)
	}
	if rec.Captions.Mode != captions.ModeEstimated || rec.Captions.CueCount == 0 {
		t.Fatalf("expected estimated captions, got %+v", rec.Captions)
	}
	mux := f.runner.ffmpegCall("tutorial.mp4")
	if !slices.Contains(mux, "anullsrc=channel_layout=mono:sample_rate=48000") || slices.Contains(mux, "-filter:a") {
		t.Fatalf("expected generated silence without mastering: %v", mux)
	}
}

func TestRunStrictFailureAbortsBeforeMux(t *testing.T) {
	f := newFixture(t, "edge", true, &stubProvider{name: "edge", fail: true}, &stubProvider{name: "say"})
	_, err := f.builder.Run(context.Background())
	var se *voice.StrictError
	if !errors.As(err, &se) {
		t.Fatalf("expected StrictError, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "narration: ") {
		t.Fatalf("error should name the stage: %v", err)
	}
	if f.runner.ffmpegCall("tutorial.mp4") != nil {
		t.Fatal("mux must not run after a strict failure")
	}
}

func TestRunMissingManifest(t *testing.T) {
	f := newFixture(t, config.ProviderAuto, false)
	if err := os.Remove(f.paths.ManifestFile); err != nil {
		t.Fatal(err)
	}
	if _, err := f.builder.Run(context.Background()); err == nil {
		t.Fatal("expected error for a missing manifest")
	}
}
