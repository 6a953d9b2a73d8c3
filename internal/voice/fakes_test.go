package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"scenereel/internal/captions"
	"scenereel/internal/config"
	"scenereel/internal/paths"
	"scenereel/internal/project"
	"scenereel/internal/render"
)

// fakeMedia treats a file's contents as its duration in seconds.
type fakeMedia struct {
	fits   []render.FitPlan
	joined []string
	// silenceFailsIn makes Silence fail for outputs under this directory.
	silenceFailsIn string
}

func (m *fakeMedia) Duration(_ context.Context, path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
}

func (m *fakeMedia) Transcode(_ context.Context, input, output string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	return os.WriteFile(output, data, 0o644)
}

func (m *fakeMedia) FitVoice(_ context.Context, _, output string, plan render.FitPlan) error {
	m.fits = append(m.fits, plan)
	return os.WriteFile(output, []byte(strconv.FormatFloat(plan.Slot, 'f', 3, 64)), 0o644)
}

func (m *fakeMedia) Silence(_ context.Context, seconds float64, output string) error {
	if m.silenceFailsIn != "" && filepath.Dir(output) == m.silenceFailsIn {
		return errors.New("anullsrc: device busy")
	}
	return os.WriteFile(output, []byte(strconv.FormatFloat(seconds, 'f', 3, 64)), 0o644)
}

func (m *fakeMedia) ConcatNarration(_ context.Context, tracks []string, output string) error {
	m.joined = append([]string(nil), tracks...)
	return os.WriteFile(output, []byte("narration"), 0o644)
}

// fakeProvider writes a track whose duration is len(words)*perWord.
type fakeProvider struct {
	name      string
	available bool
	perWord   float64
	failOn    string
	alignment bool
	calls     int
}

func (p *fakeProvider) Name() string                   { return p.name }
func (p *fakeProvider) Available(context.Context) bool { return p.available }
func (p *fakeProvider) Settings() map[string]any       { return map[string]any{"per_word": p.perWord} }

func (p *fakeProvider) Synthesize(_ context.Context, text, out string) (Synthesis, error) {
	p.calls++
	if p.failOn != "" && strings.Contains(text, p.failOn) {
		return Synthesis{}, errors.New("synthesis exploded")
	}
	words := strings.Fields(text)
	d := float64(len(words)) * p.perWord
	if err := os.WriteFile(out, []byte(fmt.Sprintf("%.3f", d)), 0o644); err != nil {
		return Synthesis{}, err
	}
	syn := Synthesis{Meta: map[string]any{"voice": p.name}}
	if p.alignment {
		syn.Alignment = alignFor(text, p.perWord)
	}
	return syn, nil
}

// alignFor spreads characters evenly across each word's share.
func alignFor(text string, perWord float64) *captions.Alignment {
	a := &captions.Alignment{}
	cursor := 0.0
	for i, w := range strings.Fields(text) {
		if i > 0 {
			a.Characters = append(a.Characters, " ")
			a.Starts = append(a.Starts, cursor)
			a.Ends = append(a.Ends, cursor)
		}
		step := perWord / float64(len(w))
		for _, r := range w {
			a.Characters = append(a.Characters, string(r))
			a.Starts = append(a.Starts, cursor)
			cursor += step
			a.Ends = append(a.Ends, cursor)
		}
	}
	return a
}

type harness struct {
	narrator *Narrator
	media    *fakeMedia
	paths    paths.OutputPaths
}

func newHarness(t *testing.T, providers ...Provider) harness {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	pp, err := paths.Resolve(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := pp.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	media := &fakeMedia{}
	n := NewNarrator(NewRegistryOf(providers...), NewStore(pp.CacheDir), media, pp, cfg, zerolog.Nop())
	return harness{narrator: n, media: media, paths: pp}
}

// threeScenes lays out the 6s/5s/4s timeline with a 0.35s fade.
func threeScenes(t *testing.T, texts ...string) []SceneInput {
	t.Helper()
	segs, err := project.BuildTimeline([]float64{6, 5, 4}, 0.35)
	if err != nil {
		t.Fatal(err)
	}
	scenes := make([]SceneInput, len(segs))
	for i, seg := range segs {
		scenes[i] = SceneInput{
			Position: i + 1,
			ID:       fmt.Sprintf("s%d", i+1),
			Text:     texts[i],
			Label:    fmt.Sprintf("Scene %d", i+1),
			Segment:  seg,
			Slot:     project.SlotDuration(segs, i, 0.35),
		}
	}
	return scenes
}
