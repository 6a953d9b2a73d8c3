package voice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/rs/zerolog"

	"scenereel/internal/captions"
	"scenereel/internal/config"
	"scenereel/internal/paths"
	"scenereel/internal/project"
	"scenereel/internal/render"
)

// State is the narrator's position in the fallback sequence.
type State string

const (
	StatePending   State = "pending"
	StateTrying    State = "trying"
	StateSucceeded State = "succeeded"
	StateExhausted State = "exhausted"
)

// SceneInput is one scene as the narrator sees it.
type SceneInput struct {
	Position int
	ID       string
	// Text is the normalized spoken text; empty means a silent scene.
	Text    string
	Label   string
	Segment project.Segment
	Slot    float64
}

// CacheStats counts cache use for one provider attempt.
type CacheStats struct {
	Hits   int    `json:"hits"`
	Misses int    `json:"misses"`
	Path   string `json:"path,omitempty"`
}

// Attempt records one provider's pass over the scene list.
type Attempt struct {
	Provider string     `json:"provider"`
	OK       bool       `json:"ok"`
	Reason   string     `json:"reason,omitempty"`
	Cache    CacheStats `json:"cache"`
}

// SceneAudio describes the fitted track of one scene.
type SceneAudio struct {
	Index    int     `json:"index"`
	ID       string  `json:"id"`
	File     string  `json:"file"`
	Raw      float64 `json:"raw_seconds"`
	Slot     float64 `json:"slot_seconds"`
	Gap      float64 `json:"gap_seconds"`
	Clipped  bool    `json:"clipped"`
	CacheHit bool    `json:"cache_hit"`
	Aligned  bool    `json:"aligned"`
	Silent   bool    `json:"silent,omitempty"`
}

// Result is the outcome of Render.
type Result struct {
	State     State          `json:"state"`
	Provider  string         `json:"provider"`
	Voiceover string         `json:"voiceover,omitempty"`
	Scenes    []SceneAudio   `json:"scenes"`
	Cues      []captions.Cue `json:"-"`
	Mode      captions.Mode  `json:"caption_mode"`
	Attempts  []Attempt      `json:"attempts"`
	Meta      map[string]any `json:"meta,omitempty"`
	Cache     CacheStats     `json:"cache"`
}

// Reporter observes narration progress.
type Reporter interface {
	ProviderStarted(provider string)
	SceneDone(provider string, scene SceneAudio)
	ProviderFailed(provider, reason string)
}

type nopReporter struct{}

func (nopReporter) ProviderStarted(string)        {}
func (nopReporter) SceneDone(string, SceneAudio)  {}
func (nopReporter) ProviderFailed(string, string) {}

// Narrator runs the provider fallback sequence over every scene.
type Narrator struct {
	Registry *Registry
	Store    *Store
	Media    Media
	Paths    paths.OutputPaths
	Voice    config.VoiceConfig
	Captions config.CaptionsConfig
	Reporter Reporter

	logger zerolog.Logger
}

// NewNarrator wires a narrator.
func NewNarrator(reg *Registry, store *Store, media Media, pp paths.OutputPaths, cfg config.Config, logger zerolog.Logger) *Narrator {
	return &Narrator{
		Registry: reg,
		Store:    store,
		Media:    media,
		Paths:    pp,
		Voice:    cfg.Voice,
		Captions: cfg.Captions,
		Reporter: nopReporter{},
		logger:   logger.With().Str("component", "voice").Logger(),
	}
}

// providerFailure carries a reason worth reporting verbatim. Any error from an
// attempt abandons that provider; only context cancellation aborts Render.
type providerFailure struct{ reason string }

func (f *providerFailure) Error() string { return f.reason }

func fail(format string, args ...any) error {
	return &providerFailure{reason: fmt.Sprintf(format, args...)}
}

// Render tries each candidate in plan order. A provider must voice every
// scene; the first failure discards its work and the whole sequence restarts
// under the next candidate. When every candidate fails the result is
// Exhausted with provider "none".
func (n *Narrator) Render(ctx context.Context, plan Plan, scenes []SceneInput) (Result, error) {
	if n.Reporter == nil {
		n.Reporter = nopReporter{}
	}
	res := Result{State: StatePending, Attempts: []Attempt{}}
	cachePath := n.Paths.Rel(n.Store.Root)

	for _, name := range plan.Candidates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		provider, ok := n.Registry.Get(name)
		if !ok {
			res.Attempts = append(res.Attempts, Attempt{Provider: name, Reason: "unknown provider"})
			continue
		}

		res.State = StateTrying
		n.Reporter.ProviderStarted(name)
		n.logger.Info().Str("provider", name).Msg("trying voice provider")

		run, err := n.attempt(ctx, provider, scenes)
		attempt := Attempt{Provider: name, OK: err == nil, Cache: run.cache}
		var pf *providerFailure
		switch {
		case err == nil:
		case errors.As(err, &pf):
			attempt.Reason = pf.reason
		case ctx.Err() != nil:
			return res, ctx.Err()
		default:
			attempt.Reason = err.Error()
		}
		res.Attempts = append(res.Attempts, attempt)

		if err != nil {
			n.Reporter.ProviderFailed(name, attempt.Reason)
			n.logger.Warn().Str("provider", name).Str("reason", attempt.Reason).Msg("voice provider abandoned")
			continue
		}

		if err := n.Media.ConcatNarration(ctx, run.tracks, n.Paths.VoiceoverFile); err != nil {
			return res, fmt.Errorf("join narration: %w", err)
		}
		res.State = StateSucceeded
		res.Provider = name
		res.Voiceover = n.Paths.VoiceoverFile
		res.Scenes = run.scenes
		res.Cues = run.cues
		res.Meta = run.meta
		res.Mode = captions.ModeFor(run.aligned, run.voiced)
		res.Cache = run.cache
		res.Cache.Path = cachePath
		n.logger.Info().
			Str("provider", name).
			Str("caption_mode", string(res.Mode)).
			Int("cache_hits", run.cache.Hits).
			Int("cache_misses", run.cache.Misses).
			Msg("narration rendered")
		return res, nil
	}

	res.State = StateExhausted
	res.Provider = config.ProviderNone
	res.Mode = captions.ModeScene
	res.Scenes = []SceneAudio{}
	res.Cache = CacheStats{Path: cachePath}
	n.logger.Warn().Int("attempts", len(res.Attempts)).Msg("no voice provider succeeded")
	return res, nil
}

type providerRun struct {
	tracks  []string
	scenes  []SceneAudio
	cues    []captions.Cue
	meta    map[string]any
	cache   CacheStats
	aligned int
	voiced  int
}

func (n *Narrator) attempt(ctx context.Context, p Provider, scenes []SceneInput) (providerRun, error) {
	var run providerRun
	dir := n.Paths.VoiceWorkDir(p.Name())
	if err := paths.ResetDir(dir); err != nil {
		return run, err
	}

	for _, sc := range scenes {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		stem := project.SceneFileStem(sc.Position, sc.ID)
		fitted := filepath.Join(dir, stem+"-fit.wav")

		if sc.Text == "" {
			if err := n.Media.Silence(ctx, sc.Slot, fitted); err != nil {
				return run, err
			}
			audio := SceneAudio{Index: sc.Position, ID: sc.ID, File: filepath.Base(fitted), Slot: sc.Slot, Silent: true}
			run.tracks = append(run.tracks, fitted)
			run.scenes = append(run.scenes, audio)
			run.cues = append(run.cues, captions.SceneCues(nil, sc.Segment, sc.Slot, sc.Label, n.Captions)...)
			n.Reporter.SceneDone(p.Name(), audio)
			continue
		}

		raw := filepath.Join(dir, stem+"-raw.wav")
		entry, hit, err := n.synthesize(ctx, p, sc.Text, raw)
		if err != nil {
			return run, err
		}
		if hit {
			run.cache.Hits++
		} else {
			run.cache.Misses++
		}
		if run.meta == nil && len(entry.Meta) > 0 {
			run.meta = entry.Meta
		}

		rawDur := entry.Duration
		if rawDur <= 0 {
			if rawDur, err = n.Media.Duration(ctx, raw); err != nil {
				return run, fail("failed to read raw voice duration: %v", err)
			}
		}
		if rawDur < n.minAudio() {
			return run, fail("raw voice track too short (%.3fs) for scene %d", rawDur, sc.Position)
		}

		plan := render.PlanFit(rawDur, sc.Slot, n.Voice.SceneGapSec, n.Voice.ClipFadeSec)
		if err := n.Media.FitVoice(ctx, raw, fitted, plan); err != nil {
			return run, fail("failed to fit voice track to scene %d: %v", sc.Position, err)
		}

		words := captions.WordsFromAlignment(entry.Alignment)
		aligned := len(words) > 0
		if aligned {
			run.aligned++
		} else {
			words = captions.EstimateWords(sc.Text, math.Min(rawDur, plan.CueDuration))
		}
		run.voiced++
		words = captions.ClampWords(words, plan.CueDuration)
		run.cues = append(run.cues, captions.SceneCues(words, sc.Segment, sc.Slot, sc.Text, n.Captions)...)

		audio := SceneAudio{
			Index:    sc.Position,
			ID:       sc.ID,
			File:     filepath.Base(fitted),
			Raw:      rawDur,
			Slot:     sc.Slot,
			Gap:      plan.Gap,
			Clipped:  plan.Clipped,
			CacheHit: hit,
			Aligned:  aligned,
		}
		run.tracks = append(run.tracks, fitted)
		run.scenes = append(run.scenes, audio)
		n.Reporter.SceneDone(p.Name(), audio)
		n.logger.Debug().
			Str("provider", p.Name()).
			Int("scene", sc.Position).
			Float64("raw", rawDur).
			Float64("slot", sc.Slot).
			Bool("clipped", plan.Clipped).
			Bool("cache_hit", hit).
			Msg("scene voiced")
	}

	if len(run.tracks) == 0 {
		return run, fail("no scenes to voice")
	}
	return run, nil
}

// synthesize resolves text through the cache, calling the provider on a
// miss and storing the fresh result.
func (n *Narrator) synthesize(ctx context.Context, p Provider, text, raw string) (Entry, bool, error) {
	settings := p.Settings()
	key, err := Key(p.Name(), text, settings)
	if err != nil {
		return Entry{}, false, err
	}
	entry, hit, err := n.Store.Lookup(p.Name(), key, raw)
	if err != nil {
		return Entry{}, false, err
	}
	if hit {
		return entry, true, nil
	}

	syn, err := p.Synthesize(ctx, text, raw)
	if err != nil {
		if ctx.Err() != nil {
			return Entry{}, false, ctx.Err()
		}
		return Entry{}, false, fail("%v", err)
	}
	dur, err := n.Media.Duration(ctx, raw)
	if err != nil {
		return Entry{}, false, fail("%s produced unreadable audio: %v", p.Name(), err)
	}

	entry = Entry{
		Provider:  p.Name(),
		CacheKey:  key,
		Text:      text,
		Settings:  settings,
		Duration:  dur,
		Alignment: syn.Alignment,
		Meta:      syn.Meta,
	}
	if dur >= n.minAudio() {
		if err := n.Store.Put(ctx, entry, raw); err != nil {
			n.logger.Warn().Err(err).Str("provider", p.Name()).Msg("voice cache write failed")
		}
	}
	return entry, false, nil
}

func (n *Narrator) minAudio() float64 {
	if n.Voice.MinAudioSec > 0 {
		return n.Voice.MinAudioSec
	}
	return render.MinVoiceSeconds
}
