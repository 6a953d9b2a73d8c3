// Package pipeline composes the final narrated video from a scene manifest.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"scenereel/internal/captions"
	"scenereel/internal/config"
	"scenereel/internal/paths"
	"scenereel/internal/project"
	"scenereel/internal/render"
	"scenereel/internal/voice"
	"scenereel/pkg/manifest"
)

// Stage names reported while a run progresses.
const (
	StageNormalize = "normalize"
	StageCrossfade = "crossfade"
	StageNarration = "narration"
	StageCaptions  = "captions"
	StageMux       = "mux"
)

// Stages lists every stage in execution order.
var Stages = []string{StageNormalize, StageCrossfade, StageNarration, StageCaptions, StageMux}

// Reporter observes a run. Implementations must be safe to call from the
// goroutine executing Run.
type Reporter interface {
	voice.Reporter
	StageStarted(stage string)
	StageDone(stage, detail string)
	StageFailed(stage string, err error)
}

// Builder runs one composition.
type Builder struct {
	Config   config.Config
	Paths    paths.OutputPaths
	Render   *render.Service
	Registry *voice.Registry
	Reporter Reporter

	base     zerolog.Logger
	logger   zerolog.Logger
	now      func() time.Time
	newRunID func() string
	timings  map[string]time.Duration
}

// NewBuilder wires a builder around an existing render service and provider
// registry.
func NewBuilder(cfg config.Config, pp paths.OutputPaths, svc *render.Service, reg *voice.Registry, logger zerolog.Logger) *Builder {
	return &Builder{
		Config:   cfg,
		Paths:    pp,
		Render:   svc,
		Registry: reg,
		base:     logger,
		logger:   logger.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// Run executes every stage and returns the build record. The work directory
// is rebuilt from scratch; only the voice cache persists between runs.
func (b *Builder) Run(ctx context.Context) (Record, error) {
	if b.Reporter == nil {
		b.Reporter = nopReporter{}
	}
	b.timings = make(map[string]time.Duration)
	runID := b.newRunID()
	log := b.logger.With().Str("run_id", runID).Logger()

	m, err := manifest.Load(b.Paths.ManifestFile)
	if err != nil {
		return Record{}, err
	}
	if err := b.Paths.EnsureDirs(); err != nil {
		return Record{}, err
	}
	if err := b.Paths.ResetWorkDir(); err != nil {
		return Record{}, err
	}
	log.Info().Int("scenes", len(m.Scenes)).Str("manifest", b.Paths.ManifestFile).Msg("composition started")

	geo := project.ResolveGeometry(b.Config, m)
	clips := project.ResolveClips(m, b.Paths, b.Config.Timeline)

	var durations []float64
	err = b.stage(StageNormalize, func() (string, error) {
		var err error
		durations, err = b.Render.NormalizeAll(ctx, clips, geo)
		return fmt.Sprintf("%d clips at %dx%d", len(clips), geo.Width, geo.Height), err
	})
	if err != nil {
		return Record{}, err
	}

	fade := b.Config.Timeline.FadeSec
	segments, err := project.BuildTimeline(durations, fade)
	if err != nil {
		return Record{}, err
	}
	total := project.TotalDuration(segments)

	err = b.stage(StageCrossfade, func() (string, error) {
		outputs := make([]string, len(clips))
		for i, c := range clips {
			outputs[i] = c.Output
		}
		return fmt.Sprintf("%.2fs", total), b.Render.Crossfade(ctx, outputs, durations, b.Paths.JoinedVideo)
	})
	if err != nil {
		return Record{}, err
	}

	scenes := sceneInputs(m, segments, fade)
	if err := writeNarration(b.Paths.NarrationFile, m, scenes); err != nil {
		return Record{}, err
	}

	availability := b.Registry.Availability(ctx)
	plan := voice.Select(b.Config.Voice.Provider, b.Config.Voice.Strict, b.Registry.Names(), availability)
	log.Info().Str("requested", plan.Requested).Strs("candidates", plan.Candidates).Bool("strict", plan.Strict).Msg("voice providers selected")

	var narration voice.Result
	err = b.stage(StageNarration, func() (string, error) {
		narrator := voice.NewNarrator(b.Registry, voice.NewStore(b.Paths.CacheDir), b.Render, b.Paths, b.Config, b.base)
		narrator.Reporter = b.Reporter
		var err error
		narration, err = narrator.Render(ctx, plan, scenes)
		if err != nil {
			return "", err
		}
		if err := voice.CheckStrict(plan, narration); err != nil {
			return "", err
		}
		return narration.Provider, nil
	})
	if err != nil {
		return Record{}, err
	}

	cues := narration.Cues
	mode := narration.Mode
	err = b.stage(StageCaptions, func() (string, error) {
		if len(cues) == 0 {
			cues = captions.FallbackCues(fallbackTexts(scenes), segments, b.Config.Captions)
			mode = captions.ModeEstimated
		}
		cues = captions.Finalize(cues, total)
		if err := captions.WriteSRT(b.Paths.CaptionsFile, cues); err != nil {
			return "", err
		}
		if err := writeJSON(b.Paths.CuesFile, cues); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d cues (%s)", len(cues), mode), nil
	})
	if err != nil {
		return Record{}, err
	}

	err = b.stage(StageMux, func() (string, error) {
		return b.Paths.Rel(b.Paths.OutputFile), b.Render.Mux(ctx, render.MuxInput{
			Video:    b.Paths.JoinedVideo,
			Voice:    narration.Voiceover,
			Captions: b.Paths.CaptionsFile,
			Duration: total,
			Output:   b.Paths.OutputFile,
		})
	})
	if err != nil {
		return Record{}, err
	}

	outDur, err := b.Render.Duration(ctx, b.Paths.OutputFile)
	if err != nil {
		log.Warn().Err(err).Msg("probe final video failed, using timeline total")
		outDur = total
	}

	rec := b.record(runID, m, geo, segments, outDur, plan, narration, cues, mode)
	if err := SaveRecord(b.Paths.MetadataFile, rec); err != nil {
		return rec, err
	}
	if path := strings.TrimSpace(b.Config.Metrics.Textfile); path != "" {
		metrics := newRunMetrics()
		metrics.observeRecord(rec)
		for stage, d := range b.timings {
			metrics.stepSeconds.WithLabelValues(stage).Set(d.Seconds())
		}
		if err := metrics.write(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("metrics textfile not written")
		}
	}

	log.Info().
		Str("output", b.Paths.OutputFile).
		Str("voice", rec.VoiceProvider).
		Str("captions", string(mode)).
		Int("cues", len(cues)).
		Int("cache_hits", rec.VoiceCache.Hits).
		Int("cache_misses", rec.VoiceCache.Misses).
		Msg("composition finished")
	return rec, nil
}

func (b *Builder) stage(name string, fn func() (string, error)) error {
	b.Reporter.StageStarted(name)
	start := time.Now()
	detail, err := fn()
	b.timings[name] = time.Since(start)
	if err != nil {
		b.Reporter.StageFailed(name, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	b.Reporter.StageDone(name, detail)
	return nil
}

func (b *Builder) record(runID string, m manifest.Manifest, geo project.Geometry, segs []project.Segment, outDur float64,
	plan voice.Plan, narration voice.Result, cues []captions.Cue, mode captions.Mode) Record {
	cfg := b.Config
	rec := Record{
		RunID:           runID,
		GeneratedAt:     b.now().UTC(),
		Output:          b.Paths.Rel(b.Paths.OutputFile),
		SceneCount:      len(m.Scenes),
		DurationSeconds: round(outDur, 2),
		TimelineSeconds: timelineEntries(segs),
		Size:            FrameSize{Width: geo.Width, Height: geo.Height},

		VoiceProvider:             narration.Provider,
		RequestedVoiceProvider:    plan.Requested,
		VoiceProviderAvailability: plan.Availability,
		AttemptedVoiceProviders:   narration.Attempts,
		StrictVoice:               plan.Strict,
		VoiceProviderMeta:         narration.Meta,
		SceneAudio:                narration.Scenes,
		VoiceCache:                narration.Cache,
		VoiceAudio: AudioSettings{
			TargetSceneGapSeconds: cfg.Voice.SceneGapSec,
			ClipFadeOutSeconds:    cfg.Voice.ClipFadeSec,
			MasteringFilter:       cfg.Voice.MasteringFilter,
			JoinMode:              "concat",
		},
		Captions: CaptionsRecord{
			File:     b.Paths.Rel(b.Paths.CaptionsFile),
			CueCount: len(cues),
			Mode:     mode,
			CuesJSON: b.Paths.Rel(b.Paths.CuesFile),
		},

		FadeSeconds:               cfg.Timeline.FadeSec,
		ClipTrimStartSeconds:      cfg.Timeline.TrimStartSec,
		ClipFirstTrimStartSeconds: cfg.Timeline.FirstTrimStartSec,
		ClipSettlePadSeconds:      cfg.Timeline.SettlePadSec,
		Transitions:               render.TransitionSequence(cfg.Timeline.Transitions, len(segs)-1),
		ManifestGeneratedAt:       m.GeneratedAt,
		BaseURL:                   m.BaseURL,
	}
	if narration.Voiceover != "" {
		rel := b.Paths.Rel(narration.Voiceover)
		rec.Voiceover = &rel
	}
	return rec
}

// sceneInputs pairs each scene with its segment, slot and spoken text.
func sceneInputs(m manifest.Manifest, segs []project.Segment, fade float64) []voice.SceneInput {
	out := make([]voice.SceneInput, len(m.Scenes))
	for i, sc := range m.Scenes {
		out[i] = voice.SceneInput{
			Position: i + 1,
			ID:       sc.ID,
			Text:     captions.NormalizeText(sc.SpokenText()),
			Label:    captions.NormalizeCueText(sc.Label(i + 1)),
			Segment:  segs[i],
			Slot:     project.SlotDuration(segs, i, fade),
		}
	}
	return out
}

func fallbackTexts(scenes []voice.SceneInput) []captions.SceneText {
	out := make([]captions.SceneText, len(scenes))
	for i, sc := range scenes {
		text := sc.Text
		if text == "" {
			text = sc.Label
		}
		out[i] = captions.SceneText{Text: text, Slot: sc.Slot}
	}
	return out
}

func writeNarration(path string, m manifest.Manifest, scenes []voice.SceneInput) error {
	var b strings.Builder
	for i, sc := range scenes {
		fmt.Fprintf(&b, "Scene %d (%s): %s\n", i+1, m.Scenes[i].ID, sc.Text)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write narration transcript: %w", err)
	}
	return nil
}

type nopReporter struct{}

func (nopReporter) ProviderStarted(string)             {}
func (nopReporter) SceneDone(string, voice.SceneAudio) {}
func (nopReporter) ProviderFailed(string, string)      {}
func (nopReporter) StageStarted(string)                {}
func (nopReporter) StageDone(string, string)           {}
func (nopReporter) StageFailed(string, error)          {}
