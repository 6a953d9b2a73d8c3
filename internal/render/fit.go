package render

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// MinVoiceSeconds is the shortest usable voice budget or track.
	MinVoiceSeconds = 0.08
	fitTolerance    = 0.01
	minCueSeconds   = 0.05
)

// FitPlan is the outcome of fitting a raw voice clip into a scene slot.
type FitPlan struct {
	Slot        float64 `json:"slot"`
	Raw         float64 `json:"raw"`
	Gap         float64 `json:"gap"`
	Budget      float64 `json:"budget"`
	Spoken      float64 `json:"spoken"`
	Clipped     bool    `json:"clipped"`
	FadeOut     float64 `json:"fade_out,omitempty"`
	CueDuration float64 `json:"cue_duration"`
}

// PlanFit decides gap, truncation and fade for a raw clip of length raw in
// a slot of length slot. The gap is only kept when the voice still fits
// with it; otherwise it is dropped before any truncation.
func PlanFit(raw, slot, gap, clipFade float64) FitPlan {
	bounded := math.Min(gap, math.Max(0, slot-MinVoiceSeconds))
	if bounded < 0 {
		bounded = 0
	}
	applied := 0.0
	if raw <= slot-bounded+fitTolerance {
		applied = bounded
	}
	budget := math.Max(MinVoiceSeconds, slot-applied)
	clipped := raw > budget+fitTolerance
	spoken := math.Min(raw, budget)

	plan := FitPlan{
		Slot:        slot,
		Raw:         raw,
		Gap:         applied,
		Budget:      budget,
		Spoken:      spoken,
		Clipped:     clipped,
		CueDuration: math.Max(minCueSeconds, math.Min(spoken, slot)),
	}
	if clipped {
		plan.FadeOut = math.Min(clipFade, math.Max(0.03, spoken*0.45))
	}
	return plan
}

// Filter returns the audio filter chain realizing the plan.
func (p FitPlan) Filter() string {
	var parts []string
	if p.Clipped {
		start := math.Max(0, p.Spoken-p.FadeOut)
		parts = append(parts,
			"atrim=end="+fixed3(p.Spoken),
			"afade=t=out:st="+fixed3(start)+":d="+fixed3(p.FadeOut),
		)
	}
	parts = append(parts, "apad")
	return strings.Join(parts, ",")
}

// FitVoice writes a track of exactly plan.Slot seconds from the raw clip.
func (s *Service) FitVoice(ctx context.Context, input, output string, plan FitPlan) error {
	args := []string{
		"-y", "-i", input,
		"-af", plan.Filter(),
		"-t", fixed3(plan.Slot),
		"-ar", s.sampleRate(),
		"-ac", "1",
		output,
	}
	if err := s.ffmpeg(ctx, "fit", args); err != nil {
		return fmt.Errorf("fit voice: %w", err)
	}
	return nil
}

// Silence writes a silent mono track of the given length.
func (s *Service) Silence(ctx context.Context, seconds float64, output string) error {
	args := []string{
		"-y",
		"-f", "lavfi",
		"-t", fixed3(math.Max(MinVoiceSeconds, seconds)),
		"-i", "anullsrc=channel_layout=mono:sample_rate="+s.sampleRate(),
		output,
	}
	return s.ffmpeg(ctx, "silence", args)
}

func (s *Service) sampleRate() string {
	if s.Config.Audio.SampleRate > 0 {
		return strconv.Itoa(s.Config.Audio.SampleRate)
	}
	return "48000"
}

// Transcode converts any provider output to mono wav at the configured sample rate.
func (s *Service) Transcode(ctx context.Context, input, output string) error {
	args := []string{"-y", "-i", input, "-ar", s.sampleRate(), "-ac", "1", output}
	return s.ffmpeg(ctx, "transcode", args)
}
