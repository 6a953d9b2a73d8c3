// Package voice synthesizes per-scene narration with ordered provider
// fallback and a content-addressed cache.
package voice

import (
	"context"

	"scenereel/internal/captions"
	"scenereel/internal/render"
)

// Synthesis is what a provider returns besides the audio file.
type Synthesis struct {
	Alignment *captions.Alignment
	Meta      map[string]any
}

// Provider turns text into a mono wav file.
type Provider interface {
	Name() string
	// Available reports whether the provider can be attempted at all.
	Available(ctx context.Context) bool
	// Settings returns every parameter that changes the produced audio. It is
	// part of the cache key.
	Settings() map[string]any
	Synthesize(ctx context.Context, text, out string) (Synthesis, error)
}

// Media is the subset of the renderer the narrator needs.
type Media interface {
	Duration(ctx context.Context, path string) (float64, error)
	Transcode(ctx context.Context, input, output string) error
	FitVoice(ctx context.Context, input, output string, plan render.FitPlan) error
	Silence(ctx context.Context, seconds float64, output string) error
	ConcatNarration(ctx context.Context, tracks []string, output string) error
}

var _ Media = (*render.Service)(nil)
