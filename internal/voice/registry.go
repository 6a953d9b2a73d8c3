package voice

import (
	"context"

	"scenereel/internal/config"
	"scenereel/internal/render"
)

// Registry holds the concrete providers keyed by canonical name.
type Registry struct {
	byName map[string]Provider
	order  []string
}

// NewRegistry builds every known provider from configuration.
func NewRegistry(cfg config.VoiceConfig, runner render.Runner, media Media) *Registry {
	return NewRegistryOf(
		NewElevenLabs(cfg.ElevenLabs, media),
		NewEdge(cfg.Edge, runner, media),
		NewSay(cfg.Say, runner, media),
		NewEspeak(config.ProviderEspeakNG, cfg.Espeak, runner, media),
		NewEspeak(config.ProviderEspeak, cfg.Espeak, runner, media),
	)
}

// NewRegistryOf builds a registry from explicit providers. Their order is
// the auto-selection priority.
func NewRegistryOf(providers ...Provider) *Registry {
	r := &Registry{byName: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if _, dup := r.byName[p.Name()]; dup {
			continue
		}
		r.byName[p.Name()] = p
		r.order = append(r.order, p.Name())
	}
	return r
}

// Get returns the named provider.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Names returns provider names in priority order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Availability probes every provider once.
func (r *Registry) Availability(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(r.order))
	for _, name := range r.order {
		out[name] = r.byName[name].Available(ctx)
	}
	return out
}
