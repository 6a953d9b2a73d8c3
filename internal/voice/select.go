package voice

import (
	"encoding/json"
	"fmt"
	"slices"

	"scenereel/internal/config"
)

// Plan is the ordered list of providers a run will attempt.
type Plan struct {
	Requested    string          `json:"requested"`
	Strict       bool            `json:"strict"`
	Candidates   []string        `json:"candidates"`
	Availability map[string]bool `json:"availability"`
}

// Select orders candidates. "auto" takes every available provider in
// priority order and "none" takes nothing. A pinned provider goes first even
// when its probe failed, followed by the available rest; strict mode keeps
// only the pinned one.
func Select(requested string, strict bool, order []string, availability map[string]bool) Plan {
	name, _ := config.CanonicalProvider(requested)
	plan := Plan{Requested: name, Strict: strict, Availability: availability}

	var available []string
	for _, p := range order {
		if availability[p] {
			available = append(available, p)
		}
	}

	switch name {
	case config.ProviderNone:
		return plan
	case config.ProviderAuto:
		plan.Candidates = available
		return plan
	}

	if !slices.Contains(order, name) {
		return plan
	}
	plan.Candidates = []string{name}
	if strict {
		return plan
	}
	for _, p := range available {
		if p != name {
			plan.Candidates = append(plan.Candidates, p)
		}
	}
	return plan
}

// Pinned reports whether a specific provider was requested.
func (p Plan) Pinned() bool {
	return p.Requested != config.ProviderAuto && p.Requested != config.ProviderNone
}

// StrictError reports that strict mode could not be honoured.
type StrictError struct {
	Requested string
	Produced  string
	Attempts  []Attempt
}

func (e *StrictError) Error() string {
	attempts, _ := json.MarshalIndent(e.Attempts, "", "  ")
	if e.Produced == config.ProviderNone {
		return fmt.Sprintf("strict voice mode failed: no provider succeeded (requested %q)\nattempts: %s", e.Requested, attempts)
	}
	return fmt.Sprintf("strict voice mode failed: requested %q, produced %q\nattempts: %s", e.Requested, e.Produced, attempts)
}

// CheckStrict enforces strict mode against a finished narration result.
func CheckStrict(plan Plan, res Result) error {
	if !plan.Strict {
		return nil
	}
	if res.Provider == config.ProviderNone || (plan.Pinned() && res.Provider != plan.Requested) {
		return &StrictError{Requested: plan.Requested, Produced: res.Provider, Attempts: res.Attempts}
	}
	return nil
}
