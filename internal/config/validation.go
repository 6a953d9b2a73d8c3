package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

var transitionPattern = regexp.MustCompile(`^[a-z][a-z0-9]*$`)

// Validate returns every finding for the configuration. It expects
// ApplyDefaults to have run.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	for _, w := range c.envWarnings {
		results = append(results, ValidationResult{Level: "warning", Message: w})
	}
	results = append(results, c.validateVoice()...)
	results = append(results, c.validateTimeline()...)
	results = append(results, c.validateVideo()...)
	return results
}

// Err folds error-level findings into a single error, or nil.
func (c Config) Err() error {
	var msgs []string
	for _, r := range c.Validate() {
		if r.Level == "error" {
			msgs = append(msgs, r.Message)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.New("config validation failed: " + strings.Join(msgs, "; "))
}

func (c Config) validateVoice() []ValidationResult {
	var results []ValidationResult
	provider, ok := CanonicalProvider(c.Voice.Provider)
	if !ok {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("voice.provider %q is not one of auto, none, %s", c.Voice.Provider, strings.Join(VoiceProviders, ", ")),
		})
	}
	if c.Voice.Strict && provider == ProviderNone {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: "voice.strict requires a voice provider other than none",
		})
	}
	if provider == ProviderElevenLabs && strings.TrimSpace(c.Voice.ElevenLabs.APIKey) == "" {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: "voice.provider is elevenlabs but ELEVENLABS_API_KEY is not set",
		})
	}
	if strings.TrimSpace(c.Voice.MasteringFilter) == "" {
		results = append(results, ValidationResult{Level: "error", Message: "voice.mastering_filter is empty"})
	}
	return results
}

func (c Config) validateTimeline() []ValidationResult {
	var results []ValidationResult
	for i, name := range c.Timeline.Transitions {
		if !transitionPattern.MatchString(name) {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("timeline.transitions[%d]: %q is not a valid xfade transition name", i, name),
			})
		}
	}
	return results
}

func (c Config) validateVideo() []ValidationResult {
	var results []ValidationResult
	if (c.Video.Width == 0) != (c.Video.Height == 0) {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: "video.width and video.height should be set together; the manifest size is used otherwise",
		})
	}
	if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("video size %dx%d must use even dimensions for yuv420p", c.Video.Width, c.Video.Height),
		})
	}
	return results
}
