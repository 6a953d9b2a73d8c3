package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envOverlay mirrors the TUTORIAL_* environment surface. Pointer fields stay
// nil when the variable is unset so only explicit values override the file.
type envOverlay struct {
	OutputDir   *string  `env:"TUTORIAL_VIDEO_OUT_DIR"`
	Manifest    *string  `env:"TUTORIAL_MANIFEST"`
	Fade        *float64 `env:"TUTORIAL_SCENE_FADE"`
	TrimStart   *float64 `env:"TUTORIAL_SCENE_TRIM_START"`
	FirstTrim   *float64 `env:"TUTORIAL_SCENE_FIRST_TRIM_START"`
	SettlePad   *float64 `env:"TUTORIAL_SCENE_SETTLE_PAD"`
	Transitions []string `env:"TUTORIAL_SCENE_TRANSITIONS" envSeparator:","`

	VoiceProvider   *string  `env:"TUTORIAL_VOICE_PROVIDER"`
	VoiceStrict     *bool    `env:"TUTORIAL_VOICE_STRICT"`
	SceneGap        *float64 `env:"TUTORIAL_SCENE_AUDIO_GAP"`
	ClipFade        *float64 `env:"TUTORIAL_SCENE_AUDIO_CLIP_FADE"`
	MasteringFilter *string  `env:"TUTORIAL_VOICE_MASTERING_FILTER"`

	VoiceName    *string `env:"TUTORIAL_VOICE_NAME"`
	VoiceRate    *string `env:"TUTORIAL_VOICE_RATE"`
	VoicePitch   *string `env:"TUTORIAL_VOICE_PITCH"`
	VoiceVolume  *string `env:"TUTORIAL_VOICE_VOLUME"`
	VoiceRateWPM *int    `env:"TUTORIAL_VOICE_RATE_WPM"`

	ElevenLabsKey        string   `env:"ELEVENLABS_API_KEY"`
	ElevenLabsKeyAlt     string   `env:"TUTORIAL_ELEVENLABS_API_KEY"`
	ElevenLabsVoiceID    *string  `env:"TUTORIAL_ELEVENLABS_VOICE_ID"`
	ElevenLabsModelID    *string  `env:"TUTORIAL_ELEVENLABS_MODEL_ID"`
	ElevenLabsFormat     *string  `env:"TUTORIAL_ELEVENLABS_OUTPUT_FORMAT"`
	ElevenLabsEndpoint   *string  `env:"TUTORIAL_ELEVENLABS_ENDPOINT"`
	ElevenLabsStability  *float64 `env:"TUTORIAL_ELEVENLABS_STABILITY"`
	ElevenLabsSimilarity *float64 `env:"TUTORIAL_ELEVENLABS_SIMILARITY"`
	ElevenLabsStyle      *float64 `env:"TUTORIAL_ELEVENLABS_STYLE"`
	ElevenLabsBoost      *bool    `env:"TUTORIAL_ELEVENLABS_SPEAKER_BOOST"`
	ElevenLabsSpeed      *float64 `env:"TUTORIAL_ELEVENLABS_SPEED"`
	ElevenLabsTimeoutMS  *int     `env:"TUTORIAL_ELEVENLABS_TIMEOUT_MS"`

	CaptionMaxWords *int     `env:"TUTORIAL_CAPTION_MAX_WORDS"`
	CaptionMaxSec   *float64 `env:"TUTORIAL_CAPTION_MAX_SECONDS"`
	CaptionMinSec   *float64 `env:"TUTORIAL_CAPTION_MIN_SECONDS"`

	MetricsTextfile *string `env:"TUTORIAL_METRICS_TEXTFILE"`
	LogLevel        *string `env:"TUTORIAL_LOG_LEVEL"`
}

// LoadEnvFile loads KEY=VALUE pairs from path (".env" when empty) into the
// process environment. Variables already set win; a missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays TUTORIAL_* environment variables onto c. A variable
// whose value cannot be parsed is skipped with a warning reported by
// Validate, leaving the file or default value in place.
func (c *Config) ApplyEnv() error {
	var ov envOverlay
	if err := env.Parse(&ov); err != nil {
		var agg env.AggregateError
		if !errors.As(err, &agg) {
			return fmt.Errorf("parse environment: %w", err)
		}
		for _, fieldErr := range agg.Errors {
			var pe env.ParseError
			if !errors.As(fieldErr, &pe) {
				return fmt.Errorf("parse environment: %w", err)
			}
			c.envWarnings = append(c.envWarnings, dropMalformed(&ov, pe))
		}
	}

	setString(&c.OutputDir, ov.OutputDir)
	setString(&c.Manifest, ov.Manifest)
	setFloat(&c.Timeline.FadeSec, ov.Fade)
	setFloat(&c.Timeline.TrimStartSec, ov.TrimStart)
	setFloat(&c.Timeline.FirstTrimStartSec, ov.FirstTrim)
	setFloat(&c.Timeline.SettlePadSec, ov.SettlePad)
	if list := cleanList(ov.Transitions); len(list) > 0 {
		c.Timeline.Transitions = list
	}

	setString(&c.Voice.Provider, ov.VoiceProvider)
	if ov.VoiceStrict != nil {
		c.Voice.Strict = *ov.VoiceStrict
	}
	setFloat(&c.Voice.SceneGapSec, ov.SceneGap)
	setFloat(&c.Voice.ClipFadeSec, ov.ClipFade)
	setString(&c.Voice.MasteringFilter, ov.MasteringFilter)

	setString(&c.Voice.Edge.Voice, ov.VoiceName)
	setString(&c.Voice.Say.Voice, ov.VoiceName)
	setString(&c.Voice.Espeak.Voice, ov.VoiceName)
	setString(&c.Voice.Edge.Rate, ov.VoiceRate)
	setString(&c.Voice.Edge.Pitch, ov.VoicePitch)
	setString(&c.Voice.Edge.Volume, ov.VoiceVolume)
	setInt(&c.Voice.Say.RateWPM, ov.VoiceRateWPM)
	setInt(&c.Voice.Espeak.RateWPM, ov.VoiceRateWPM)

	el := &c.Voice.ElevenLabs
	if key := firstNonEmpty(ov.ElevenLabsKey, ov.ElevenLabsKeyAlt); key != "" {
		el.APIKey = key
	}
	setString(&el.VoiceID, ov.ElevenLabsVoiceID)
	setString(&el.ModelID, ov.ElevenLabsModelID)
	setString(&el.OutputFormat, ov.ElevenLabsFormat)
	setString(&el.Endpoint, ov.ElevenLabsEndpoint)
	setFloat(&el.Stability, ov.ElevenLabsStability)
	setFloat(&el.SimilarityBoost, ov.ElevenLabsSimilarity)
	setFloat(&el.Style, ov.ElevenLabsStyle)
	if ov.ElevenLabsBoost != nil {
		el.SpeakerBoost = boolPtr(*ov.ElevenLabsBoost)
	}
	setFloat(&el.Speed, ov.ElevenLabsSpeed)
	if ov.ElevenLabsTimeoutMS != nil {
		el.Timeout = time.Duration(*ov.ElevenLabsTimeoutMS) * time.Millisecond
	}

	setInt(&c.Captions.MaxWords, ov.CaptionMaxWords)
	setFloat(&c.Captions.MaxSec, ov.CaptionMaxSec)
	setFloat(&c.Captions.MinSec, ov.CaptionMinSec)

	setString(&c.Metrics.Textfile, ov.MetricsTextfile)
	setString(&c.Log.Level, ov.LogLevel)
	return nil
}

// dropMalformed clears the overlay field named by pe, which env may have
// allocated before parsing failed, and describes the ignored variable.
func dropMalformed(ov *envOverlay, pe env.ParseError) string {
	field, ok := reflect.TypeOf(*ov).FieldByName(pe.Name)
	if !ok {
		return pe.Error()
	}
	reflect.ValueOf(ov).Elem().FieldByName(pe.Name).SetZero()
	name, _, _ := strings.Cut(field.Tag.Get("env"), ",")
	return fmt.Sprintf("ignoring %s=%q: %v", name, os.Getenv(name), pe.Err)
}

func setString(dst *string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = strings.TrimSpace(*v)
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
