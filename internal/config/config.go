package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures every tunable of a composition run. It is built once at
// startup and passed by value to each component.
type Config struct {
	Version   int            `yaml:"version"`
	OutputDir string         `yaml:"output_dir"`
	Manifest  string         `yaml:"manifest,omitempty"`
	Video     VideoConfig    `yaml:"video"`
	Timeline  TimelineConfig `yaml:"timeline"`
	Voice     VoiceConfig    `yaml:"voice"`
	Captions  CaptionsConfig `yaml:"captions"`
	Audio     AudioConfig    `yaml:"audio"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	Log       LogConfig      `yaml:"log"`

	// envWarnings lists environment variables ApplyEnv could not parse.
	envWarnings []string
}

// VideoConfig contains output geometry and encoder settings. Zero width or
// height means "use the manifest's declared size".
type VideoConfig struct {
	Width  int    `yaml:"width,omitempty"`
	Height int    `yaml:"height,omitempty"`
	FPS    int    `yaml:"fps"`
	Codec  string `yaml:"codec"`
	Preset string `yaml:"preset"`
	CRF    int    `yaml:"crf"`
}

// TimelineConfig controls clip trimming and cross-fade transitions.
type TimelineConfig struct {
	FadeSec           float64  `yaml:"fade_seconds"`
	TrimStartSec      float64  `yaml:"trim_start_seconds"`
	FirstTrimStartSec float64  `yaml:"first_trim_start_seconds"`
	SettlePadSec      float64  `yaml:"settle_pad_seconds"`
	Transitions       []string `yaml:"transitions"`
}

// VoiceConfig selects and tunes narration synthesis.
type VoiceConfig struct {
	Provider        string           `yaml:"provider"`
	Strict          bool             `yaml:"strict"`
	SceneGapSec     float64          `yaml:"scene_gap_seconds"`
	ClipFadeSec     float64          `yaml:"clip_fade_seconds"`
	MinAudioSec     float64          `yaml:"min_audio_seconds"`
	MasteringFilter string           `yaml:"mastering_filter"`
	ElevenLabs      ElevenLabsConfig `yaml:"elevenlabs"`
	Edge            EdgeConfig       `yaml:"edge"`
	Say             SayConfig        `yaml:"say"`
	Espeak          EspeakConfig     `yaml:"espeak"`
}

// ElevenLabsConfig configures the cloud text-to-speech provider.
type ElevenLabsConfig struct {
	APIKey          string        `yaml:"-" json:"-"`
	VoiceID         string        `yaml:"voice_id"`
	ModelID         string        `yaml:"model_id"`
	OutputFormat    string        `yaml:"output_format"`
	Endpoint        string        `yaml:"endpoint"`
	Stability       float64       `yaml:"stability"`
	SimilarityBoost float64       `yaml:"similarity_boost"`
	Style           float64       `yaml:"style"`
	SpeakerBoost    *bool         `yaml:"speaker_boost,omitempty"`
	Speed           float64       `yaml:"speed"`
	Timeout         time.Duration `yaml:"timeout"`
}

// SpeakerBoostValue returns the effective speaker boost flag applying defaults.
func (c ElevenLabsConfig) SpeakerBoostValue() bool {
	if c.SpeakerBoost == nil {
		return true
	}
	return *c.SpeakerBoost
}

// EdgeConfig configures the edge-tts neural CLI.
type EdgeConfig struct {
	Voice  string `yaml:"voice"`
	Rate   string `yaml:"rate"`
	Pitch  string `yaml:"pitch"`
	Volume string `yaml:"volume"`
}

// SayConfig configures the macOS say command.
type SayConfig struct {
	Voice   string `yaml:"voice"`
	RateWPM int    `yaml:"rate_wpm"`
}

// EspeakConfig configures espeak-ng / espeak.
type EspeakConfig struct {
	Voice   string `yaml:"voice"`
	RateWPM int    `yaml:"rate_wpm"`
}

// CaptionsConfig bounds caption cue chunking.
type CaptionsConfig struct {
	MaxWords      int     `yaml:"max_words"`
	MaxSec        float64 `yaml:"max_seconds"`
	MinSec        float64 `yaml:"min_seconds"`
	MinBreakWords int     `yaml:"min_break_words"`
	Language      string  `yaml:"language"`
}

// AudioConfig describes the muxed narration stream.
type AudioConfig struct {
	Codec       string `yaml:"codec"`
	BitrateKbps int    `yaml:"bitrate_kbps"`
	SampleRate  int    `yaml:"sample_rate"`
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// LogConfig controls log verbosity.
type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	ProviderAuto       = "auto"
	ProviderNone       = "none"
	ProviderElevenLabs = "elevenlabs"
	ProviderEdge       = "edge"
	ProviderSay        = "say"
	ProviderEspeakNG   = "espeak-ng"
	ProviderEspeak     = "espeak"
)

// VoiceProviders lists the concrete providers in auto-selection priority order.
var VoiceProviders = []string{ProviderElevenLabs, ProviderEdge, ProviderSay, ProviderEspeakNG, ProviderEspeak}

var providerAliases = map[string]string{
	"":                 ProviderAuto,
	ProviderAuto:       ProviderAuto,
	ProviderNone:       ProviderNone,
	ProviderElevenLabs: ProviderElevenLabs,
	ProviderEdge:       ProviderEdge,
	ProviderSay:        ProviderSay,
	ProviderEspeakNG:   ProviderEspeakNG,
	ProviderEspeak:     ProviderEspeak,
	"11labs":           ProviderElevenLabs,
	"edge-tts":         ProviderEdge,
	"off":              ProviderNone,
}

// CanonicalProvider resolves aliases and case. Unknown names are returned
// lower-cased with ok=false.
func CanonicalProvider(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := providerAliases[key]; ok {
		return canonical, true
	}
	return key, false
}

// DefaultTransitions is the round-robin xfade style list.
var DefaultTransitions = []string{"fade", "smoothleft", "fadeblack", "wipeleft", "circleopen", "smoothup", "slideright", "fade"}

// DefaultMasteringFilter band-limits, compresses and loudness-normalizes narration.
const DefaultMasteringFilter = "highpass=f=65,lowpass=f=12000,acompressor=threshold=-18dB:ratio=2.6:attack=18:release=220:makeup=2,loudnorm=I=-16:TP=-1.5:LRA=7"

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version:   1,
		OutputDir: "artifacts/tutorial-video",
		Video: VideoConfig{
			FPS:    30,
			Codec:  "libx264",
			Preset: "veryfast",
			CRF:    20,
		},
		Timeline: TimelineConfig{
			FadeSec:           0.35,
			TrimStartSec:      0.18,
			FirstTrimStartSec: 0.95,
			SettlePadSec:      0.06,
			Transitions:       append([]string(nil), DefaultTransitions...),
		},
		Voice: VoiceConfig{
			Provider:        ProviderAuto,
			SceneGapSec:     0.12,
			ClipFadeSec:     0.09,
			MinAudioSec:     0.08,
			MasteringFilter: DefaultMasteringFilter,
			ElevenLabs: ElevenLabsConfig{
				VoiceID:         "pqHfZKP75CvOlQylNhV4",
				ModelID:         "eleven_turbo_v2_5",
				OutputFormat:    "mp3_44100_128",
				Endpoint:        "https://api.elevenlabs.io",
				Stability:       0.4,
				SimilarityBoost: 0.7,
				Style:           0.25,
				SpeakerBoost:    boolPtr(true),
				Speed:           1.0,
				Timeout:         90 * time.Second,
			},
			Edge: EdgeConfig{
				Voice:  "en-US-JennyNeural",
				Rate:   "+0%",
				Pitch:  "+0Hz",
				Volume: "+0%",
			},
			Say:    SayConfig{Voice: "Samantha", RateWPM: 168},
			Espeak: EspeakConfig{Voice: "en-us+f3", RateWPM: 160},
		},
		Captions: CaptionsConfig{
			MaxWords:      8,
			MaxSec:        2.6,
			MinSec:        0.6,
			MinBreakWords: 3,
			Language:      "eng",
		},
		Audio: AudioConfig{
			Codec:       "aac",
			BitrateKbps: 192,
			SampleRate:  48000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Overrides holds CLI flag values that take priority over the file and environment.
type Overrides struct {
	ConfigFile    string
	EnvFile       string
	OutputDir     string
	Manifest      string
	VoiceProvider string
	Strict        *bool
	MetricsFile   string
	LogLevel      string
}

// Load builds the effective configuration.
// Priority: CLI overrides > environment > .env file > YAML file > defaults.
func Load(ov Overrides) (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(ov.ConfigFile); path != "" {
		contents, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(contents, &cfg); err != nil {
				return Config{}, fmt.Errorf("unmarshal config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := LoadEnvFile(ov.EnvFile); err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyOverrides(ov)
	cfg.ApplyDefaults()
	return cfg, nil
}

func (c *Config) applyOverrides(ov Overrides) {
	if v := strings.TrimSpace(ov.OutputDir); v != "" {
		c.OutputDir = v
	}
	if v := strings.TrimSpace(ov.Manifest); v != "" {
		c.Manifest = v
	}
	if v := strings.TrimSpace(ov.VoiceProvider); v != "" {
		c.Voice.Provider = v
	}
	if ov.Strict != nil {
		c.Voice.Strict = *ov.Strict
	}
	if v := strings.TrimSpace(ov.MetricsFile); v != "" {
		c.Metrics.Textfile = v
	}
	if v := strings.TrimSpace(ov.LogLevel); v != "" {
		c.Log.Level = v
	}
}

// ApplyDefaults fills empty fields and clamps numeric knobs into range.
// Explicit zeros are honoured wherever zero lies inside the valid range.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		c.OutputDir = defaults.OutputDir
	}
	if c.Video.FPS <= 0 {
		c.Video.FPS = defaults.Video.FPS
	}
	if c.Video.Codec == "" {
		c.Video.Codec = defaults.Video.Codec
	}
	if c.Video.Preset == "" {
		c.Video.Preset = defaults.Video.Preset
	}
	if c.Video.CRF <= 0 {
		c.Video.CRF = defaults.Video.CRF
	}

	t := &c.Timeline
	t.FadeSec = clamp(t.FadeSec, 0.05, 1.2)
	t.TrimStartSec = clamp(t.TrimStartSec, 0, 1.2)
	t.FirstTrimStartSec = clamp(t.FirstTrimStartSec, t.TrimStartSec, 2.5)
	t.SettlePadSec = clamp(t.SettlePadSec, 0, 0.3)
	t.Transitions = cleanList(t.Transitions)
	if len(t.Transitions) == 0 {
		t.Transitions = append([]string(nil), DefaultTransitions...)
	}

	v := &c.Voice
	v.Provider, _ = CanonicalProvider(v.Provider)
	v.SceneGapSec = clamp(v.SceneGapSec, 0, 0.8)
	v.ClipFadeSec = clamp(v.ClipFadeSec, 0.02, 0.4)
	if v.MinAudioSec <= 0 {
		v.MinAudioSec = defaults.Voice.MinAudioSec
	}
	if strings.TrimSpace(v.MasteringFilter) == "" {
		v.MasteringFilter = defaults.Voice.MasteringFilter
	}

	el := &v.ElevenLabs
	if el.VoiceID == "" {
		el.VoiceID = defaults.Voice.ElevenLabs.VoiceID
	}
	if el.ModelID == "" {
		el.ModelID = defaults.Voice.ElevenLabs.ModelID
	}
	if el.OutputFormat == "" {
		el.OutputFormat = defaults.Voice.ElevenLabs.OutputFormat
	}
	el.Endpoint = strings.TrimRight(strings.TrimSpace(el.Endpoint), "/")
	if el.Endpoint == "" {
		el.Endpoint = defaults.Voice.ElevenLabs.Endpoint
	}
	el.Stability = clamp(el.Stability, 0, 1)
	el.SimilarityBoost = clamp(el.SimilarityBoost, 0, 1)
	el.Style = clamp(el.Style, 0, 1)
	el.Speed = clamp(el.Speed, 0.7, 1.2)
	if el.SpeakerBoost == nil {
		el.SpeakerBoost = boolPtr(true)
	}
	switch {
	case el.Timeout <= 0:
		el.Timeout = defaults.Voice.ElevenLabs.Timeout
	case el.Timeout < 2*time.Second:
		el.Timeout = 2 * time.Second
	case el.Timeout > 180*time.Second:
		el.Timeout = 180 * time.Second
	}

	if v.Edge.Voice == "" {
		v.Edge.Voice = defaults.Voice.Edge.Voice
	}
	if v.Edge.Rate == "" {
		v.Edge.Rate = defaults.Voice.Edge.Rate
	}
	if v.Edge.Pitch == "" {
		v.Edge.Pitch = defaults.Voice.Edge.Pitch
	}
	if v.Edge.Volume == "" {
		v.Edge.Volume = defaults.Voice.Edge.Volume
	}
	if v.Say.Voice == "" {
		v.Say.Voice = defaults.Voice.Say.Voice
	}
	if v.Say.RateWPM <= 0 {
		v.Say.RateWPM = defaults.Voice.Say.RateWPM
	}
	if v.Espeak.Voice == "" {
		v.Espeak.Voice = defaults.Voice.Espeak.Voice
	}
	if v.Espeak.RateWPM <= 0 {
		v.Espeak.RateWPM = defaults.Voice.Espeak.RateWPM
	}

	cp := &c.Captions
	if cp.MaxWords == 0 {
		cp.MaxWords = defaults.Captions.MaxWords
	}
	cp.MaxWords = clampInt(cp.MaxWords, 3, 20)
	if cp.MaxSec == 0 {
		cp.MaxSec = defaults.Captions.MaxSec
	}
	cp.MaxSec = clamp(cp.MaxSec, 0.8, 6)
	if cp.MinSec == 0 {
		cp.MinSec = defaults.Captions.MinSec
	}
	cp.MinSec = clamp(cp.MinSec, 0.2, 2.5)
	if cp.MinBreakWords == 0 {
		cp.MinBreakWords = defaults.Captions.MinBreakWords
	}
	cp.MinBreakWords = clampInt(cp.MinBreakWords, 1, cp.MaxWords)
	if cp.Language == "" {
		cp.Language = defaults.Captions.Language
	}

	if c.Audio.Codec == "" {
		c.Audio.Codec = defaults.Audio.Codec
	}
	if c.Audio.BitrateKbps <= 0 {
		c.Audio.BitrateKbps = defaults.Audio.BitrateKbps
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = defaults.Audio.SampleRate
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func boolPtr(v bool) *bool {
	return &v
}
