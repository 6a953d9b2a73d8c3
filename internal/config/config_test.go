package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(Overrides{ConfigFile: "scenereel.yaml"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Timeline.FadeSec != 0.35 {
		t.Errorf("fade = %v, want 0.35", cfg.Timeline.FadeSec)
	}
	if cfg.Timeline.FirstTrimStartSec != 0.95 {
		t.Errorf("first trim = %v, want 0.95", cfg.Timeline.FirstTrimStartSec)
	}
	if cfg.Voice.Provider != ProviderAuto {
		t.Errorf("provider = %q, want auto", cfg.Voice.Provider)
	}
	if len(cfg.Timeline.Transitions) != len(DefaultTransitions) {
		t.Errorf("transitions = %v", cfg.Timeline.Transitions)
	}
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "scenereel.yaml")
	data := "timeline:\n  fade_seconds: 0.5\n  settle_pad_seconds: 0\nvoice:\n  provider: 11labs\n  elevenlabs:\n    timeout: 30s\ncaptions:\n  max_words: 50\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(Overrides{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Timeline.FadeSec != 0.5 {
		t.Errorf("fade = %v, want 0.5", cfg.Timeline.FadeSec)
	}
	if cfg.Timeline.SettlePadSec != 0 {
		t.Errorf("explicit zero settle pad overwritten: %v", cfg.Timeline.SettlePadSec)
	}
	if cfg.Timeline.TrimStartSec != 0.18 {
		t.Errorf("trim = %v, want default 0.18", cfg.Timeline.TrimStartSec)
	}
	if cfg.Voice.Provider != ProviderElevenLabs {
		t.Errorf("provider alias not resolved: %q", cfg.Voice.Provider)
	}
	if cfg.Voice.ElevenLabs.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.Voice.ElevenLabs.Timeout)
	}
	if cfg.Captions.MaxWords != 20 {
		t.Errorf("max words = %d, want clamp to 20", cfg.Captions.MaxWords)
	}
}

func TestLoadEnvironmentAndOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TUTORIAL_SCENE_FADE", "5")
	t.Setenv("TUTORIAL_SCENE_TRIM_START", "1.1")
	t.Setenv("TUTORIAL_SCENE_TRANSITIONS", "wipeleft, ,dissolve")
	t.Setenv("TUTORIAL_VOICE_PROVIDER", "say")
	t.Setenv("TUTORIAL_VOICE_NAME", "Alex")
	t.Setenv("TUTORIAL_ELEVENLABS_TIMEOUT_MS", "500")
	t.Setenv("TUTORIAL_ELEVENLABS_API_KEY", "secret")

	strict := true
	cfg, err := Load(Overrides{VoiceProvider: "edge", Strict: &strict})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Timeline.FadeSec != 1.2 {
		t.Errorf("fade = %v, want clamp to 1.2", cfg.Timeline.FadeSec)
	}
	if cfg.Timeline.FirstTrimStartSec != 1.1 {
		t.Errorf("first trim = %v, want raised to trim 1.1", cfg.Timeline.FirstTrimStartSec)
	}
	if got := strings.Join(cfg.Timeline.Transitions, ","); got != "wipeleft,dissolve" {
		t.Errorf("transitions = %q", got)
	}
	if cfg.Voice.Provider != ProviderEdge {
		t.Errorf("flag override lost: provider = %q", cfg.Voice.Provider)
	}
	if !cfg.Voice.Strict {
		t.Error("expected strict from override")
	}
	if cfg.Voice.Say.Voice != "Alex" || cfg.Voice.Edge.Voice != "Alex" {
		t.Errorf("voice name not applied: say=%q edge=%q", cfg.Voice.Say.Voice, cfg.Voice.Edge.Voice)
	}
	if cfg.Voice.ElevenLabs.Timeout != 2*time.Second {
		t.Errorf("timeout = %v, want clamp to 2s", cfg.Voice.ElevenLabs.Timeout)
	}
	if cfg.Voice.ElevenLabs.APIKey != "secret" {
		t.Error("api key not loaded from environment")
	}
}

func TestLoadSkipsMalformedEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TUTORIAL_SCENE_FADE", "abc")
	t.Setenv("TUTORIAL_VOICE_STRICT", "maybe")
	t.Setenv("TUTORIAL_SCENE_AUDIO_GAP", "0.4")

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("malformed variables must not fail Load: %v", err)
	}
	if cfg.Timeline.FadeSec != Default().Timeline.FadeSec {
		t.Errorf("fade = %v, want default %v", cfg.Timeline.FadeSec, Default().Timeline.FadeSec)
	}
	if cfg.Voice.Strict {
		t.Error("strict must keep its default")
	}
	if cfg.Voice.SceneGapSec != 0.4 {
		t.Errorf("well-formed variables still apply, gap = %v", cfg.Voice.SceneGapSec)
	}

	var warnings []string
	for _, r := range cfg.Validate() {
		if r.Level == "warning" {
			warnings = append(warnings, r.Message)
		}
	}
	joined := strings.Join(warnings, "\n")
	for _, want := range []string{`TUTORIAL_SCENE_FADE="abc"`, `TUTORIAL_VOICE_STRICT="maybe"`} {
		if !strings.Contains(joined, want) {
			t.Errorf("warnings %q missing %s", warnings, want)
		}
	}
	if err := cfg.Err(); err != nil {
		t.Errorf("malformed variables are warnings, got %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TUTORIAL_SCENE_AUDIO_GAP=0.3\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("TUTORIAL_SCENE_AUDIO_GAP") })

	cfg, err := Load(Overrides{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Voice.SceneGapSec != 0.3 {
		t.Errorf("gap = %v, want 0.3 from .env", cfg.Voice.SceneGapSec)
	}
}

func TestMarshalOmitsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Voice.ElevenLabs.APIKey = "do-not-print"
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if strings.Contains(string(data), "do-not-print") {
		t.Fatal("api key leaked into marshalled config")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults"},
		{name: "unknown provider", mutate: func(c *Config) { c.Voice.Provider = "festival" }, wantErr: "festival"},
		{name: "strict none", mutate: func(c *Config) { c.Voice.Provider = "none"; c.Voice.Strict = true }, wantErr: "voice.strict"},
		{name: "bad transition", mutate: func(c *Config) { c.Timeline.Transitions = []string{"fade", "Wipe Left"} }, wantErr: "transitions[1]"},
		{name: "odd width", mutate: func(c *Config) { c.Video.Width = 1281; c.Video.Height = 720 }, wantErr: "even"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			err := cfg.Err()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("got %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestCanonicalProvider(t *testing.T) {
	cases := map[string]string{
		"11labs":      ProviderElevenLabs,
		" ElevenLabs": ProviderElevenLabs,
		"":            ProviderAuto,
		"espeak-ng":   ProviderEspeakNG,
	}
	for in, want := range cases {
		got, ok := CanonicalProvider(in)
		if !ok || got != want {
			t.Errorf("CanonicalProvider(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := CanonicalProvider("festival"); ok {
		t.Error("expected unknown provider to be rejected")
	}
}
