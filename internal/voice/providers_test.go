package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"scenereel/internal/config"
	"scenereel/internal/render"
)

func elevenLabsConfig(endpoint string) config.ElevenLabsConfig {
	cfg := config.Default().Voice.ElevenLabs
	cfg.APIKey = "test-key"
	cfg.VoiceID = "voice-x"
	cfg.Endpoint = endpoint
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestElevenLabsSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-x/with-timestamps" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		var body elevenLabsRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Text != "Hi" || body.ModelID != "eleven_turbo_v2_5" || !body.VoiceSettings.UseSpeakerBoost {
			t.Errorf("unexpected body %+v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"audio_base64": base64.StdEncoding.EncodeToString([]byte("1.250")),
			"normalized_alignment": map[string]any{
				"chars":               []string{"H", "i"},
				"char_start_times_ms": []float64{0, 100},
				"char_end_times_ms":   []float64{100, 200},
			},
		})
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "raw.wav")
	el := NewElevenLabs(elevenLabsConfig(srv.URL), &fakeMedia{})
	syn, err := el.Synthesize(context.Background(), "Hi", out)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "1.250" {
		t.Fatalf("expected transcoded audio, got %q (%v)", data, err)
	}
	if syn.Alignment == nil || len(syn.Alignment.Characters) != 2 {
		t.Fatalf("alignment missing: %+v", syn.Alignment)
	}
	if syn.Alignment.Starts[1] != 0.1 || syn.Alignment.Ends[1] != 0.2 {
		t.Fatalf("millisecond timings not converted: %+v", syn.Alignment)
	}
	if syn.Meta["voice_id"] != "voice-x" {
		t.Fatalf("meta = %v", syn.Meta)
	}
	if _, err := os.Stat(strings.TrimSuffix(out, ".wav") + ".elevenlabs.mp3"); !os.IsNotExist(err) {
		t.Fatal("encoded download should be removed")
	}
}

func TestElevenLabsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid_api_key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	el := NewElevenLabs(elevenLabsConfig(srv.URL), &fakeMedia{})
	_, err := el.Synthesize(context.Background(), "Hi", filepath.Join(t.TempDir(), "raw.wav"))
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestElevenLabsRequiresKey(t *testing.T) {
	cfg := elevenLabsConfig("http://127.0.0.1:0")
	cfg.APIKey = ""
	el := NewElevenLabs(cfg, &fakeMedia{})
	if el.Available(context.Background()) {
		t.Fatal("provider without a key must be unavailable")
	}
	if _, err := el.Synthesize(context.Background(), "Hi", "x.wav"); err == nil {
		t.Fatal("expected error without key")
	}
}

// scriptRunner writes "1.500" to the file following outFlag unless reject
// says otherwise.
type scriptRunner struct {
	outFlag string
	reject  func(args []string) bool
	calls   [][]string
}

func (r *scriptRunner) Run(_ context.Context, command string, args []string, _ render.RunOptions) (render.RunResult, error) {
	r.calls = append(r.calls, append([]string{command}, args...))
	if r.reject != nil && r.reject(args) {
		return render.RunResult{Stderr: []byte("voice not found")}, errors.New("exit status 1")
	}
	for i := 0; i < len(args)-1; i++ {
		if args[i] == r.outFlag {
			return render.RunResult{}, os.WriteFile(args[i+1], []byte("1.500"), 0o644)
		}
	}
	return render.RunResult{}, errors.New("no output flag")
}

func TestEdgeSynthesize(t *testing.T) {
	runner := &scriptRunner{outFlag: "--write-media"}
	edge := NewEdge(config.Default().Voice.Edge, runner, &fakeMedia{})
	out := filepath.Join(t.TempDir(), "raw.wav")
	if _, err := edge.Synthesize(context.Background(), "Hello there", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	args := runner.calls[0]
	if args[0] != "edge-tts" || !slices.Contains(args, "--voice=en-US-JennyNeural") || !slices.Contains(args, "--text=Hello there") {
		t.Fatalf("unexpected args %v", args)
	}
	if data, _ := os.ReadFile(out); string(data) != "1.500" {
		t.Fatalf("output = %q", data)
	}
}

func TestSayRetriesWithStockVoice(t *testing.T) {
	runner := &scriptRunner{outFlag: "-o", reject: func(args []string) bool {
		return slices.Contains(args, "Nonexistent")
	}}
	say := NewSay(config.SayConfig{Voice: "Nonexistent", RateWPM: 170}, runner, &fakeMedia{})
	out := filepath.Join(t.TempDir(), "raw.wav")
	if _, err := say.Synthesize(context.Background(), "Hello", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected a retry, got %v", runner.calls)
	}
	if !slices.Contains(runner.calls[1], fallbackSayVoice) {
		t.Fatalf("retry should use the stock voice: %v", runner.calls[1])
	}
}

func TestSayReportsLastError(t *testing.T) {
	runner := &scriptRunner{outFlag: "-o", reject: func([]string) bool { return true }}
	say := NewSay(config.SayConfig{Voice: "Alex", RateWPM: 170}, runner, &fakeMedia{})
	_, err := say.Synthesize(context.Background(), "Hello", filepath.Join(t.TempDir(), "raw.wav"))
	if err == nil || !strings.Contains(err.Error(), "voice not found") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
	if len(runner.calls) != 3 {
		t.Fatalf("expected three variants, got %d", len(runner.calls))
	}
}

func TestEspeakUsesCommandName(t *testing.T) {
	runner := &scriptRunner{outFlag: "-w"}
	es := NewEspeak(config.ProviderEspeakNG, config.EspeakConfig{Voice: "en-us", RateWPM: 150}, runner, &fakeMedia{})
	if es.Name() != "espeak-ng" {
		t.Fatalf("name = %s", es.Name())
	}
	out := filepath.Join(t.TempDir(), "raw.wav")
	if _, err := es.Synthesize(context.Background(), "Hello", out); err != nil {
		t.Fatal(err)
	}
	got := runner.calls[0]
	want := []string{"espeak-ng", "-s", "150", "-v", "en-us", "-f"}
	if !slices.Equal(got[:len(want)], want) {
		t.Fatalf("args = %v", got)
	}
}

// optionRunner fails like a getopt parser would when a bare argument looks
// like a flag, and records the text handed over in a -f file.
type optionRunner struct {
	scriptRunner
	texts []string
}

func (r *optionRunner) Run(ctx context.Context, command string, args []string, opts render.RunOptions) (render.RunResult, error) {
	for i, a := range args {
		if a == "-f" && i+1 < len(args) {
			data, err := os.ReadFile(args[i+1])
			if err != nil {
				return render.RunResult{}, err
			}
			r.texts = append(r.texts, string(data))
		}
		if strings.HasPrefix(a, "-") && !strings.HasPrefix(a, "--") && len(a) > 2 {
			return render.RunResult{Stderr: []byte("unknown option " + a)}, errors.New("exit status 1")
		}
	}
	return r.scriptRunner.Run(ctx, command, args, opts)
}

func TestEspeakPassesTextThroughFile(t *testing.T) {
	runner := &optionRunner{scriptRunner: scriptRunner{outFlag: "-w"}}
	es := NewEspeak(config.ProviderEspeak, config.EspeakConfig{Voice: "en", RateWPM: 150}, runner, &fakeMedia{})
	out := filepath.Join(t.TempDir(), "raw.wav")
	text := "-verbose mode stays off"
	if _, err := es.Synthesize(context.Background(), text, out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(runner.texts) != 1 || strings.TrimSpace(runner.texts[0]) != text {
		t.Fatalf("text file held %q", runner.texts)
	}
	if slices.Contains(runner.calls[0], text) {
		t.Fatalf("text must not appear as an argument: %v", runner.calls[0])
	}
	if matches, _ := filepath.Glob(filepath.Join(filepath.Dir(out), "*.txt")); len(matches) != 0 {
		t.Fatalf("text file left behind: %v", matches)
	}
}

func TestEdgeJoinsDashValuesToFlags(t *testing.T) {
	runner := &scriptRunner{outFlag: "--write-media"}
	cfg := config.Default().Voice.Edge
	cfg.Rate = "-10%"
	edge := NewEdge(cfg, runner, &fakeMedia{})
	if _, err := edge.Synthesize(context.Background(), "- first item", filepath.Join(t.TempDir(), "raw.wav")); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	args := runner.calls[0]
	for _, want := range []string{"--rate=-10%", "--text=- first item"} {
		if !slices.Contains(args, want) {
			t.Errorf("args %v missing %q", args, want)
		}
	}
	for _, a := range args {
		if a == "-10%" || a == "- first item" {
			t.Errorf("value %q passed as a bare argument", a)
		}
	}
}

func TestRegistryAvailabilityUsesToolProbe(t *testing.T) {
	orig := toolAvailable
	toolAvailable = func(_ context.Context, name string) bool { return name == "espeak" }
	t.Cleanup(func() { toolAvailable = orig })

	cfg := config.Default().Voice
	reg := NewRegistry(cfg, &scriptRunner{}, &fakeMedia{})
	avail := reg.Availability(context.Background())
	want := map[string]bool{"elevenlabs": false, "edge": false, "say": false, "espeak-ng": false, "espeak": true}
	for name, ok := range want {
		if avail[name] != ok {
			t.Errorf("%s available = %v want %v", name, avail[name], ok)
		}
	}
	if !slices.Equal(reg.Names(), config.VoiceProviders) {
		t.Fatalf("names = %v", reg.Names())
	}
}
