package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"scenereel/internal/config"
	"scenereel/internal/render"
	"scenereel/internal/tools"
)

// toolAvailable is a seam for tests.
var toolAvailable = tools.Available

// commandError folds a failed command's stderr into its error.
func commandError(name string, res render.RunResult, err error) error {
	msg := strings.TrimSpace(string(res.Stderr))
	if msg == "" {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return fmt.Errorf("%s failed: %w: %s", name, err, msg)
}

// Edge drives the edge-tts CLI, which writes mp3.
type Edge struct {
	cfg    config.EdgeConfig
	runner render.Runner
	media  Media
}

func NewEdge(cfg config.EdgeConfig, runner render.Runner, media Media) *Edge {
	return &Edge{cfg: cfg, runner: runner, media: media}
}

func (e *Edge) Name() string { return config.ProviderEdge }

func (e *Edge) Available(ctx context.Context) bool { return toolAvailable(ctx, "edge-tts") }

func (e *Edge) Settings() map[string]any {
	return map[string]any{
		"voice":  e.cfg.Voice,
		"rate":   e.cfg.Rate,
		"pitch":  e.cfg.Pitch,
		"volume": e.cfg.Volume,
	}
}

func (e *Edge) Synthesize(ctx context.Context, text, out string) (Synthesis, error) {
	media := strings.TrimSuffix(out, ".wav") + ".edge.mp3"
	defer os.Remove(media)

	// Values may start with "-" ("-10%", "- item"), so they are joined to
	// their flags rather than passed as separate arguments.
	args := []string{
		"--voice=" + e.cfg.Voice,
		"--rate=" + e.cfg.Rate,
		"--pitch=" + e.cfg.Pitch,
		"--volume=" + e.cfg.Volume,
		"--text=" + text,
		"--write-media", media,
	}
	res, err := e.runner.Run(ctx, "edge-tts", args, render.RunOptions{})
	if err != nil {
		return Synthesis{}, commandError("edge-tts", res, err)
	}
	if err := e.media.Transcode(ctx, media, out); err != nil {
		return Synthesis{}, fmt.Errorf("edge-tts produced invalid audio: %w", err)
	}
	return Synthesis{}, nil
}

// Say drives the macOS say command. Voices come and go between OS releases,
// so it retries with a stock voice and then the system default.
type Say struct {
	cfg    config.SayConfig
	runner render.Runner
	media  Media
}

func NewSay(cfg config.SayConfig, runner render.Runner, media Media) *Say {
	return &Say{cfg: cfg, runner: runner, media: media}
}

const fallbackSayVoice = "Samantha"

func (s *Say) Name() string { return config.ProviderSay }

func (s *Say) Available(ctx context.Context) bool { return toolAvailable(ctx, "say") }

func (s *Say) Settings() map[string]any {
	return map[string]any{
		"voice":    s.cfg.Voice,
		"rate_wpm": s.cfg.RateWPM,
	}
}

func (s *Say) Synthesize(ctx context.Context, text, out string) (Synthesis, error) {
	base := strings.TrimSuffix(out, ".wav")
	textFile := base + ".say.txt"
	aiff := base + ".aiff"
	if err := os.WriteFile(textFile, []byte(text+"\n"), 0o644); err != nil {
		return Synthesis{}, fmt.Errorf("write say input: %w", err)
	}
	defer os.Remove(textFile)
	defer os.Remove(aiff)

	rate := strconv.Itoa(s.cfg.RateWPM)
	common := []string{"-r", rate, "-f", textFile, "-o", aiff}
	variants := [][]string{
		append([]string{"-v", s.cfg.Voice}, common...),
		append([]string{"-v", fallbackSayVoice}, common...),
		common,
	}
	if s.cfg.Voice == "" || s.cfg.Voice == fallbackSayVoice {
		variants = variants[1:]
	}

	lastErr := errors.New("say failed")
	for _, args := range variants {
		_ = os.Remove(aiff)
		res, err := s.runner.Run(ctx, "say", args, render.RunOptions{})
		if err != nil {
			lastErr = commandError("say", res, err)
			continue
		}
		if err := s.media.Transcode(ctx, aiff, out); err != nil {
			lastErr = err
			continue
		}
		d, err := s.media.Duration(ctx, out)
		if err != nil {
			lastErr = err
			continue
		}
		if d > render.MinVoiceSeconds {
			return Synthesis{}, nil
		}
		lastErr = errors.New("say produced empty audio")
	}
	_ = os.Remove(out)
	return Synthesis{}, lastErr
}

// Espeak drives espeak-ng or classic espeak, which share a command line.
type Espeak struct {
	command string
	cfg     config.EspeakConfig
	runner  render.Runner
	media   Media
}

// NewEspeak binds to command, either "espeak-ng" or "espeak".
func NewEspeak(command string, cfg config.EspeakConfig, runner render.Runner, media Media) *Espeak {
	return &Espeak{command: command, cfg: cfg, runner: runner, media: media}
}

func (e *Espeak) Name() string { return e.command }

func (e *Espeak) Available(ctx context.Context) bool { return toolAvailable(ctx, e.command) }

func (e *Espeak) Settings() map[string]any {
	return map[string]any{
		"voice":    e.cfg.Voice,
		"rate_wpm": e.cfg.RateWPM,
	}
}

func (e *Espeak) Synthesize(ctx context.Context, text, out string) (Synthesis, error) {
	base := strings.TrimSuffix(out, ".wav")
	native := base + "." + e.command + ".wav"
	textFile := base + "." + e.command + ".txt"
	if err := os.WriteFile(textFile, []byte(text+"\n"), 0o644); err != nil {
		return Synthesis{}, fmt.Errorf("write %s input: %w", e.command, err)
	}
	defer os.Remove(textFile)
	defer os.Remove(native)

	args := []string{"-s", strconv.Itoa(e.cfg.RateWPM), "-v", e.cfg.Voice, "-f", textFile, "-w", native}
	res, err := e.runner.Run(ctx, e.command, args, render.RunOptions{Dir: filepath.Dir(out)})
	if err != nil {
		return Synthesis{}, commandError(e.command, res, err)
	}
	if err := e.media.Transcode(ctx, native, out); err != nil {
		return Synthesis{}, fmt.Errorf("%s produced invalid audio: %w", e.command, err)
	}
	return Synthesis{}, nil
}
