package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"scenereel/internal/config"
	"scenereel/internal/paths"
	"scenereel/internal/tools"
)

// Binaries holds resolved executable paths.
type Binaries struct {
	FFmpeg  string
	FFprobe string
}

// Service runs every ffmpeg/ffprobe step of a composition. Calls are
// blocking and never overlap.
type Service struct {
	Paths  paths.OutputPaths
	Config config.Config
	Runner Runner

	logger  zerolog.Logger
	bins    Binaries
	stepSeq int
}

// NewService resolves ffmpeg and ffprobe and binds a renderer to an output tree.
func NewService(ctx context.Context, pp paths.OutputPaths, cfg config.Config, runner Runner, logger zerolog.Logger) (*Service, error) {
	resolved, err := tools.Require(ctx, "ffmpeg")
	if err != nil {
		return nil, err
	}
	bins := Binaries{FFmpeg: resolved["ffmpeg"], FFprobe: resolved["ffprobe"]}
	if bins.FFmpeg == "" || bins.FFprobe == "" {
		return nil, errors.New("ffmpeg/ffprobe paths not resolved")
	}
	return New(pp, cfg, runner, logger, bins), nil
}

// New binds a renderer to explicit binaries.
func New(pp paths.OutputPaths, cfg config.Config, runner Runner, logger zerolog.Logger, bins Binaries) *Service {
	if runner == nil {
		runner = CmdRunner{}
	}
	if bins.FFmpeg == "" {
		bins.FFmpeg = "ffmpeg"
	}
	if bins.FFprobe == "" {
		bins.FFprobe = "ffprobe"
	}
	return &Service{
		Paths:  pp,
		Config: cfg,
		Runner: runner,
		logger: logger.With().Str("component", "render").Logger(),
		bins:   bins,
	}
}

// Binaries returns the resolved executable paths.
func (s *Service) Binaries() Binaries {
	if s == nil {
		return Binaries{}
	}
	return s.bins
}

// ffmpeg runs one ffmpeg step, teeing its stderr into a numbered per-step
// log file. On failure the partial output (the last argument) is removed.
func (s *Service) ffmpeg(ctx context.Context, step string, args []string) error {
	if s == nil {
		return errors.New("render service is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.stepSeq++
	logPath := filepath.Join(s.Paths.StepLogsDir, fmt.Sprintf("%03d-%s.log", s.stepSeq, step))
	var stderr io.Writer
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err == nil {
		if f, err := os.Create(logPath); err == nil {
			defer f.Close()
			fmt.Fprintf(f, "$ %s %s\n", s.bins.FFmpeg, strings.Join(args, " "))
			stderr = f
		}
	}

	s.logger.Debug().Str("step", step).Strs("args", args).Msg("ffmpeg")
	res, err := s.Runner.Run(ctx, s.bins.FFmpeg, args, RunOptions{Dir: s.Paths.Root, Stderr: stderr})
	if err != nil {
		if len(args) > 0 {
			_ = os.Remove(args[len(args)-1])
		}
		return fmt.Errorf("ffmpeg %s failed: %w%s", step, err, stderrTail(res.Stderr))
	}
	return nil
}

// Duration probes a media file's container duration in seconds.
func (s *Service) Duration(ctx context.Context, path string) (float64, error) {
	if s == nil {
		return 0, errors.New("render service is nil")
	}
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	res, err := s.Runner.Run(ctx, s.bins.FFprobe, args, RunOptions{})
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s failed: %w%s", filepath.Base(path), err, stderrTail(res.Stderr))
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(res.Stdout)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", filepath.Base(path), err)
	}
	return duration, nil
}

func stderrTail(stderr []byte) string {
	text := strings.TrimSpace(string(stderr))
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return " (stderr: " + strings.Join(lines, " | ") + ")"
}

// fixed3 renders seconds with millisecond precision, as ffmpeg filter
// arguments expect.
func fixed3(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("prepare %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
