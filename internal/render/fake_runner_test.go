package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"scenereel/internal/config"
	"scenereel/internal/paths"
)

type call struct {
	command string
	args    []string
}

type fakeRunner struct {
	calls     []call
	durations map[string]string
	fail      func(args []string) bool
}

func (f *fakeRunner) Run(_ context.Context, command string, args []string, _ RunOptions) (RunResult, error) {
	f.calls = append(f.calls, call{command: command, args: append([]string(nil), args...)})
	if command == "ffprobe" {
		target := filepath.Base(args[len(args)-1])
		if d, ok := f.durations[target]; ok {
			return RunResult{Stdout: []byte(d + "\n")}, nil
		}
		return RunResult{Stderr: []byte("no such file")}, errors.New("exit status 1")
	}
	if f.fail != nil && f.fail(args) {
		return RunResult{Stderr: []byte("line1\nboom")}, errors.New("exit status 1")
	}
	out := args[len(args)-1]
	_ = os.MkdirAll(filepath.Dir(out), 0o755)
	_ = os.WriteFile(out, []byte("media"), 0o644)
	return RunResult{}, nil
}

func (f *fakeRunner) ffmpegCalls() []call {
	var out []call
	for _, c := range f.calls {
		if c.command == "ffmpeg" {
			out = append(out, c)
		}
	}
	return out
}

func newTestService(t *testing.T, runner Runner) *Service {
	t.Helper()
	pp, err := paths.Resolve(config.Config{OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("resolve paths: %v", err)
	}
	if err := pp.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	if err := pp.ResetWorkDir(); err != nil {
		t.Fatalf("reset work dir: %v", err)
	}
	cfg := config.Default()
	return New(pp, cfg, runner, zerolog.Nop(), Binaries{FFmpeg: "ffmpeg", FFprobe: "ffprobe"})
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func joined(args []string) string {
	return strings.Join(args, " ")
}
