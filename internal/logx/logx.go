package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"scenereel/internal/paths"
)

// Options controls where log output goes besides the run's log file.
type Options struct {
	Level string
	// Console, when non-nil, receives human-readable output in addition to
	// the JSON file.
	Console io.Writer
}

// New creates a logger that writes JSON lines to a timestamped file inside
// the output's logs directory. The returned closer should be closed when
// logging is no longer needed.
func New(p paths.OutputPaths, opts Options) (zerolog.Logger, io.Closer, string, error) {
	if err := os.MkdirAll(p.LogsDir, 0o755); err != nil {
		return zerolog.Nop(), nil, "", fmt.Errorf("ensure logs directory: %w", err)
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(p.LogsDir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, "", fmt.Errorf("open log file: %w", err)
	}

	var out io.Writer = file
	if opts.Console != nil {
		console := zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: "15:04:05"}
		out = zerolog.MultiLevelWriter(file, console)
	}

	logger := zerolog.New(out).With().Timestamp().Logger().Level(ParseLevel(opts.Level))
	return logger, file, filePath, nil
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(value string) zerolog.Level {
	level, err := zerolog.ParseLevel(value)
	if err != nil || value == "" {
		return zerolog.InfoLevel
	}
	return level
}
