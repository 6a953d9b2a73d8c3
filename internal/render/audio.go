package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WriteConcatList writes an ffmpeg concat demuxer list for the given files.
func WriteConcatList(listPath string, files []string) error {
	if err := os.MkdirAll(filepath.Dir(listPath), 0o755); err != nil {
		return fmt.Errorf("create concat list dir: %w", err)
	}
	var b strings.Builder
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = f
		}
		escaped := strings.ReplaceAll(abs, "'", "'\\''")
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	return os.WriteFile(listPath, []byte(b.String()), 0o644)
}

// ConcatNarration joins per-scene fitted tracks into one narration file.
// Stream copy through the concat demuxer is tried first; if that fails the
// tracks are re-encoded through the concat filter.
func (s *Service) ConcatNarration(ctx context.Context, tracks []string, output string) error {
	switch len(tracks) {
	case 0:
		return errors.New("no narration tracks to join")
	case 1:
		return copyFile(tracks[0], output)
	}

	listPath := filepath.Join(s.Paths.WorkDir, "narration-concat.txt")
	if err := WriteConcatList(listPath, tracks); err != nil {
		return err
	}
	copyArgs := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", output}
	err := s.ffmpeg(ctx, "narration-concat", copyArgs)
	if err == nil {
		return nil
	}
	s.logger.Warn().Err(err).Msg("stream-copy narration concat failed, re-encoding")

	args := []string{"-y"}
	var graph strings.Builder
	for i, t := range tracks {
		args = append(args, "-i", t)
		fmt.Fprintf(&graph, "[%d:a]", i)
	}
	graph.WriteString("concat=n=" + strconv.Itoa(len(tracks)) + ":v=0:a=1[a]")
	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "[a]",
		"-ar", s.sampleRate(),
		"-ac", "1",
		output,
	)
	return s.ffmpeg(ctx, "narration-concat-filter", args)
}
