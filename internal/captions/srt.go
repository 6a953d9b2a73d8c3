package captions

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FormatTimestamp renders seconds as an SRT timestamp (HH:MM:SS,mmm).
func FormatTimestamp(seconds float64) string {
	totalMs := int64(math.Round(math.Max(0, seconds) * 1000))
	ms := totalMs % 1000
	totalSec := totalMs / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", totalSec/3600, (totalSec/60)%60, totalSec%60, ms)
}

// EncodeSRT writes cues as numbered SRT entries.
func EncodeSRT(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	for i, c := range cues {
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", i+1, FormatTimestamp(c.Start), FormatTimestamp(c.End), c.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteSRT writes cues to path.
func WriteSRT(path string, cues []Cue) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare captions dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create captions: %w", err)
	}
	if err := EncodeSRT(f, cues); err != nil {
		f.Close()
		return fmt.Errorf("write captions: %w", err)
	}
	return f.Close()
}

// ParseTimestamp is the inverse of FormatTimestamp. A '.' millisecond
// separator is accepted as well.
func ParseTimestamp(value string) (float64, error) {
	value = strings.Replace(strings.TrimSpace(value), ",", ".", 1)
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}

// ParseSRT reads numbered SRT entries back into cues. Multi-line cue text is
// joined with a single space.
func ParseSRT(r io.Reader) ([]Cue, error) {
	var (
		cues  []Cue
		cur   *Cue
		lines []string
		state int // 0 index, 1 timing, 2 text
	)
	flush := func() {
		if cur != nil {
			cur.Text = strings.Join(lines, " ")
			cues = append(cues, *cur)
		}
		cur, lines, state = nil, nil, 0
	}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		switch state {
		case 0:
			if line == "" {
				continue
			}
			if _, err := strconv.Atoi(line); err != nil {
				return nil, fmt.Errorf("line %d: expected cue number, got %q", lineNo, line)
			}
			state = 1
		case 1:
			start, end, ok := strings.Cut(line, "-->")
			if !ok {
				return nil, fmt.Errorf("line %d: expected timing, got %q", lineNo, line)
			}
			s, err := ParseTimestamp(start)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			e, err := ParseTimestamp(end)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cur = &Cue{Start: s, End: e}
			state = 2
		case 2:
			if line == "" {
				flush()
				continue
			}
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if state == 1 {
		return nil, fmt.Errorf("line %d: cue without timing", lineNo)
	}
	flush()
	return cues, nil
}

// ReadSRT parses the SRT file at path.
func ReadSRT(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSRT(f)
}
