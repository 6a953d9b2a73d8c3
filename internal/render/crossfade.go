package render

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"scenereel/internal/config"
)

// TransitionSequence assigns a transition to each of the n-1 joins,
// cycling through names round-robin.
func TransitionSequence(names []string, joins int) []string {
	if joins <= 0 {
		return nil
	}
	if len(names) == 0 {
		names = config.DefaultTransitions
	}
	out := make([]string, joins)
	for i := range out {
		out[i] = names[i%len(names)]
	}
	return out
}

// BuildCrossfadeGraph chains xfade filters across the inputs. Join i starts
// at the cumulative duration of the preceding clips minus i fades so that
// consecutive clips overlap by exactly one fade.
func BuildCrossfadeGraph(durations []float64, fade float64, transitions []string) (string, string, error) {
	if len(durations) < 2 {
		return "", "", errors.New("crossfade requires at least two clips")
	}
	seq := TransitionSequence(transitions, len(durations)-1)

	var b strings.Builder
	prev := "[0:v]"
	sum := 0.0
	for i := 1; i < len(durations); i++ {
		sum += durations[i-1]
		offset := sum - float64(i)*fade
		if offset < 0 {
			offset = 0
		}
		label := "[v" + strconv.Itoa(i) + "]"
		if i > 1 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s[%d:v]xfade=transition=%s:duration=%s:offset=%s%s",
			prev, i, seq[i-1], fixed3(fade), fixed3(offset), label)
		prev = label
	}
	return b.String(), prev, nil
}

// Crossfade joins normalized clips into one video. A single clip is copied
// through unchanged.
func (s *Service) Crossfade(ctx context.Context, inputs []string, durations []float64, output string) error {
	if len(inputs) == 0 {
		return errors.New("no clips to join")
	}
	if len(inputs) != len(durations) {
		return fmt.Errorf("have %d clips but %d durations", len(inputs), len(durations))
	}
	if len(inputs) == 1 {
		return copyFile(inputs[0], output)
	}

	graph, last, err := BuildCrossfadeGraph(durations, s.Config.Timeline.FadeSec, s.Config.Timeline.Transitions)
	if err != nil {
		return err
	}

	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	fps := s.Config.Video.FPS
	if fps <= 0 {
		fps = 30
	}
	args = append(args,
		"-filter_complex", graph,
		"-map", last,
		"-r", strconv.Itoa(fps),
		"-pix_fmt", "yuv420p",
	)
	args = append(args, s.videoEncodeArgs()...)
	args = append(args, output)

	if err := s.ffmpeg(ctx, "crossfade", args); err != nil {
		return err
	}
	s.logger.Info().Int("clips", len(inputs)).Str("output", s.Paths.Rel(output)).Msg("video joined")
	return nil
}
