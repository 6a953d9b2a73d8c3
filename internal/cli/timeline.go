package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"scenereel/internal/config"
	"scenereel/internal/project"
	"scenereel/internal/render"
	"scenereel/internal/tui"
)

var timelineDurations []float64

func newTimelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Preview segments, audio slots and transitions for clip durations",
		RunE:  runTimeline,
	}
	cmd.Flags().Float64SliceVar(&timelineDurations, "durations", nil, "Normalized clip durations in seconds, e.g. 6,5,4")
	return cmd
}

// timelineRow is one scene of a preview.
type timelineRow struct {
	Scene      int     `json:"scene"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Duration   float64 `json:"duration"`
	Slot       float64 `json:"slot"`
	Transition string  `json:"transition_out,omitempty"`
}

type timelinePreview struct {
	Fade  float64       `json:"fade_seconds"`
	Total float64       `json:"total_seconds"`
	Rows  []timelineRow `json:"scenes"`
}

func buildTimelinePreview(durations []float64, t config.TimelineConfig) (timelinePreview, error) {
	segments, err := project.BuildTimeline(durations, t.FadeSec)
	if err != nil {
		return timelinePreview{}, err
	}
	transitions := render.TransitionSequence(t.Transitions, len(segments)-1)

	preview := timelinePreview{Fade: t.FadeSec, Total: project.TotalDuration(segments)}
	for i, seg := range segments {
		row := timelineRow{
			Scene:    i + 1,
			Start:    seg.Start,
			End:      seg.End,
			Duration: seg.Duration,
			Slot:     project.SlotDuration(segments, i, t.FadeSec),
		}
		if i < len(transitions) {
			row.Transition = transitions[i]
		}
		preview.Rows = append(preview.Rows, row)
	}
	return preview, nil
}

func runTimeline(cmd *cobra.Command, _ []string) error {
	if len(timelineDurations) == 0 {
		return errors.New("--durations is required")
	}
	cfg, err := loadConfig(cmd, config.Overrides{})
	if err != nil {
		return err
	}
	preview, err := buildTimelinePreview(timelineDurations, cfg.Timeline)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd, preview)
	}

	rows := make([][]string, 0, len(preview.Rows))
	for _, r := range preview.Rows {
		rows = append(rows, []string{
			fmt.Sprintf("%02d", r.Scene),
			seconds(r.Start),
			seconds(r.End),
			seconds(r.Duration),
			seconds(r.Slot),
			tui.NonEmptyOrDash(r.Transition),
		})
	}
	cmd.Println(renderTable(
		[]string{"SCENE", "START", "END", "CLIP", "SLOT", "TRANSITION"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	cmd.Printf("fade %.2fs, total %.3fs\n", preview.Fade, preview.Total)
	return nil
}
