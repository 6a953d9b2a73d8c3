package cli

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"scenereel/internal/captions"
	"scenereel/internal/config"
	"scenereel/internal/paths"
	"scenereel/internal/pipeline"
)

// srtTolerance covers the millisecond rounding of SRT timestamps.
const srtTolerance = 0.0015

type inspectCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

type inspectReport struct {
	Dir    string           `json:"dir"`
	Record *pipeline.Record `json:"record,omitempty"`
	Checks []inspectCheck   `json:"checks"`
}

func (r inspectReport) failures() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.OK {
			out = append(out, c.Name+": "+c.Detail)
		}
	}
	return out
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Verify the artifacts of a finished composition against its metadata",
		RunE:  runInspect,
	}
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, config.Overrides{})
	if err != nil {
		return err
	}
	pp, err := paths.Resolve(cfg)
	if err != nil {
		return err
	}

	report, err := inspectOutput(pp)
	if err != nil {
		return err
	}
	if outputJSON {
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else {
		printInspectReport(cmd, report)
	}
	if failures := report.failures(); len(failures) > 0 {
		return errors.New("composition is inconsistent: " + strings.Join(failures, "; "))
	}
	return nil
}

// inspectOutput cross-checks the metadata record with the files it names.
// Only a missing output directory or record is returned as an error.
func inspectOutput(pp paths.OutputPaths) (inspectReport, error) {
	report := inspectReport{Dir: pp.Root}
	ok, err := paths.DirExists(pp.Root)
	if err != nil {
		return report, err
	}
	if !ok {
		return report, fmt.Errorf("output directory %s does not exist", pp.Root)
	}
	rec, err := pipeline.LoadRecord(pp.MetadataFile)
	if err != nil {
		return report, fmt.Errorf("read metadata (run compose first): %w", err)
	}
	report.Record = &rec

	add := func(name string, ok bool, format string, args ...any) {
		report.Checks = append(report.Checks, inspectCheck{Name: name, OK: ok, Detail: fmt.Sprintf(format, args...)})
	}
	exists := func(name, rel string) {
		found, err := paths.FileExists(pp.ResolveInput(rel))
		switch {
		case err != nil:
			add(name, false, "%v", err)
		case !found:
			add(name, false, "%s is missing", rel)
		default:
			add(name, true, "%s", rel)
		}
	}

	exists("video", rec.Output)
	if rec.Voiceover != nil {
		exists("voiceover", *rec.Voiceover)
	} else {
		add("voiceover", true, "none (voice provider %s)", rec.VoiceProvider)
	}

	cues, err := captions.ReadSRT(pp.ResolveInput(rec.Captions.File))
	if err != nil {
		add("captions", false, "%v", err)
		return report, nil
	}
	add("cue count", len(cues) == rec.Captions.CueCount, "%d in %s, %d recorded", len(cues), rec.Captions.File, rec.Captions.CueCount)
	if len(cues) > 0 {
		end := cues[len(cues)-1].End
		add("final cue", math.Abs(end-rec.DurationSeconds) <= srtTolerance, "ends at %.3fs, video lasts %.3fs", end, rec.DurationSeconds)
	}
	return report, nil
}

func printInspectReport(cmd *cobra.Command, r inspectReport) {
	bold := lipgloss.NewStyle().Bold(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	faint := lipgloss.NewStyle().Faint(true)

	if rec := r.Record; rec != nil {
		cmd.Println(bold.Render(rec.Output) + faint.Render(fmt.Sprintf(" run %s · %s", rec.RunID, rec.GeneratedAt.Format("2006-01-02 15:04:05"))))
		cmd.Println(renderTable(
			[]string{"SCENES", "DURATION", "VOICE", "CAPTIONS", "CUES"},
			[][]string{{
				fmt.Sprint(rec.SceneCount),
				seconds(rec.DurationSeconds),
				rec.VoiceProvider,
				string(rec.Captions.Mode),
				fmt.Sprint(rec.Captions.CueCount),
			}},
			[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight},
		))
		cmd.Println()
	}
	for _, c := range r.Checks {
		mark := green.Render("✓")
		if !c.OK {
			mark = red.Render("✗")
		}
		cmd.Println(mark + " " + bold.Render(c.Name) + faint.Render("  "+c.Detail))
	}
}
