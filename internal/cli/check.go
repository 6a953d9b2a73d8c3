package cli

import (
	"errors"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"scenereel/internal/tools"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check ffmpeg and speech engine availability",
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	statuses := tools.Detect(cmd.Context())

	if outputJSON {
		if err := writeJSON(cmd, statuses); err != nil {
			return err
		}
	} else {
		printCheckResult(cmd, statuses)
	}
	return missingRequired(statuses)
}

func printCheckResult(cmd *cobra.Command, statuses []tools.Status) {
	bold := lipgloss.NewStyle().Bold(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	faint := lipgloss.NewStyle().Faint(true)

	for _, st := range statuses {
		if st.Satisfied {
			headline := green.Render("✓") + " " + bold.Render(st.Tool)
			if st.Version != "" {
				headline += " v" + st.Version
			}
			if st.Minimum != "" {
				headline += faint.Render(" (minimum: " + st.Minimum + ")")
			}
			cmd.Println(headline)
			cmd.Println(faint.Render("  " + st.Purpose + " · " + st.Path))
			cmd.Println()
			continue
		}

		mark := yellow.Render("–")
		if st.Required {
			mark = red.Render("✗")
		}
		headline := mark + " " + bold.Render(st.Tool)
		if st.Error != "" {
			headline += faint.Render(" (" + st.Error + ")")
		}
		cmd.Println(headline)
		for _, hint := range st.Hints {
			cmd.Println(faint.Render("  " + hint))
		}
		cmd.Println()
	}
}

func missingRequired(statuses []tools.Status) error {
	var failures []string
	for _, st := range statuses {
		if st.Required && !st.Satisfied {
			failures = append(failures, st.Tool+": "+st.Error)
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return errors.New("required tools unavailable: " + strings.Join(failures, "; "))
}
