package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"scenereel/internal/config"
	"scenereel/internal/render"
	"scenereel/internal/voice"
)

var providersVoice string

func newProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Show voice provider availability and the fallback order",
		RunE:  runProviders,
	}
	cmd.Flags().StringVar(&providersVoice, "voice-provider", "", "Preview the plan for this provider request")
	return cmd
}

type providerReport struct {
	Plan      voice.Plan       `json:"plan"`
	Providers []providerStatus `json:"providers"`
}

type providerStatus struct {
	Name      string         `json:"name"`
	Available bool           `json:"available"`
	Candidate int            `json:"candidate,omitempty"`
	Settings  map[string]any `json:"settings"`
}

func runProviders(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, config.Overrides{VoiceProvider: providersVoice})
	if err != nil {
		return err
	}

	// Probing never synthesizes, so no media service is needed.
	reg := voice.NewRegistry(cfg.Voice, render.CmdRunner{}, nil)
	availability := reg.Availability(cmd.Context())
	plan := voice.Select(cfg.Voice.Provider, cfg.Voice.Strict, reg.Names(), availability)

	report := providerReport{Plan: plan}
	for _, name := range reg.Names() {
		p, _ := reg.Get(name)
		st := providerStatus{Name: name, Available: availability[name], Settings: p.Settings()}
		for i, c := range plan.Candidates {
			if c == name {
				st.Candidate = i + 1
			}
		}
		report.Providers = append(report.Providers, st)
	}

	if outputJSON {
		return writeJSON(cmd, report)
	}
	printProviders(cmd, report)
	return nil
}

func printProviders(cmd *cobra.Command, report providerReport) {
	bold := lipgloss.NewStyle().Bold(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	faint := lipgloss.NewStyle().Faint(true)

	for _, p := range report.Providers {
		mark := red.Render("✗")
		if p.Available {
			mark = green.Render("✓")
		}
		line := mark + " " + bold.Render(p.Name)
		if p.Candidate > 0 {
			line += faint.Render(fmt.Sprintf(" (attempt %d)", p.Candidate))
		}
		cmd.Println(line)
	}
	cmd.Println()

	order := "(none, video will be silent)"
	if len(report.Plan.Candidates) > 0 {
		order = strings.Join(report.Plan.Candidates, " → ")
	}
	cmd.Println(bold.Render("Requested:") + " " + report.Plan.Requested)
	cmd.Println(bold.Render("Strict:") + " " + yesNo(report.Plan.Strict))
	cmd.Println(bold.Render("Order:") + " " + order)
}
