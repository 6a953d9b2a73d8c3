package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	outDir     string
	configFile string
	envFile    string
	logLevel   string
	outputJSON bool
	noProgress bool
)

// Execute runs the root cobra command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	root := newRootCmd()
	root.SetOut(os.Stdout)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scenereel",
		Short:         "Compose narrated tutorial videos from recorded scene clips",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&outDir, "out-dir", "", "Output directory (default artifacts/tutorial-video)")
	cmd.PersistentFlags().StringVar(&configFile, "config", "scenereel.yaml", "Path to YAML configuration")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to .env file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable interactive progress output")

	cmd.AddCommand(newComposeCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newProvidersCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newTimelineCmd())
	cmd.AddCommand(newInspectCmd())

	return cmd
}
