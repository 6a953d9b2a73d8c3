package cli

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"scenereel/internal/config"
	"scenereel/internal/logx"
	"scenereel/internal/paths"
	"scenereel/internal/pipeline"
	"scenereel/internal/render"
	"scenereel/internal/tui"
	"scenereel/internal/voice"
	"scenereel/pkg/manifest"
)

var (
	composeManifest      string
	composeVoiceProvider string
	composeStrict        bool
	composeMetricsFile   string
)

func newComposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Build the narrated video from the scene manifest",
		RunE:  runCompose,
	}

	cmd.Flags().StringVar(&composeManifest, "manifest", "", "Scene manifest (default <out-dir>/scene-manifest.json)")
	cmd.Flags().StringVar(&composeVoiceProvider, "voice-provider", "", "Voice provider: auto, none, elevenlabs, edge, say, espeak-ng, espeak")
	cmd.Flags().BoolVar(&composeStrict, "strict", false, "Fail unless the requested voice provider voices every scene")
	cmd.Flags().StringVar(&composeMetricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")

	return cmd
}

func runCompose(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ov := config.Overrides{
		Manifest:      composeManifest,
		VoiceProvider: composeVoiceProvider,
		MetricsFile:   composeMetricsFile,
	}
	if cmd.Flags().Changed("strict") {
		ov.Strict = &composeStrict
	}
	cfg, err := loadConfig(cmd, ov)
	if err != nil {
		return err
	}

	pp, err := paths.Resolve(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	mode := tui.DetectMode(out, noProgress, outputJSON)
	var console io.Writer
	if mode == tui.ModePlain {
		console = cmd.ErrOrStderr()
	}
	logger, closer, logPath, err := logx.New(pp, logx.Options{Level: cfg.Log.Level, Console: console})
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info().Str("out_dir", pp.Root).Str("log", logPath).Msg("scenereel compose")

	runner := render.CmdRunner{}
	svc, err := render.NewService(ctx, pp, cfg, runner, logger)
	if err != nil {
		return err
	}
	bins := svc.Binaries()
	logger.Debug().Str("ffmpeg", bins.FFmpeg).Str("ffprobe", bins.FFprobe).Msg("render binaries")
	builder := pipeline.NewBuilder(cfg, pp, svc, voice.NewRegistry(cfg.Voice, runner, svc), logger)

	var rec pipeline.Record
	switch mode {
	case tui.ModeTUI:
		scenes := sceneRows(pp)
		model := tui.NewComposeModel("Composing "+pp.Rel(pp.OutputFile), pipeline.Stages, pipeline.StageNarration, scenes)
		var runErr error
		err := tui.RunWithWork(ctx, out, model, func(ctx context.Context, send func(tea.Msg)) {
			builder.Reporter = tui.NewPipelineReporter(send, pipeline.StageNarration)
			rec, runErr = builder.Run(ctx)
		})
		if err != nil {
			logger.Warn().Err(err).Msg("compose stopped")
			return fmt.Errorf("%w (log: %s)", err, logPath)
		}
		if runErr != nil {
			return fmt.Errorf("%w (log: %s)", runErr, logPath)
		}
	case tui.ModePlain:
		builder.Reporter = tui.NewPlainReporter(out)
		rec, err = builder.Run(ctx)
		if err != nil {
			return fmt.Errorf("%w (log: %s)", err, logPath)
		}
		fmt.Fprintln(out, renderTable(
			[]string{"PROVIDER", "OK", "HITS", "MISSES", "REASON"},
			attemptRows(rec.AttemptedVoiceProviders),
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
	default:
		rec, err = builder.Run(ctx)
		if err != nil {
			return err
		}
		return writeJSON(cmd, rec)
	}

	fmt.Fprintf(out, "Tutorial video ready: %s (voice=%s, captions=%s, cues=%d, cache=%d hit/%d miss)\n",
		rec.Output, rec.VoiceProvider, rec.Captions.Mode, rec.Captions.CueCount, rec.VoiceCache.Hits, rec.VoiceCache.Misses)
	return nil
}

// sceneRows lists the manifest scenes for the progress table. A manifest that
// cannot be loaded yields no rows; Run reports the actual error.
func sceneRows(pp paths.OutputPaths) []tui.SceneRow {
	m, err := manifest.Load(pp.ManifestFile)
	if err != nil {
		return nil
	}
	rows := make([]tui.SceneRow, len(m.Scenes))
	for i, sc := range m.Scenes {
		rows[i] = tui.SceneRow{Position: i + 1, ID: sc.ID}
	}
	return rows
}

func attemptRows(attempts []voice.Attempt) [][]string {
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, []string{
			a.Provider,
			yesNo(a.OK),
			fmt.Sprint(a.Cache.Hits),
			fmt.Sprint(a.Cache.Misses),
			tui.NonEmptyOrDash(a.Reason),
		})
	}
	return rows
}
