package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scenereel/internal/config"
	"scenereel/internal/paths"
	"scenereel/internal/voice"
)

var (
	cacheProvider  string
	pruneOlderThan time.Duration
	pruneDryRun    bool
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or prune the voice cache",
	}
	cmd.AddCommand(newCacheListCmd())
	cmd.AddCommand(newCacheShowCmd())
	cmd.AddCommand(newCachePruneCmd())
	return cmd
}

func newCacheListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cached narration clips",
		RunE:    runCacheList,
	}
	cmd.Flags().StringVar(&cacheProvider, "provider", "", "Only list entries of this provider")
	return cmd
}

func newCacheShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <key-prefix>",
		Short: "Show one cache entry",
		Args:  cobra.ExactArgs(1),
		RunE:  runCacheShow,
	}
}

func newCachePruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete cached narration clips",
		RunE:  runCachePrune,
	}
	cmd.Flags().StringVar(&cacheProvider, "provider", "", "Only prune entries of this provider")
	cmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "Only prune entries older than this (e.g. 720h)")
	cmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Report what would be removed without deleting")
	return cmd
}

func openStore(cmd *cobra.Command) (*voice.Store, paths.OutputPaths, error) {
	cfg, err := loadConfig(cmd, config.Overrides{})
	if err != nil {
		return nil, paths.OutputPaths{}, err
	}
	pp, err := paths.Resolve(cfg)
	if err != nil {
		return nil, paths.OutputPaths{}, err
	}
	return voice.NewStore(pp.CacheDir), pp, nil
}

func canonicalProviderFlag(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	name, ok := config.CanonicalProvider(value)
	if !ok || name == config.ProviderAuto || name == config.ProviderNone {
		return "", fmt.Errorf("unknown voice provider %q", value)
	}
	return name, nil
}

func runCacheList(cmd *cobra.Command, _ []string) error {
	provider, err := canonicalProviderFlag(cacheProvider)
	if err != nil {
		return err
	}
	store, pp, err := openStore(cmd)
	if err != nil {
		return err
	}
	entries, err := store.List(provider)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(cmd, entries)
	}
	if len(entries) == 0 {
		cmd.Printf("(no cached narration under %s)\n", pp.Rel(store.Root))
		return nil
	}

	rows := make([][]string, 0, len(entries))
	var total int64
	for _, e := range entries {
		rows = append(rows, []string{
			shortKey(e.CacheKey),
			e.Provider,
			seconds(e.Duration),
			yesNo(e.Alignment != nil && !e.Alignment.Empty()),
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			truncate(e.Text, 48),
		})
		total += e.Bytes
	}
	cmd.Println(renderTable(
		[]string{"KEY", "PROVIDER", "SECONDS", "ALIGNED", "CREATED", "TEXT"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	))
	cmd.Printf("%d entries, %s\n", len(entries), formatBytes(total))
	return nil
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	entry, err := store.Find(args[0])
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd, entry)
	}

	cmd.Printf("Key:       %s\n", entry.CacheKey)
	cmd.Printf("Provider:  %s\n", entry.Provider)
	cmd.Printf("Created:   %s\n", entry.CreatedAt.Local().Format(time.RFC3339))
	cmd.Printf("Duration:  %ss\n", seconds(entry.Duration))
	cmd.Printf("Audio:     %s (%s)\n", entry.AudioPath, formatBytes(entry.Bytes))
	cmd.Printf("Aligned:   %s\n", yesNo(entry.Alignment != nil && !entry.Alignment.Empty()))
	cmd.Printf("Text:      %s\n", entry.Text)
	if len(entry.Settings) > 0 {
		cmd.Println("Settings:")
		for _, k := range sortedKeys(entry.Settings) {
			cmd.Printf("  %s: %v\n", k, entry.Settings[k])
		}
	}
	return nil
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	provider, err := canonicalProviderFlag(cacheProvider)
	if err != nil {
		return err
	}
	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	res, err := store.Prune(ctx, voice.PruneOptions{
		Provider:  provider,
		OlderThan: pruneOlderThan,
		DryRun:    pruneDryRun,
	})
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(cmd, struct {
			Removed int   `json:"removed"`
			Bytes   int64 `json:"bytes"`
			DryRun  bool  `json:"dry_run"`
		}{res.Removed, res.Bytes, pruneDryRun})
	}
	verb := "Removed"
	if pruneDryRun {
		verb = "Would remove"
	}
	cmd.Printf("%s %d entries (%s)\n", verb, res.Removed, formatBytes(res.Bytes))
	return nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
