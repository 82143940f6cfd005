package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EnoughXP/triggerkit/internal/engine"
	"github.com/EnoughXP/triggerkit/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch include directories and regenerate on change",
	Long: `Run an initial generation, then watch the include directories and
invalidate changed files as they are saved. The module and declaration file
are regenerated only when the aggregated export set actually changed.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	logger := setupLogger()
	loadDotEnv(logger)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, engine.WithLogger(logger))
	if err != nil {
		return err
	}
	defer eng.Close()

	summary, err := eng.Generate(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "initial pass: %d files, %d exports; watching...\n",
		summary.FilesScanned, summary.Exports)

	w, err := watch.New(watch.Config{
		Dirs:   cfg.IncludeDirs,
		Logger: logger,
		OnChange: func(ctx context.Context, paths []string) {
			changed := false
			for _, p := range paths {
				ok, err := eng.Invalidate(ctx, p)
				if err != nil {
					logger.Warn("invalidate failed", "path", p, "error", err)
					continue
				}
				changed = changed || ok
			}
			if changed {
				fmt.Fprintf(cmd.ErrOrStderr(), "virtual module regenerated (%s)\n", eng.ModuleDigest()[:12])
			}
		},
	})
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Run(cmd.Context())
}
