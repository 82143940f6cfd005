package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EnoughXP/triggerkit/internal/engine"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one full scan and synthesize the virtual module",
	Long: `Run one full scan pass: discover exportable declarations under the
configured include directories, then synthesize the virtual module and its
declaration file.

The module text goes to stdout unless --out is given. The declaration file
is fully regenerated at the configured declarationPath on every run.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, _ []string) error {
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

	if cfg.ModuleOutPath != "" {
		if err := os.WriteFile(cfg.ModuleOutPath, []byte(eng.ModuleText()), 0644); err != nil {
			return fmt.Errorf("writing module to %s: %w", cfg.ModuleOutPath, err)
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), eng.ModuleText())
	}

	fmt.Fprintf(cmd.ErrOrStderr(),
		"scanned %d files (%d cached), %d exports, %d env vars, %d duplicates dropped\n",
		summary.FilesScanned, summary.CacheHits, summary.Exports, summary.EnvVars, summary.DuplicatesDropped)
	return nil
}
