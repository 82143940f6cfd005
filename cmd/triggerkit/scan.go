package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EnoughXP/triggerkit/internal/extract"
	"github.com/EnoughXP/triggerkit/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List candidate files and their export counts",
	Long: `Walk the configured include directories and list every candidate file
with the number of exports and env-var imports it contributes. No artifacts
are written.`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, _ []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	scanner := scan.New(cfg.IncludePatterns, cfg.ExcludePatterns, logger)
	candidates, err := scanner.Scan(cfg.IncludeDirs)
	if err != nil {
		return err
	}

	ex := extract.New()
	totalExports := 0
	for _, path := range candidates {
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read file", "path", path, "error", err)
			continue
		}
		res, err := ex.Extract(context.Background(), content, path)
		if err != nil {
			logger.Warn("cannot parse file", "path", path, "error", err)
			continue
		}
		totalExports += len(res.Items)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d exports\t%d env vars\n", path, len(res.Items), len(res.EnvVars))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d files, %d exports\n", len(candidates), totalExports)
	return nil
}
