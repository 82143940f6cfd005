package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EnoughXP/triggerkit/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Extraction cache maintenance",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached extraction results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := cache.Open(cfg.CacheDir)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := cache.Open(cfg.CacheDir)
		if err != nil {
			return err
		}
		defer c.Close()

		stats, err := c.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cached files: %d\n", stats.TotalEntries)
		return nil
	},
}
