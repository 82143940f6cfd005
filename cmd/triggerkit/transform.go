package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EnoughXP/triggerkit/internal/envimport"
)

var transformCmd = &cobra.Command{
	Use:   "transform <file>",
	Short: "Print a file with env imports rewritten to process.env reads",
	Long: `Rewrite imports from $env/static/public and $env/static/private into
plain process.env destructuring and print the result. The file on disk is
never modified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		out, err := envimport.New().Transform(cmd.Context(), content)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}
