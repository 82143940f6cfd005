// Package main provides the triggerkit CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/EnoughXP/triggerkit/internal/config"
)

// Version is the current triggerkit CLI version.
var Version = "0.3.0"

const (
	envPrefix      = "TRIGGERKIT"
	defaultLogFile = ".triggerkit/triggerkit.log"

	configFlagName      = "config"
	strategyFlagName    = "strategy"
	groupByFlagName     = "group-by"
	groupPrefixFlagName = "group-prefix"
	outFlagName         = "out"
	declFlagName        = "decl"
	noCacheFlagName     = "no-cache"
	verboseFlagName     = "verbose"
	logFileFlagName     = "log-file"
)

var (
	configFileFlag string
	verboseFlag    bool
)

var rootCmd = &cobra.Command{
	Use:     "triggerkit",
	Short:   "Triggerkit - export discovery and virtual module synthesis",
	Long:    `Triggerkit scans your project for exportable functions, classes, and constants and synthesizes a virtual module that re-exports them for a runtime that cannot see your project files. Environment-variable imports ($env/static/public, $env/static/private) are rewritten to plain process.env reads.`,
	Version: Version,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFileFlag, configFlagName, "c", config.DefaultConfigFile, "path to the triggerkit config file")
	pf.BoolVarP(&verboseFlag, verboseFlagName, "v", false, "enable debug logging on stderr")
	pf.String(strategyFlagName, "", "export strategy: individual, grouped, or mixed")
	pf.String(groupByFlagName, "", "grouping key for grouped/mixed: file or folder")
	pf.String(groupPrefixFlagName, "", "namespace prefix for bucket names")
	pf.String(outFlagName, "", "write the synthesized module to this path instead of stdout")
	pf.String(declFlagName, "", "declaration file output path")
	pf.Bool(noCacheFlagName, false, "disable the extraction cache for this run")
	pf.String(logFileFlagName, defaultLogFile, "rotating log file path")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	bindFlags(pf, strategyFlagName, groupByFlagName, groupPrefixFlagName, outFlagName, declFlagName, noCacheFlagName, logFileFlagName)

	rootCmd.AddCommand(generateCmd, scanCmd, watchCmd, cacheCmd, transformCmd)
	cacheCmd.AddCommand(cacheClearCmd, cacheStatsCmd)
}

func bindFlags(fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if err := viper.BindPFlag(name, fs.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// loadConfig builds the effective configuration: YAML file first, then
// flag/env overrides through viper.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configFileFlag)
	if err != nil {
		return cfg, err
	}

	if v := viper.GetString(strategyFlagName); v != "" {
		cfg.ExportStrategy.Mode = v
	}
	if v := viper.GetString(groupByFlagName); v != "" {
		cfg.ExportStrategy.GroupBy = v
	}
	if v := viper.GetString(groupPrefixFlagName); v != "" {
		cfg.ExportStrategy.GroupPrefix = v
	}
	if v := viper.GetString(outFlagName); v != "" {
		cfg.ModuleOutPath = v
	}
	if v := viper.GetString(declFlagName); v != "" {
		cfg.DeclarationPath = v
	}
	if viper.GetBool(noCacheFlagName) {
		cfg.DisableCache = true
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setupLogger wires a rotating file handler plus stderr warnings, the level
// controlled by --verbose.
func setupLogger() *slog.Logger {
	level := slog.LevelWarn
	if verboseFlag {
		level = slog.LevelDebug
	}

	fileSink := &lumberjack.Logger{
		Filename:   viper.GetString(logFileFlagName),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	handler := slog.NewTextHandler(newTeeWriter(os.Stderr, fileSink), &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadDotEnv seeds process env from a local .env file so rewritten
// process.env reads resolve during local generation. Absence is fine.
func loadDotEnv(logger *slog.Logger) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Debug("no .env file loaded", "error", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
