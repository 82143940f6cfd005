// Package config defines the engine configuration and its YAML loading.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Export strategy modes.
const (
	ModeIndividual = "individual"
	ModeGrouped    = "grouped"
	ModeMixed      = "mixed"
)

// Grouping keys for grouped/mixed strategies.
const (
	GroupByFile   = "file"
	GroupByFolder = "folder"
)

// Strategy selects how discovered exports are organized in the synthesized
// module.
type Strategy struct {
	Mode        string `yaml:"mode"`
	GroupBy     string `yaml:"groupBy"`
	GroupPrefix string `yaml:"groupPrefix"`
}

// IncludeKinds toggles which declaration kinds contribute to the aggregate
// export set. Filtering happens at aggregation time so cached extraction
// results stay valid when these flip.
type IncludeKinds struct {
	Functions bool `yaml:"functions"`
	Classes   bool `yaml:"classes"`
	Constants bool `yaml:"constants"`
}

// Config is the host-supplied engine configuration.
type Config struct {
	IncludeDirs     []string     `yaml:"includeDirs"`
	IncludePatterns []string     `yaml:"includePatterns"`
	ExcludePatterns []string     `yaml:"excludePatterns"`
	ExportStrategy  Strategy     `yaml:"exportStrategy"`
	IncludeKinds    IncludeKinds `yaml:"includeKinds"`
	VirtualModuleID string       `yaml:"virtualModuleIdentifier"`
	DeclarationPath string       `yaml:"declarationPath"`
	ModuleOutPath   string       `yaml:"moduleOutPath"`
	CacheDir        string       `yaml:"cacheDir"`
	DisableCache    bool         `yaml:"disableCache"`
}

// DefaultConfigFile is the conventional config file name.
const DefaultConfigFile = "triggerkit.yaml"

// Default returns the stock configuration for a SvelteKit-style project
// layout.
func Default() Config {
	return Config{
		IncludeDirs:     []string{"src"},
		IncludePatterns: []string{"**/*.{ts,tsx,js,jsx,mjs,cjs}"},
		ExcludePatterns: []string{
			"**/node_modules/**",
			"**/.svelte-kit/**",
			"**/dist/**",
			"**/build/**",
			"**/*.test.*",
			"**/*.spec.*",
			"**/*.d.ts",
		},
		ExportStrategy:  Strategy{Mode: ModeIndividual, GroupBy: GroupByFile},
		IncludeKinds:    IncludeKinds{Functions: true, Classes: true, Constants: true},
		VirtualModuleID: "virtual:triggerkit",
		DeclarationPath: "triggerkit.d.ts",
		CacheDir:        ".",
	}
}

// Load reads a YAML config file over the defaults. A missing file returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	switch c.ExportStrategy.Mode {
	case ModeIndividual, ModeGrouped, ModeMixed:
	case "":
		c.ExportStrategy.Mode = ModeIndividual
	default:
		return fmt.Errorf("unknown export strategy mode %q", c.ExportStrategy.Mode)
	}

	switch c.ExportStrategy.GroupBy {
	case GroupByFile, GroupByFolder:
	case "":
		c.ExportStrategy.GroupBy = GroupByFile
	default:
		return fmt.Errorf("unknown groupBy %q", c.ExportStrategy.GroupBy)
	}

	if c.VirtualModuleID == "" {
		return fmt.Errorf("virtualModuleIdentifier must not be empty")
	}
	return nil
}
