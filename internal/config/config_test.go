package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, []string{"src"}, cfg.IncludeDirs)
	assert.Equal(t, ModeIndividual, cfg.ExportStrategy.Mode)
	assert.Equal(t, "virtual:triggerkit", cfg.VirtualModuleID)
	assert.True(t, cfg.IncludeKinds.Functions)
	assert.True(t, cfg.IncludeKinds.Classes)
	assert.True(t, cfg.IncludeKinds.Constants)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triggerkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
includeDirs:
  - src/lib/server
exportStrategy:
  mode: grouped
  groupBy: folder
  groupPrefix: tk
declarationPath: src/triggerkit.d.ts
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/lib/server"}, cfg.IncludeDirs)
	assert.Equal(t, ModeGrouped, cfg.ExportStrategy.Mode)
	assert.Equal(t, GroupByFolder, cfg.ExportStrategy.GroupBy)
	assert.Equal(t, "tk", cfg.ExportStrategy.GroupPrefix)
	assert.Equal(t, "src/triggerkit.d.ts", cfg.DeclarationPath)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().IncludePatterns, cfg.IncludePatterns)
	assert.Equal(t, Default().VirtualModuleID, cfg.VirtualModuleID)
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triggerkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("exportStrategy:\n  mode: exotic\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exotic")
}

func TestValidateFillsEmptyEnums(t *testing.T) {
	cfg := Config{VirtualModuleID: "virtual:x"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ModeIndividual, cfg.ExportStrategy.Mode)
	assert.Equal(t, GroupByFile, cfg.ExportStrategy.GroupBy)
}
