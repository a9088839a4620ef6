package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Engine.MaxParallelJobs)
	assert.Equal(t, 8, cfg.Engine.MaxParallelFiles)
	assert.Equal(t, 100, cfg.Anthropic.MaxInflight)
	assert.Equal(t, 120, cfg.Anthropic.TimeoutSecs)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, filepath.IsAbs(cfg.Output.Directory), "output directory is resolved to absolute form")
}

func TestLoadEnvironmentContract(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OUTPUT_DIRECTORY", "/var/audit/output")
	t.Setenv("CHECKLISTS_DIR", "/etc/audit/checklists")
	t.Setenv("LLM_API_KEY", "sk-test-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/audit/output", cfg.Output.Directory)
	assert.Equal(t, "/etc/audit/checklists", cfg.Checklists.Dir)
	assert.Equal(t, "sk-test-123", cfg.Anthropic.Key)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
engine:
  max_parallel_jobs: 2
  tariff_line_checks: true
anthropic:
  validator_model: claude-sonnet-4-5-20250929
log:
  level: debug
`), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.MaxParallelJobs)
	assert.True(t, cfg.Engine.TariffLineChecks)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.ValidatorModel)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset values keep their defaults.
	assert.Equal(t, 8, cfg.Engine.MaxParallelFiles)
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
