package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validCfg returns a fully-valid Config for mutation testing.
func validCfg() *Config {
	return &Config{
		Project: ProjectConfig{Dir: "/tmp/projects", FeatureLevel: 2, LoadConcurrency: 4},
		Undo:    UndoConfig{MergeEdits: true},
		Watch:   WatchConfig{Enabled: true, BaseDir: "."},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty dir", func(c *Config) { c.Project.Dir = "" }, "project.dir"},
		{"feature level zero", func(c *Config) { c.Project.FeatureLevel = 0 }, "project.feature_level"},
		{"feature level too high", func(c *Config) { c.Project.FeatureLevel = 4 }, "project.feature_level"},
		{"no concurrency", func(c *Config) { c.Project.LoadConcurrency = 0 }, "project.load_concurrency"},
		{"watch without base", func(c *Config) { c.Watch.BaseDir = "" }, "watch.base_dir"},
		{"watch disabled without base", func(c *Config) { c.Watch = WatchConfig{} }, ""},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validCfg()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Project.FeatureLevel)
	assert.Equal(t, 4, cfg.Project.LoadConcurrency)
	assert.True(t, cfg.Undo.MergeEdits)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Contains(t, cfg.Project.Dir, ".scenecore")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SCENECORE_LOGGING_LEVEL", "debug")
	t.Setenv("SCENECORE_PROJECT_FEATURE_LEVEL", "1")
	t.Setenv("SCENECORE_WATCH_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 1, cfg.Project.FeatureLevel)
	assert.False(t, cfg.Watch.Enabled)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "scenecore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
project:
  dir: /data/scenes
  feature_level: 2
undo:
  merge_edits: false
logging:
  format: json
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/scenes", cfg.Project.Dir)
	assert.Equal(t, 2, cfg.Project.FeatureLevel)
	assert.False(t, cfg.Undo.MergeEdits)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFile_Errors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project:\n  feature_level: 9\n"), 0o644))
	_, err = LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating config")
}
