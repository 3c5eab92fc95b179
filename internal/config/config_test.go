package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"COVIDTRACK_DATA_DIR", "COVIDTRACK_LOG_LEVEL", "COVIDTRACK_DEBUG", "COVIDTRACK_THEME"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, "patientDetails.csv", cfg.Files.Patients)
	assert.Equal(t, "locations.txt", cfg.Files.Locations)
	assert.Equal(t, "symptoms.csv", cfg.Files.Symptoms)
	assert.False(t, cfg.Logging.DebugMode)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.DataDir = "/srv/clinic"
	cfg.Logging.DebugMode = true
	cfg.Logging.Categories = map[string]bool{"ui": false}
	cfg.UI.Theme = "light"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: data\nfiles:\n  patients: people.csv\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "people.csv", cfg.Files.Patients)
	assert.Equal(t, "locations.txt", cfg.Files.Locations)
	assert.Equal(t, filepath.Join("data", "people.csv"), cfg.PatientsPath())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unclosed\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COVIDTRACK_DATA_DIR", "/env/data")
	t.Setenv("COVIDTRACK_LOG_LEVEL", "debug")
	t.Setenv("COVIDTRACK_DEBUG", "true")
	t.Setenv("COVIDTRACK_THEME", "light")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/env/data", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.DebugMode)
	assert.Equal(t, "light", cfg.UI.Theme)
	assert.Equal(t, filepath.Join("/env/data", "symptoms.csv"), cfg.SymptomsPath())
}

func TestEnvOverrides_BadDebugValueIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("COVIDTRACK_DEBUG", "maybe")

	cfg := DefaultConfig()
	cfg.Logging.DebugMode = true
	cfg.applyEnvOverrides()
	assert.True(t, cfg.Logging.DebugMode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty patients file", func(c *Config) { c.Files.Patients = "" }},
		{"empty symptoms file", func(c *Config) { c.Files.Symptoms = "" }},
		{"unknown level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown theme", func(c *Config) { c.UI.Theme = "neon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLogsDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "data"
	assert.Equal(t, filepath.Join("data", ".covidtrack", "logs"), cfg.LogsDir())

	abs := filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Dir = abs
	assert.Equal(t, abs, cfg.LogsDir())
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{}
	assert.False(t, c.IsCategoryEnabled("store"))

	c.DebugMode = true
	assert.True(t, c.IsCategoryEnabled("store"))

	c.Categories = map[string]bool{"store": false}
	assert.False(t, c.IsCategoryEnabled("store"))
	assert.True(t, c.IsCategoryEnabled("clinic"))
}
