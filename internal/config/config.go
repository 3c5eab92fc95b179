package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the config file lives unless --config says otherwise.
const DefaultPath = ".covidtrack/config.yaml"

// Config holds all covidtrack configuration.
type Config struct {
	// DataDir is the directory the data files are resolved against.
	DataDir string `yaml:"data_dir"`

	Files FilesConfig `yaml:"files"`

	Logging LoggingConfig `yaml:"logging"`

	UI UIConfig `yaml:"ui"`
}

// FilesConfig names the backing files inside DataDir.
type FilesConfig struct {
	Patients  string `yaml:"patients"`
	Locations string `yaml:"locations"`
	Symptoms  string `yaml:"symptoms"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".",
		Files: FilesConfig{
			Patients:  "patientDetails.csv",
			Locations: "locations.txt",
			Symptoms:  "symptoms.csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    ".covidtrack/logs",
		},
		UI: *DefaultUIConfig(),
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("COVIDTRACK_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if level := os.Getenv("COVIDTRACK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if v := os.Getenv("COVIDTRACK_DEBUG"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = on
		}
	}
	if theme := os.Getenv("COVIDTRACK_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Files.Patients == "" || c.Files.Locations == "" || c.Files.Symptoms == "" {
		return fmt.Errorf("data file names must not be empty")
	}
	if !contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if !contains(ValidThemes, c.UI.Theme) {
		return fmt.Errorf("invalid theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// PatientsPath returns the patient file path.
func (c *Config) PatientsPath() string {
	return filepath.Join(c.DataDir, c.Files.Patients)
}

// LocationsPath returns the high-risk location file path.
func (c *Config) LocationsPath() string {
	return filepath.Join(c.DataDir, c.Files.Locations)
}

// SymptomsPath returns the symptom catalog path.
func (c *Config) SymptomsPath() string {
	return filepath.Join(c.DataDir, c.Files.Symptoms)
}

// LogsDir returns the logs directory. Relative paths are resolved against DataDir.
func (c *Config) LogsDir() string {
	if filepath.IsAbs(c.Logging.Dir) {
		return c.Logging.Dir
	}
	return filepath.Join(c.DataDir, c.Logging.Dir)
}
