package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".workpal"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file. The WORKPAL_CONFIG
// environment variable overrides the default ~/.workpal/config.json.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("WORKPAL_CONFIG")); explicit != "" {
		return expandHome(explicit)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults. A missing config file is not
// an error; defaults plus environment are used.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Override with environment variables for each group
	envconfig.Process("WORKPAL_PATHS", &cfg.Paths)
	envconfig.Process("WORKPAL_MODEL", &cfg.Model)
	envconfig.Process("WORKPAL_PROVIDERS", &cfg.Providers)
	envconfig.Process("WORKPAL_OPENROUTER", &cfg.Providers.OpenRouter)
	envconfig.Process("WORKPAL_GEMINI", &cfg.Providers.Gemini)
	envconfig.Process("WORKPAL_SMTP", &cfg.SMTP)
	envconfig.Process("WORKPAL_GATEWAY", &cfg.Gateway)

	cfg.Paths.DataDir, err = expandHome(cfg.Paths.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.Paths.DatabasePath, err = expandHome(cfg.Paths.DatabasePath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// DepartmentDataDir returns the directory holding a department's
// spreadsheet files, creating it if needed.
func (c *Config) DepartmentDataDir(department string) (string, error) {
	safe := strings.ReplaceAll(strings.TrimSpace(department), " ", "_")
	dir := filepath.Join(c.Paths.DataDir, "departments", safe)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
