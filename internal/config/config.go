package config

import (
	"os"
	"path/filepath"
)

type Config struct {
	Storage   StorageConfig
	Server    ServerConfig
	Log       LogConfig
	Interview InterviewConfig
}

type StorageConfig struct {
	DataDir string
	Journal bool
}

type ServerConfig struct {
	Port  int
	Token string
}

type LogConfig struct {
	Level string
}

// InterviewConfig holds the opt-in strictness switches. All of them default
// to off.
type InterviewConfig struct {
	StrictInit       bool
	StrictOrder      bool
	RequireAllPhases bool
}

func defaults() Config {
	return Config{
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
			Journal: true,
		},
		Server: ServerConfig{
			Port: 4100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".human-compiler")
	}
	return ".human-compiler"
}

// Load reads configuration from the JSON file backend and applies
// environment variable overrides.
//
// The backend lives at $XDG_CONFIG_HOME/humanc/config.json (falling back to
// ~/.config/humanc/config.json). Environment variables (HUMANC_*) override
// backend values. Secrets such as the server token are read from the
// environment only.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = defaultDataDir()
	}
	return cfg, nil
}
