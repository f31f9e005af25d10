// Package config loads the engine's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// StorageConfig declares one storage credential the engine serves vaults
// from.
type StorageConfig struct {
	ID     string `yaml:"id"`
	Driver string `yaml:"driver"` // "badger" or "memory"
	Path   string `yaml:"path"`
}

type Config struct {
	Host       string          `yaml:"host"`
	Port       int             `yaml:"port"`
	LogLevel   string          `yaml:"logLevel"`
	WalletPath string          `yaml:"walletPath"`
	Storage    []StorageConfig `yaml:"storage"`
}

// Load reads a YAML config file and fills in defaults for anything omitted.
func Load(path string) (Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("config: %w", err)
	}

	applyDefaults(&config)
	return config, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var config Config
	applyDefaults(&config)
	return config
}

func applyDefaults(config *Config) {
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 8000
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.WalletPath == "" {
		config.WalletPath = "data/wallets"
	}
}
