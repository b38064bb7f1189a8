package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"kfctl-e2e/pkg/logging"
)

// LoadConfig loads the configuration file at configPath on top of the
// defaults. An empty path or a missing file yields the defaults.
func LoadConfig(configPath string) (Config, error) {
	config := GetDefaultConfig()
	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config found at %s, using defaults", configPath)
			return config, nil
		}
		return Config{}, NewConfigurationError(configPath, filepath.Base(configPath), "io", err.Error())
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		cfgErr := NewConfigurationError(configPath, filepath.Base(configPath), "parse", err.Error())
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			cfgErr.Details = fmt.Sprintf("%d field(s) could not be decoded", len(typeErr.Errors))
		}
		return Config{}, cfgErr
	}

	if err := Validate(config, configPath); err != nil {
		return Config{}, err
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configPath)
	return config, nil
}
