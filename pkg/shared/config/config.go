package config

import (
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v2"

	"github.com/sonarkit-io/sonarkit/pkg/shared/files"
)

// LoadConfig reads the YAML configuration from the given path. An empty path
// falls back to SONARKIT_CONFIG and then to <home>/config.yml; when no file
// exists at the fallback locations an empty configuration is returned and
// defaults are filled in during validation.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	explicit := configPath != ""
	if !explicit {
		configPath = defaultConfigPath()
	}

	if configPath == "" {
		return config, nil
	}

	if err := files.ValidatePath(configPath); err != nil {
		if explicit {
			return nil, fmt.Errorf("config file %q: %w", configPath, err)
		}
		return config, nil
	}

	if err := LoadYAML(configPath, config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadYAML decodes a YAML file into the provided destination.
func LoadYAML(configPath string, data interface{}) error {
	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return fmt.Errorf("failed to decode %q: %w", configPath, err)
	}

	return nil
}

// defaultConfigPath resolves the config location from the environment or the
// default home folder. Returns an empty string when nothing is resolvable.
func defaultConfigPath() string {
	if env := os.Getenv("SONARKIT_CONFIG"); env != "" {
		return env
	}

	home := os.Getenv("SONARKIT_HOME")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		home = filepath.Join(userHome, ".sonarkit")
	}
	return filepath.Join(home, "config.yml")
}

// GetSonarkitHome returns the resolved home folder.
func GetSonarkitHome(cfg *Config) string {
	return cfg.Sonarkit.HomeFolder
}

// GetSonarkitArtifactsHome returns the resolved artifacts folder.
func GetSonarkitArtifactsHome(cfg *Config) string {
	return cfg.Sonarkit.ArtifactsFolder
}
