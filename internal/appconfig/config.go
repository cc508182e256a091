package appconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the structured part of the config file. Flat flag defaults in the
// same file are read by viper; this loader only looks at nested sections.
type Config struct {
	Secrets SecretsConfig `yaml:"secrets,omitempty"`
}

// DefaultGlobalPath is ~/.config/podunit/config.yaml, honoring XDG_CONFIG_HOME.
func DefaultGlobalPath() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "podunit", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	if strings.TrimSpace(home) == "" {
		return ""
	}
	return filepath.Join(home, ".config", "podunit", "config.yaml")
}

// Load reads the global config and then an explicit one on top of it.
// Missing files are not an error.
func Load(ctx context.Context, globalPath, explicitPath string) (Config, error) {
	_ = ctx
	cfg := Config{}
	if strings.TrimSpace(globalPath) != "" {
		if c, err := loadOne(globalPath); err != nil {
			return Config{}, fmt.Errorf("load global config: %w", err)
		} else {
			cfg = merge(cfg, c)
		}
	}
	if strings.TrimSpace(explicitPath) != "" && filepath.Clean(explicitPath) != filepath.Clean(globalPath) {
		if c, err := loadOne(explicitPath); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", explicitPath, err)
		} else {
			cfg = merge(cfg, c)
		}
	}
	return cfg, nil
}

func loadOne(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Config{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, err
	}
	raw = []byte(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return Config{}, nil
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func merge(a, b Config) Config {
	out := a
	out.Secrets = mergeSecrets(a.Secrets, b.Secrets)
	return out
}
