package secretstore

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/example/podunit/internal/appconfig"
)

// ConfigFromApp maps appconfig secrets to secretstore config.
func ConfigFromApp(cfg appconfig.SecretsConfig) Config {
	providers := make(map[string]ProviderConfig, len(cfg.Providers))
	for name, provider := range cfg.Providers {
		providers[name] = ProviderConfig{
			Type:           provider.Type,
			Command:        provider.Command,
			ProjectID:      provider.ProjectID,
			KeyFile:        provider.KeyFile,
			Path:           provider.Path,
			Address:        provider.Address,
			Token:          provider.Token,
			Namespace:      provider.Namespace,
			Mount:          provider.Mount,
			KVVersion:      provider.KVVersion,
			SecretsPrefix:  provider.SecretsPrefix,
			ParamsPrefix:   provider.ParamsPrefix,
			AuthMethod:     provider.AuthMethod,
			AuthMount:      provider.AuthMount,
			RoleID:         provider.RoleID,
			SecretID:       provider.SecretID,
			AWSRole:        provider.AWSRole,
			AWSRegion:      provider.AWSRegion,
			AWSHeaderValue: provider.AWSHeaderValue,
		}
	}
	return Config{
		DefaultProvider: cfg.DefaultProvider,
		Providers:       providers,
	}
}

// LoadConfigFromApp loads provider definitions from the global config file
// and an optional explicit one. The returned directory anchors relative
// file-provider paths.
func LoadConfigFromApp(ctx context.Context, explicitPath string) (Config, string, error) {
	globalPath := appconfig.DefaultGlobalPath()
	cfg, err := appconfig.Load(ctx, globalPath, explicitPath)
	if err != nil {
		return Config{}, "", err
	}
	baseDir := filepath.Dir(globalPath)
	if strings.TrimSpace(explicitPath) != "" {
		if abs, err := filepath.Abs(explicitPath); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}
	return ConfigFromApp(cfg.Secrets), baseDir, nil
}
