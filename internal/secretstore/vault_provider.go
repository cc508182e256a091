package secretstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"
)

// vaultSource reads secrets and parameters from a KV mount. The bundle name
// (optionally prefixed) is the KV path and every field of the entry becomes
// one key.
type vaultSource struct {
	client        *vault.Client
	mount         string
	kvVersion     int
	secretsPrefix string
	paramsPrefix  string
	login         vaultLogin
	authOnce      sync.Once
	authErr       error
}

func newVaultSource(cfg ProviderConfig) (*vaultSource, error) {
	address := strings.TrimSpace(cfg.Address)
	if address == "" {
		address = strings.TrimSpace(os.Getenv("VAULT_ADDR"))
	}
	if address == "" {
		return nil, fmt.Errorf("vault address is required")
	}
	login, err := newVaultLogin(cfg)
	if err != nil {
		return nil, err
	}

	apiCfg := vault.DefaultConfig()
	apiCfg.Address = address
	client, err := vault.NewClient(apiCfg)
	if err != nil {
		return nil, err
	}
	if ns := strings.TrimSpace(cfg.Namespace); ns != "" {
		client.SetNamespace(ns)
	}
	if login.token != "" {
		client.SetToken(login.token)
	}

	mount := strings.Trim(strings.TrimSpace(cfg.Mount), "/")
	if mount == "" {
		mount = "secret"
	}
	kvVersion := cfg.KVVersion
	if kvVersion == 0 {
		kvVersion = 2
	}
	if kvVersion != 1 && kvVersion != 2 {
		return nil, fmt.Errorf("vault kvVersion must be 1 or 2")
	}
	return &vaultSource{
		client:        client,
		mount:         mount,
		kvVersion:     kvVersion,
		secretsPrefix: strings.Trim(strings.TrimSpace(cfg.SecretsPrefix), "/"),
		paramsPrefix:  strings.Trim(strings.TrimSpace(cfg.ParamsPrefix), "/"),
		login:         login,
	}, nil
}

// Activate performs the configured login once.
func (v *vaultSource) Activate(ctx context.Context) error {
	return v.ensureAuth(ctx)
}

func (v *vaultSource) FetchSecrets(ctx context.Context, name string) (map[string]string, error) {
	return v.fetch(ctx, joinVaultPath(v.secretsPrefix, name))
}

func (v *vaultSource) FetchParams(ctx context.Context, name string) (map[string]string, error) {
	return v.fetch(ctx, joinVaultPath(v.paramsPrefix, name))
}

func (v *vaultSource) fetch(ctx context.Context, path string) (map[string]string, error) {
	if v == nil {
		return nil, fmt.Errorf("vault source is not initialized")
	}
	if err := v.ensureAuth(ctx); err != nil {
		return nil, err
	}
	data, err := v.read(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(data))
	for key, val := range data {
		out[key] = stringify(val)
	}
	return out, nil
}

func (v *vaultSource) read(ctx context.Context, path string) (map[string]interface{}, error) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return nil, fmt.Errorf("vault secret path is required")
	}
	switch v.kvVersion {
	case 1:
		secret, err := v.client.Logical().ReadWithContext(ctx, fmt.Sprintf("%s/%s", v.mount, path))
		if err != nil {
			return nil, err
		}
		if secret == nil || secret.Data == nil {
			return nil, fmt.Errorf("vault secret %q not found", path)
		}
		return secret.Data, nil
	case 2:
		secret, err := v.client.KVv2(v.mount).Get(ctx, path)
		if err != nil {
			return nil, err
		}
		if secret == nil || secret.Data == nil {
			return nil, fmt.Errorf("vault secret %q not found", path)
		}
		return secret.Data, nil
	default:
		return nil, fmt.Errorf("vault kvVersion must be 1 or 2")
	}
}

func joinVaultPath(prefix, name string) string {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "/" + name
}
