// inject.go merges remote secrets and parameters into a compose manifest copy.
package envinject

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/mitchellh/copystructure"
)

// Merge combines parameters and secrets. Parameters are applied first and
// secrets overwrite them on key collision. Nil maps contribute nothing.
func Merge(params, secrets map[string]string) map[string]string {
	out := make(map[string]string, len(params)+len(secrets))
	for k, v := range params {
		out[k] = v
	}
	for k, v := range secrets {
		out[k] = v
	}
	return out
}

// SecretFile is the runtime path of secret name under secretsDir.
func SecretFile(secretsDir, name string) string {
	return filepath.Join(secretsDir, name)
}

// Inject returns a rewritten copy of manifest:
//   - every service environment carries Merge(params, secrets), overwriting
//     existing keys and keeping the rest;
//   - every top-level secret whose name is a fetched secret key reads its file
//     from secretsDir.
//
// The input manifest is never modified.
func Inject(manifest map[string]any, secrets, params map[string]string, secretsDir string) (map[string]any, error) {
	copied, err := copystructure.Copy(manifest)
	if err != nil {
		return nil, fmt.Errorf("copy manifest: %w", err)
	}
	out, _ := copied.(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	combined := Merge(params, secrets)
	if len(combined) == 0 {
		return out, nil
	}

	if services, ok := out["services"].(map[string]any); ok {
		for name, raw := range services {
			svc, ok := raw.(map[string]any)
			if !ok {
				if raw != nil {
					return nil, fmt.Errorf("service %q must be a mapping, got %T", name, raw)
				}
				svc = map[string]any{}
				services[name] = svc
			}
			env, err := ParseEnvironment(svc["environment"])
			if err != nil {
				return nil, fmt.Errorf("service %q: %w", name, err)
			}
			for _, key := range sortedStringKeys(combined) {
				env.Set(key, combined[key])
			}
			svc["environment"] = env.Block()
		}
	}

	if len(secrets) > 0 {
		if defs, ok := out["secrets"].(map[string]any); ok {
			for name := range defs {
				if _, fetched := secrets[name]; !fetched {
					continue
				}
				defs[name] = map[string]any{"file": SecretFile(secretsDir, name)}
			}
		}
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
