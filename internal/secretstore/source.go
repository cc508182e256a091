// source.go selects the backend that supplies a project's secrets and parameters.
package secretstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/podunit/internal/execx"
)

// Source fetches the secrets and parameters bundles referenced by x-config.
type Source interface {
	FetchSecrets(ctx context.Context, name string) (map[string]string, error)
	FetchParams(ctx context.Context, name string) (map[string]string, error)
}

// Activator is implemented by sources that need a credential step before the
// first fetch.
type Activator interface {
	Activate(ctx context.Context) error
}

// ErrCredentialsMissing marks a missing credentials file. It aborts a run.
var ErrCredentialsMissing = errors.New("credentials file not found")

// Options carry process-wide settings that seed provider defaults.
type Options struct {
	// Provider picks an entry from Config.Providers, or a bare backend type
	// (gcloud, vault, file) when no entry has that name.
	Provider  string
	ProjectID string
	KeyFile   string
	BaseDir   string
	Runner    execx.Runner
}

// NewSource builds the selected source.
func NewSource(cfg Config, opts Options) (Source, error) {
	name := strings.TrimSpace(opts.Provider)
	if name == "" {
		name = strings.TrimSpace(cfg.DefaultProvider)
	}
	if name == "" {
		name = TypeGCloud
	}
	pcfg, ok := cfg.Providers[name]
	if !ok {
		pcfg = ProviderConfig{Type: name}
	}
	providerType := strings.ToLower(strings.TrimSpace(pcfg.Type))
	switch providerType {
	case TypeGCloud:
		if pcfg.ProjectID == "" {
			pcfg.ProjectID = opts.ProjectID
		}
		if pcfg.KeyFile == "" {
			pcfg.KeyFile = opts.KeyFile
		}
		runner := opts.Runner
		if runner == nil {
			runner = execx.NewRunner()
		}
		return newGCloudSource(pcfg, runner)
	case TypeVault:
		src, err := newVaultSource(pcfg)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		return src, nil
	case TypeFile:
		src, err := newFileSource(pcfg.Path, opts.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		return src, nil
	case "":
		return nil, fmt.Errorf("provider %q missing type", name)
	default:
		return nil, fmt.Errorf("provider %q has unsupported type %q (known: %s)", name, providerType, strings.Join(knownTypes(), ", "))
	}
}

const (
	TypeGCloud = "gcloud"
	TypeVault  = "vault"
	TypeFile   = "file"
)

func knownTypes() []string {
	out := []string{TypeGCloud, TypeVault, TypeFile}
	sort.Strings(out)
	return out
}

// Mask hides all but the first keep characters of value.
func Mask(value string, keep int) string {
	if keep < 0 {
		keep = 0
	}
	runes := []rune(value)
	if len(runes) <= keep {
		return "***"
	}
	return string(runes[:keep]) + "..."
}

// stringify renders a fetched value the way it should appear in an
// environment variable or secret file. Composite values are JSON encoded.
func stringify(val interface{}) string {
	switch typed := val.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case json.Number:
		return typed.String()
	case bool, float64, float32, int, int64, int32, uint64, uint32:
		return fmt.Sprint(typed)
	default:
		raw, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(raw)
	}
}
