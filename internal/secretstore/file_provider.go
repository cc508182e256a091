package secretstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

// fileSource serves bundles from a local YAML document of the form
//
//	kener-secrets:
//	  DB_PASSWORD: hunter2
//	kener-config:
//	  LOG_LEVEL: info
type fileSource struct {
	path string
	data map[string]interface{}
}

func newFileSource(path string, baseDir string) (*fileSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("file provider path is required")
	}
	if baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	path = filepath.Clean(path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secrets file %q: %w", path, err)
	}
	data := make(map[string]interface{})
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse secrets file %q: %w", path, err)
	}
	return &fileSource{path: path, data: data}, nil
}

func (f *fileSource) FetchSecrets(ctx context.Context, name string) (map[string]string, error) {
	_ = ctx
	return f.bundle(name)
}

func (f *fileSource) FetchParams(ctx context.Context, name string) (map[string]string, error) {
	_ = ctx
	return f.bundle(name)
}

func (f *fileSource) bundle(name string) (map[string]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("bundle name is required")
	}
	raw, ok := f.data[name]
	if !ok {
		return nil, fmt.Errorf("bundle %q not found in %s", name, f.path)
	}
	entries, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("bundle %q in %s must be a mapping", name, f.path)
	}
	out := make(map[string]string, len(entries))
	for key, val := range entries {
		out[key] = stringify(val)
	}
	return out, nil
}
