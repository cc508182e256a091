// Package compose validates compose manifests with the compose-spec loader
// before podunit hands them to the compose CLI.
package compose

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	composetypes "github.com/compose-spec/compose-go/v2/types"
)

// Project summarizes a manifest that passed validation.
type Project struct {
	Name     string
	Services []string
}

// ValidateFile loads the manifest at path.
func ValidateFile(ctx context.Context, projectName, path string) (*Project, error) {
	return Validate(ctx, projectName, path, nil)
}

// Validate loads content (or the file at path when content is nil) through
// the compose-spec loader. path also sets the working directory for relative
// references.
func Validate(ctx context.Context, projectName, path string, content []byte) (*Project, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("compose file path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if content == nil {
		content, err = os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("read compose file %s: %w", abs, err)
		}
	}

	details := composetypes.ConfigDetails{
		WorkingDir:  filepath.Dir(abs),
		ConfigFiles: []composetypes.ConfigFile{{Filename: abs, Content: content}},
		Environment: environment(),
	}
	project, err := loader.LoadWithContext(ctx, details, func(o *loader.Options) {
		if projectName != "" {
			o.SetProjectName(normalizeName(projectName), true)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid compose file %s: %w", abs, err)
	}
	names := make([]string, 0, len(project.Services))
	for name := range project.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Project{Name: project.Name, Services: names}, nil
}

func environment() composetypes.Mapping {
	env := make(composetypes.Mapping)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[key] = value
	}
	return env
}

// normalizeName lowercases name and drops characters compose rejects in
// project names.
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
