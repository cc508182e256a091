// secretsdir.go materializes fetched secrets as files on a RAM-backed filesystem.
package secretsdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dir returns the runtime secrets directory for project.
func Dir(root, prefix, project string) string {
	return filepath.Join(root, prefix+project)
}

// Materialize replaces dir with one 0600 file per secret. The directory is
// created 0700. Keys are checked before the old directory is touched.
func Materialize(dir string, secrets map[string]string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("secrets directory is required")
	}
	keys := make([]string, 0, len(secrets))
	for key := range secrets {
		if key == "" || key == "." || key == ".." || strings.ContainsRune(key, os.PathSeparator) {
			return fmt.Errorf("secret key %q cannot be used as a file name", key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove old secrets: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create secrets directory: %w", err)
	}
	// MkdirAll is subject to umask.
	if err := os.Chmod(dir, 0o700); err != nil {
		return fmt.Errorf("chmod secrets directory: %w", err)
	}
	for _, key := range keys {
		path := filepath.Join(dir, key)
		if err := os.WriteFile(path, []byte(secrets[key]), 0o600); err != nil {
			return fmt.Errorf("write secret %s: %w", key, err)
		}
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("chmod secret %s: %w", key, err)
		}
	}
	return nil
}

// CleanupResult reports what Cleanup removed.
type CleanupResult struct {
	Removed []string
	Errors  map[string]error
}

// Cleanup removes every directory under root whose name starts with prefix.
// A missing root is not an error.
func Cleanup(root, prefix string) (CleanupResult, error) {
	res := CleanupResult{Errors: map[string]error{}}
	if strings.TrimSpace(prefix) == "" {
		return res, errors.New("cleanup prefix cannot be empty")
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, nil
		}
		return res, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !entry.IsDir() {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, name)); err != nil {
			res.Errors[name] = err
			continue
		}
		res.Removed = append(res.Removed, name)
	}
	return res, nil
}
