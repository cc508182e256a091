// options.go holds the process-wide settings passed into every podunit entry point.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/mitchellh/go-homedir"
)

// Options is populated once at start-up from flags, PODUNIT_* environment
// variables and the config file, then handed down explicitly.
type Options struct {
	BaseDir           string
	ProjectID         string
	ServiceAccountKey string
	Backend           string
	ConfigPath        string

	SecretsRoot   string
	SecretsPrefix string
	UnitDir       string
	UserUnitDir   string
	LoaderUnit    string
	HistoryPath   string

	ComposeCommand   string
	ContainerCommand string
	UnitGenerator    string
	ServiceManager   string

	DryRun      bool
	ShowSecrets bool
	Yes         bool
}

// Defaults returns the stock settings for a rootless podman homelab.
func Defaults() Options {
	return Options{
		BaseDir:           "~/podman_compose",
		ServiceAccountKey: "~/.config/gcloud/podunit-service-account.json",
		SecretsRoot:       "/dev/shm",
		SecretsPrefix:     "podman-secrets-",
		UnitDir:           "~/.config/containers/systemd",
		UserUnitDir:       "~/.config/systemd/user",
		LoaderUnit:        "podman-secrets-loader.service",
		HistoryPath:       defaultHistoryPath(),
		ComposeCommand:    "podman compose",
		ContainerCommand:  "podman",
		UnitGenerator:     "podlet",
		ServiceManager:    "systemctl",
	}
}

func defaultHistoryPath() string {
	if state := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); state != "" {
		return filepath.Join(state, "podunit", "history.db")
	}
	return "~/.local/state/podunit/history.db"
}

// Normalize expands "~" in every path and checks the command strings parse.
func (o *Options) Normalize() error {
	paths := []*string{
		&o.BaseDir,
		&o.ServiceAccountKey,
		&o.ConfigPath,
		&o.SecretsRoot,
		&o.UnitDir,
		&o.UserUnitDir,
		&o.HistoryPath,
	}
	for _, p := range paths {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	if strings.TrimSpace(o.SecretsPrefix) == "" {
		return errors.New("secrets prefix cannot be empty")
	}
	if strings.ContainsRune(o.SecretsPrefix, os.PathSeparator) {
		return fmt.Errorf("secrets prefix %q must not contain a path separator", o.SecretsPrefix)
	}
	for flag, raw := range map[string]string{
		"compose-command":   o.ComposeCommand,
		"container-command": o.ContainerCommand,
		"unit-generator":    o.UnitGenerator,
		"service-manager":   o.ServiceManager,
	} {
		if _, err := SplitCommand(raw); err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
	}
	return nil
}

// ExpandPath resolves a leading "~" and cleans the result. Empty stays empty.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return filepath.Clean(expanded), nil
}

// SplitCommand turns a configured command line such as "podman compose" into
// an argument vector.
func SplitCommand(raw string) ([]string, error) {
	args, err := shellwords.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", raw, err)
	}
	if len(args) == 0 {
		return nil, errors.New("command must contain at least one word")
	}
	return args, nil
}
