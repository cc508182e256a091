package secretstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/example/podunit/internal/execx"
)

// gcloudSource shells out to the gcloud CLI: Secret Manager for secrets,
// Runtime Config for parameters.
type gcloudSource struct {
	runner    execx.Runner
	command   string
	projectID string
	keyFile   string
}

func newGCloudSource(cfg ProviderConfig, runner execx.Runner) (*gcloudSource, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, fmt.Errorf("gcloud project id is required")
	}
	command := strings.TrimSpace(cfg.Command)
	if command == "" {
		command = "gcloud"
	}
	return &gcloudSource{
		runner:    runner,
		command:   command,
		projectID: projectID,
		keyFile:   strings.TrimSpace(cfg.KeyFile),
	}, nil
}

// Activate logs in with the service account key and selects the project.
func (g *gcloudSource) Activate(ctx context.Context) error {
	if g.keyFile == "" {
		return fmt.Errorf("%w: no service account key configured", ErrCredentialsMissing)
	}
	if _, err := os.Stat(g.keyFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrCredentialsMissing, g.keyFile)
		}
		return fmt.Errorf("stat service account key: %w", err)
	}
	if _, err := g.run(ctx, "auth", "activate-service-account", "--key-file", g.keyFile); err != nil {
		return fmt.Errorf("activate service account: %w", err)
	}
	if _, err := g.run(ctx, "config", "set", "project", g.projectID); err != nil {
		return fmt.Errorf("set gcloud project: %w", err)
	}
	return nil
}

// FetchSecrets reads the latest version of a secret holding a JSON object.
func (g *gcloudSource) FetchSecrets(ctx context.Context, name string) (map[string]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("secret name is required")
	}
	out, err := g.run(ctx, "secrets", "versions", "access", "latest", "--secret", name, "--project", g.projectID)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(out))
	dec.UseNumber()
	raw := map[string]interface{}{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("secret %s is not a JSON object: %w", name, err)
	}
	secrets := make(map[string]string, len(raw))
	for key, val := range raw {
		secrets[key] = stringify(val)
	}
	return secrets, nil
}

type runtimeConfigVariable struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
	Text  *string `json:"text"`
}

// FetchParams lists the variables of a Runtime Config resource. Keys are the
// last path element of each variable name.
func (g *gcloudSource) FetchParams(ctx context.Context, name string) (map[string]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("parameter set name is required")
	}
	out, err := g.run(ctx, "beta", "runtime-config", "configs", "variables", "list",
		"--config-name", name, "--values", "--format", "json", "--project", g.projectID)
	if err != nil {
		return nil, err
	}
	var vars []runtimeConfigVariable
	if err := json.Unmarshal(out, &vars); err != nil {
		return nil, fmt.Errorf("parameters %s: unexpected gcloud output: %w", name, err)
	}
	params := make(map[string]string, len(vars))
	for _, v := range vars {
		key := path.Base(strings.TrimSpace(v.Name))
		if key == "" || key == "." || key == "/" {
			continue
		}
		switch {
		case v.Value != nil:
			params[key] = *v.Value
		case v.Text != nil:
			params[key] = *v.Text
		default:
			params[key] = ""
		}
	}
	return params, nil
}

func (g *gcloudSource) run(ctx context.Context, args ...string) ([]byte, error) {
	res, err := g.runner.Run(ctx, execx.Cmd{Name: g.command, Args: args})
	if err != nil {
		return nil, err
	}
	return res.Stdout, nil
}
