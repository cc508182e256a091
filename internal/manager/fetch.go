package manager

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/example/podunit/internal/project"
	"github.com/example/podunit/internal/secretsdir"
)

const fetchWorkers = 4

type fetched struct {
	secrets map[string]string
	err     error
}

// FetchAll reloads the runtime secrets of every enabled project with remote
// integration. It runs at boot, before the generated units start. Fetch
// failures are warnings; failing to write a directory is reported.
func (m *Manager) FetchAll(ctx context.Context, projects []*project.Descriptor) error {
	var targets []*project.Descriptor
	for _, d := range projects {
		if d.Config.Enabled && d.Config.EnableRemoteIntegration {
			targets = append(targets, d)
		}
	}
	if len(targets) == 0 {
		m.printf("No enabled projects use remote secrets.")
		return nil
	}
	src, err := m.secretSource(ctx)
	if err != nil {
		return err
	}

	results := make([]fetched, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchWorkers)
	for i, d := range targets {
		g.Go(func() error {
			secrets, err := src.FetchSecrets(gctx, d.SecretName())
			results[i] = fetched{secrets: secrets, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, d := range targets {
		res := results[i]
		if res.err != nil {
			m.Log.Error(res.err, "could not fetch secrets", "project", d.Name, "secret", d.SecretName())
			continue
		}
		if len(res.secrets) == 0 {
			continue
		}
		dir := m.secretsDir(d)
		if err := secretsdir.Materialize(dir, res.secrets); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
			continue
		}
		m.printf("Loaded %d secret(s) for %s", len(res.secrets), d.Name)
	}
	return errors.Join(errs...)
}
