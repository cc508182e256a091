package manager

import (
	"context"
	"fmt"

	"github.com/example/podunit/internal/envinject"
	"github.com/example/podunit/internal/manifest"
	"github.com/example/podunit/internal/project"
	"github.com/example/podunit/internal/secretsdir"
	"github.com/example/podunit/internal/systemd"
	"github.com/example/podunit/internal/unitgen"
)

// ManageProject fetches and injects secrets for d, recreates its containers
// and writes one unit per service. Fetch and unit generation problems are
// warnings; lifecycle failures abort the project.
func (m *Manager) ManageProject(ctx context.Context, d *project.Descriptor) ([]string, error) {
	m.printf("\n%s", headerColor.Sprintf("=== %s ===", d.Name))

	secrets, params := m.fetch(ctx, d)
	dir := m.secretsDir(d)
	if len(secrets) > 0 {
		if err := secretsdir.Materialize(dir, secrets); err != nil {
			return nil, fmt.Errorf("materialize secrets: %w", err)
		}
		m.printf("  Stored %d secret(s) in %s", len(secrets), dir)
	}

	var tmp string
	defer func() { m.removeTemp(tmp) }()
	if len(secrets)+len(params) > 0 {
		rewritten, err := envinject.Inject(d.Manifest, secrets, params, dir)
		if err != nil {
			return nil, fmt.Errorf("inject environment: %w", err)
		}
		tmp, err = manifest.WriteTemp(d.ManifestPath, rewritten)
		if err != nil {
			return nil, err
		}
	}

	if err := m.stopActive(ctx, d); err != nil {
		return nil, err
	}
	running, err := m.Compose.AnyRunning(ctx, d.ContainerNames())
	if err != nil {
		return nil, fmt.Errorf("list running containers: %w", err)
	}
	if running {
		m.printf("  Stopping running containers")
		if err := m.Compose.Down(ctx, d.Directory); err != nil {
			return nil, fmt.Errorf("compose down: %w", err)
		}
	}
	m.printf("  Starting containers")
	if err := m.Compose.Up(ctx, d.Directory, tmp); err != nil {
		return nil, fmt.Errorf("compose up: %w", err)
	}
	m.removeTemp(tmp)
	tmp = ""
	m.printf("  %s containers started", okColor.Sprint("✓"))

	m.generateUnits(ctx, d)
	return append([]string(nil), d.Services...), nil
}

func (m *Manager) secretsDir(d *project.Descriptor) string {
	return secretsdir.Dir(m.Options.SecretsRoot, m.Options.SecretsPrefix, d.Name)
}

// fetch returns the project's secrets and params. Any failure degrades to an
// empty map.
func (m *Manager) fetch(ctx context.Context, d *project.Descriptor) (map[string]string, map[string]string) {
	if !d.Config.EnableRemoteIntegration {
		return nil, nil
	}
	src, err := m.secretSource(ctx)
	if err != nil {
		m.Log.Error(err, "secret source unavailable; continuing without secrets", "project", d.Name)
		return nil, nil
	}
	m.printf("  Fetching secrets %s", d.SecretName())
	secrets, err := src.FetchSecrets(ctx, d.SecretName())
	if err != nil {
		m.Log.Error(err, "could not fetch secrets; continuing without them", "project", d.Name, "secret", d.SecretName())
		secrets = nil
	}
	m.printf("  Fetching params %s", d.ParamsName())
	params, err := src.FetchParams(ctx, d.ParamsName())
	if err != nil {
		m.Log.Error(err, "could not fetch params; continuing without them", "project", d.Name, "params", d.ParamsName())
		params = nil
	}
	return secrets, params
}

func (m *Manager) stopActive(ctx context.Context, d *project.Descriptor) error {
	for _, svc := range d.Services {
		unit := systemd.UnitName(svc)
		active, err := m.Services.IsActive(ctx, unit)
		if err != nil {
			return fmt.Errorf("check %s: %w", unit, err)
		}
		if !active {
			continue
		}
		m.printf("  Stopping %s", unit)
		if err := m.Services.Stop(ctx, unit); err != nil {
			return fmt.Errorf("stop %s: %w", unit, err)
		}
	}
	return nil
}

func (m *Manager) generateUnits(ctx context.Context, d *project.Descriptor) {
	for _, svc := range d.Services {
		container := d.ContainerName(svc)
		text, err := m.Units.Generate(ctx, container)
		if err != nil {
			m.Log.Error(err, "could not generate unit", "project", d.Name, "service", svc, "container", container)
			m.printf("  %s %s", warnColor.Sprint("!"), unitgen.FileName(svc))
			continue
		}
		path, err := unitgen.Write(m.Options.UnitDir, svc, unitgen.Decorate(text, m.Options.LoaderUnit))
		if err != nil {
			m.Log.Error(err, "could not write unit", "project", d.Name, "service", svc)
			continue
		}
		m.printf("  %s %s", okColor.Sprint("✓"), path)
	}
}

func (m *Manager) removeTemp(path string) {
	if err := manifest.RemoveTemp(path); err != nil {
		m.Log.V(1).Info("could not remove temp manifest", "path", path, "error", err.Error())
	}
}
