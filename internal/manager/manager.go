// manager.go wires discovery, secret sources and the external tools into the
// per-project start flow.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/example/podunit/internal/appconfig"
	"github.com/example/podunit/internal/history"
	"github.com/example/podunit/internal/project"
	"github.com/example/podunit/internal/secretstore"
	"github.com/example/podunit/internal/systemd"
	"github.com/go-logr/logr"
)

// Compose is the container lifecycle surface the manager needs.
type Compose interface {
	Up(ctx context.Context, dir, manifest string) error
	Down(ctx context.Context, dir string) error
	AnyRunning(ctx context.Context, names []string) (bool, error)
}

// ServiceManager is the per-user service manager surface.
type ServiceManager interface {
	IsActive(ctx context.Context, unit string) (bool, error)
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	Enable(ctx context.Context, unit string) error
	DaemonReload(ctx context.Context) error
	EnableLinger(ctx context.Context, user string) error
}

// UnitGenerator renders a unit for a running container.
type UnitGenerator interface {
	Generate(ctx context.Context, container string) (string, error)
}

// Recorder stores finished project runs.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Validator checks a manifest. content is nil when the file at path should be
// read.
type Validator func(ctx context.Context, projectName, path string, content []byte) error

// SourceFunc builds the secret source on first use.
type SourceFunc func(ctx context.Context) (secretstore.Source, error)

// Manager runs projects.
type Manager struct {
	Options  appconfig.Options
	Sources  SourceFunc
	Compose  Compose
	Services ServiceManager
	Units    UnitGenerator
	History  Recorder
	Validate Validator
	// User is passed to loginctl enable-linger.
	User string
	Out  io.Writer
	Log  logr.Logger
	Now  func() time.Time

	source secretstore.Source
}

// Summary reports the outcome of Run.
type Summary struct {
	Managed  []string
	Failed   []string
	Services []string
}

func (m *Manager) out() io.Writer {
	if m.Out == nil {
		return os.Stdout
	}
	return m.Out
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// secretSource resolves and activates the source once per manager.
func (m *Manager) secretSource(ctx context.Context) (secretstore.Source, error) {
	if m.source != nil {
		return m.source, nil
	}
	if m.Sources == nil {
		return nil, errors.New("no secret source configured")
	}
	src, err := m.Sources(ctx)
	if err != nil {
		return nil, err
	}
	if activator, ok := src.(secretstore.Activator); ok {
		if err := activator.Activate(ctx); err != nil {
			return nil, fmt.Errorf("activate secret source: %w", err)
		}
	}
	m.source = src
	return src, nil
}

func needsRemote(projects []*project.Descriptor) bool {
	for _, d := range projects {
		if d.Config.EnableRemoteIntegration {
			return true
		}
	}
	return false
}

// Run manages every project in order, then reloads the service manager,
// starts the collected services and enables the secrets loader and lingering.
// A failing project does not stop the others. Failing to obtain the secret
// source is fatal and happens before any project is touched.
func (m *Manager) Run(ctx context.Context, projects []*project.Descriptor) (Summary, error) {
	var summary Summary
	if len(projects) == 0 {
		m.printf("No projects to manage.")
		return summary, nil
	}
	if m.Options.DryRun {
		return m.dryRun(ctx, projects)
	}
	if needsRemote(projects) {
		if _, err := m.secretSource(ctx); err != nil {
			return summary, err
		}
	}

	seen := map[string]struct{}{}
	for _, d := range projects {
		started := m.now()
		services, err := m.ManageProject(ctx, d)
		run := history.Run{StartedAt: started, FinishedAt: m.now(), Project: d.Name, Services: services, Outcome: history.OutcomeSuccess}
		if err != nil {
			run.Outcome = history.OutcomeFailed
			run.Error = err.Error()
			m.Log.Error(err, "project failed", "project", d.Name)
			m.printf("  %s %s", failColor.Sprint("✗"), err)
			summary.Failed = append(summary.Failed, d.Name)
		} else {
			summary.Managed = append(summary.Managed, d.Name)
			for _, svc := range services {
				if _, ok := seen[svc]; ok {
					continue
				}
				seen[svc] = struct{}{}
				summary.Services = append(summary.Services, svc)
			}
		}
		m.record(ctx, run)
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
	}

	if len(summary.Managed) > 0 {
		if err := m.finish(ctx, summary.Services); err != nil {
			return summary, err
		}
	}
	if len(summary.Failed) > 0 {
		return summary, fmt.Errorf("%d of %d project(s) failed: %s", len(summary.Failed), len(projects), strings.Join(summary.Failed, ", "))
	}
	m.printf("\n%s", okColor.Sprint("All operations completed successfully."))
	return summary, nil
}

func (m *Manager) finish(ctx context.Context, services []string) error {
	m.printf("\nReloading systemd daemon...")
	if err := m.Services.DaemonReload(ctx); err != nil {
		return fmt.Errorf("daemon-reload: %w", err)
	}
	if len(services) > 0 {
		m.printf("Starting %d service(s)...", len(services))
	}
	for _, svc := range services {
		unit := systemd.UnitName(svc)
		if err := m.Services.Start(ctx, unit); err != nil {
			m.Log.Error(err, "could not start service", "unit", unit)
			m.printf("  %s %s", warnColor.Sprint("!"), unit)
			continue
		}
		m.printf("  %s %s", okColor.Sprint("✓"), unit)
	}
	if loader := strings.TrimSpace(m.Options.LoaderUnit); loader != "" {
		if err := m.Services.Enable(ctx, loader); err != nil {
			return fmt.Errorf("enable %s: %w", loader, err)
		}
		m.printf("Secrets loader %s enabled", loader)
	}
	if strings.TrimSpace(m.User) == "" {
		m.Log.Info("skipping enable-linger: current user unknown")
		return nil
	}
	if err := m.Services.EnableLinger(ctx, m.User); err != nil {
		return fmt.Errorf("enable linger: %w", err)
	}
	m.printf("Linger enabled for %s", m.User)
	return nil
}

func (m *Manager) record(ctx context.Context, run history.Run) {
	if m.History == nil {
		return
	}
	if err := m.History.Record(ctx, run); err != nil {
		m.Log.V(1).Info("could not record run", "project", run.Project, "error", err.Error())
	}
}
