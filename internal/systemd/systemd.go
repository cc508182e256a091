// systemd.go wraps systemctl --user and loginctl for podunit-managed units.
package systemd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/podunit/internal/execx"
)

// Manager talks to the per-user service manager.
type Manager struct {
	runner execx.Runner
	argv   []string
}

// NewManager returns a Manager invoking argv (default ["systemctl"]) with --user.
func NewManager(runner execx.Runner, argv []string) *Manager {
	if runner == nil {
		runner = execx.NewRunner()
	}
	if len(argv) == 0 {
		argv = []string{"systemctl"}
	}
	return &Manager{runner: runner, argv: argv}
}

// UnitName maps a compose service to its generated service unit.
func UnitName(service string) string {
	if strings.HasSuffix(service, ".service") {
		return service
	}
	return service + ".service"
}

func (m *Manager) cmd(args ...string) execx.Cmd {
	all := append(append([]string(nil), m.argv[1:]...), "--user")
	return execx.Cmd{Name: m.argv[0], Args: append(all, args...)}
}

// IsActive reports whether unit is active. A non-zero exit means inactive;
// only a failure to run systemctl is an error.
func (m *Manager) IsActive(ctx context.Context, unit string) (bool, error) {
	_, err := m.runner.Run(ctx, m.cmd("is-active", unit))
	if err == nil {
		return true, nil
	}
	if execx.IsExit(err) {
		return false, nil
	}
	return false, err
}

func (m *Manager) Start(ctx context.Context, unit string) error {
	_, err := m.runner.Run(ctx, m.cmd("start", unit))
	return err
}

func (m *Manager) Stop(ctx context.Context, unit string) error {
	_, err := m.runner.Run(ctx, m.cmd("stop", unit))
	return err
}

func (m *Manager) Enable(ctx context.Context, unit string) error {
	_, err := m.runner.Run(ctx, m.cmd("enable", unit))
	return err
}

func (m *Manager) DaemonReload(ctx context.Context) error {
	_, err := m.runner.Run(ctx, m.cmd("daemon-reload"))
	return err
}

// EnableLinger keeps user services running without an open session.
func (m *Manager) EnableLinger(ctx context.Context, user string) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return errors.New("user is required to enable linger")
	}
	_, err := m.runner.Run(ctx, execx.Cmd{Name: "loginctl", Args: []string{"enable-linger", user}})
	return err
}

// LoaderUnit renders the oneshot unit that reloads secrets at boot.
func LoaderUnit(execStart string) string {
	return fmt.Sprintf(`[Unit]
Description=Load remote secrets for Podman containers
Before=default.target
After=network-online.target
Wants=network-online.target

[Service]
Type=oneshot
ExecStart=%s
RemainAfterExit=yes

[Install]
WantedBy=default.target
`, execStart)
}

// EnsureLoaderUnit writes the loader unit to path unless a file is already
// there. It reports whether a file was created.
func EnsureLoaderUnit(path, execStart string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create unit directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(LoaderUnit(execStart)), 0o644); err != nil {
		return false, fmt.Errorf("write loader unit: %w", err)
	}
	return true, nil
}
