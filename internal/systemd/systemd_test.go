package systemd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/example/podunit/internal/execx"
)

func TestIsActive(t *testing.T) {
	runner := execx.NewFakeRunner().
		On("systemctl --user is-active db.service", execx.FakeResponse{ExitCode: 3, Stdout: "inactive\n"}).
		On("systemctl --user is-active broken.service", execx.FakeResponse{Err: errors.New("exec: systemctl: not found")})
	m := NewManager(runner, nil)

	active, err := m.IsActive(context.Background(), "web.service")
	if err != nil || !active {
		t.Fatalf("web: active=%v err=%v", active, err)
	}
	active, err = m.IsActive(context.Background(), "db.service")
	if err != nil || active {
		t.Fatalf("db: active=%v err=%v", active, err)
	}
	if _, err := m.IsActive(context.Background(), "broken.service"); err == nil {
		t.Fatalf("expected launch error to surface")
	}
}

func TestLifecycleCommands(t *testing.T) {
	runner := execx.NewFakeRunner()
	m := NewManager(runner, nil)
	ctx := context.Background()
	if err := m.Stop(ctx, "web.service"); err != nil {
		t.Fatal(err)
	}
	if err := m.DaemonReload(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(ctx, "web.service"); err != nil {
		t.Fatal(err)
	}
	if err := m.Enable(ctx, "podman-secrets-loader.service"); err != nil {
		t.Fatal(err)
	}
	if err := m.EnableLinger(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"systemctl --user stop web.service",
		"systemctl --user daemon-reload",
		"systemctl --user start web.service",
		"systemctl --user enable podman-secrets-loader.service",
		"loginctl enable-linger alice",
	}
	if !reflect.DeepEqual(runner.Lines(), want) {
		t.Fatalf("calls=%v", runner.Lines())
	}
	if err := m.EnableLinger(ctx, " "); err == nil {
		t.Fatalf("expected error without user")
	}
}

func TestUnitName(t *testing.T) {
	if UnitName("web") != "web.service" || UnitName("web.service") != "web.service" {
		t.Fatalf("unexpected unit names")
	}
}

func TestEnsureLoaderUnitWritesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "systemd", "user", "podman-secrets-loader.service")
	created, err := EnsureLoaderUnit(path, "/usr/local/bin/podunit fetch-secrets")
	if err != nil {
		t.Fatalf("EnsureLoaderUnit: %v", err)
	}
	if !created {
		t.Fatalf("expected unit to be created")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "ExecStart=/usr/local/bin/podunit fetch-secrets\n") {
		t.Fatalf("unexpected unit:\n%s", raw)
	}
	if err := os.WriteFile(path, []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	created, err = EnsureLoaderUnit(path, "/other")
	if err != nil || created {
		t.Fatalf("existing unit must be kept: created=%v err=%v", created, err)
	}
	raw, _ = os.ReadFile(path)
	if string(raw) != "custom" {
		t.Fatalf("existing unit overwritten: %q", raw)
	}
}
