package podman

import (
	"context"
	"reflect"
	"testing"

	"github.com/example/podunit/internal/execx"
)

func TestUpWithOverrideRunsInProjectDir(t *testing.T) {
	runner := execx.NewFakeRunner()
	c := NewCompose(runner, []string{"podman", "compose"}, nil)
	if err := c.Up(context.Background(), "/srv/kener", "/srv/kener/.compose.yml.123.tmp"); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if len(runner.Calls) != 1 {
		t.Fatalf("calls=%v", runner.Lines())
	}
	call := runner.Calls[0]
	if call.Dir != "/srv/kener" {
		t.Fatalf("dir=%q", call.Dir)
	}
	want := "podman compose -f /srv/kener/.compose.yml.123.tmp up -d --force-recreate"
	if call.String() != want {
		t.Fatalf("cmd=%q, want %q", call.String(), want)
	}
}

func TestUpWithoutOverrideAndDown(t *testing.T) {
	runner := execx.NewFakeRunner()
	c := NewCompose(runner, []string{"docker-compose"}, []string{"docker"})
	if err := c.Down(context.Background(), "/srv/a"); err != nil {
		t.Fatalf("Down: %v", err)
	}
	if err := c.Up(context.Background(), "/srv/a", ""); err != nil {
		t.Fatalf("Up: %v", err)
	}
	want := []string{"docker-compose down", "docker-compose up -d --force-recreate"}
	if !reflect.DeepEqual(runner.Lines(), want) {
		t.Fatalf("calls=%v", runner.Lines())
	}
}

func TestAnyRunningMatchesExactNames(t *testing.T) {
	runner := execx.NewFakeRunner().On("podman ps --format {{.Names}}", execx.FakeResponse{Stdout: "kener-db\nkener\n\n"})
	c := NewCompose(runner, nil, nil)
	running, err := c.AnyRunning(context.Background(), []string{"kener-d", "web"})
	if err != nil {
		t.Fatalf("AnyRunning: %v", err)
	}
	if running {
		t.Fatalf("partial names must not match")
	}
	running, err = c.AnyRunning(context.Background(), []string{"kener-db"})
	if err != nil {
		t.Fatalf("AnyRunning: %v", err)
	}
	if !running {
		t.Fatalf("expected kener-db to be running")
	}
}

func TestUpFailureCarriesStderr(t *testing.T) {
	runner := execx.NewFakeRunner().On("podman compose up -d --force-recreate", execx.FakeResponse{ExitCode: 125, Stderr: "image not found"})
	err := NewCompose(runner, nil, nil).Up(context.Background(), "/srv/x", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if execx.Stderr(err) != "image not found" {
		t.Fatalf("stderr=%q", execx.Stderr(err))
	}
}
