package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/example/podunit/internal/appconfig"
	"github.com/example/podunit/internal/execx"
	"github.com/example/podunit/internal/history"
	"github.com/example/podunit/internal/podman"
	"github.com/example/podunit/internal/project"
	"github.com/example/podunit/internal/secretstore"
	"github.com/example/podunit/internal/systemd"
	"github.com/example/podunit/internal/unitgen"
	"github.com/fatih/color"
	"github.com/go-logr/logr/funcr"
)

func init() {
	color.NoColor = true
}

const kenerManifest = `x-config:
  enabled: true
  enable_remote_integration: true
services:
  web:
    image: ghcr.io/rajnandan1/kener:latest
    container_name: kener-web
    environment:
      LOG_LEVEL: info
  db:
    image: postgres:16
secrets:
  db_password:
    file: ./db_password.txt
`

const plainManifest = `x-config:
  enabled: true
services:
  app:
    image: nginx:1.27
`

type fakeSource struct {
	secrets   map[string]map[string]string
	params    map[string]map[string]string
	errs      map[string]error
	activated int
	activate  error
}

func (f *fakeSource) FetchSecrets(_ context.Context, name string) (map[string]string, error) {
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return f.secrets[name], nil
}

func (f *fakeSource) FetchParams(_ context.Context, name string) (map[string]string, error) {
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return f.params[name], nil
}

func (f *fakeSource) Activate(context.Context) error {
	f.activated++
	return f.activate
}

type memoryRecorder struct {
	runs []history.Run
}

func (r *memoryRecorder) Record(_ context.Context, run history.Run) error {
	r.runs = append(r.runs, run)
	return nil
}

type fixture struct {
	root     string
	runner   *execx.FakeRunner
	source   *fakeSource
	recorder *memoryRecorder
	out      *bytes.Buffer
	logs     *[]string
	mgr      *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root:   root,
		runner: execx.NewFakeRunner(),
		source: &fakeSource{
			secrets: map[string]map[string]string{"kener-secrets": {"db_password": "hunter22", "API_KEY": "abcdefghijk"}},
			params:  map[string]map[string]string{"kener-config": {"REGION": "eu-west1", "LOG_LEVEL": "debug"}},
		},
		recorder: &memoryRecorder{},
		out:      &bytes.Buffer{},
		logs:     &[]string{},
	}
	opts := appconfig.Options{
		SecretsRoot:   filepath.Join(root, "shm"),
		SecretsPrefix: "podman-secrets-",
		UnitDir:       filepath.Join(root, "units"),
		LoaderUnit:    "podman-secrets-loader.service",
	}
	logs := f.logs
	f.mgr = &Manager{
		Options:  opts,
		Sources:  func(context.Context) (secretstore.Source, error) { return f.source, nil },
		Compose:  podman.NewCompose(f.runner, nil, nil),
		Services: systemd.NewManager(f.runner, nil),
		Units:    unitgen.NewGenerator(f.runner, nil),
		History:  f.recorder,
		User:     "alice",
		Out:      f.out,
		Log: funcr.New(func(prefix, args string) {
			*logs = append(*logs, prefix+" "+args)
		}, funcr.Options{}),
	}
	return f
}

func (f *fixture) project(t *testing.T, name, content string) *project.Descriptor {
	t.Helper()
	dir := filepath.Join(f.root, "compose", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "compose.yml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := project.Load(dir)
	if err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	return d
}

func TestManageProjectFullFlow(t *testing.T) {
	f := newFixture(t)
	d := f.project(t, "kener", kenerManifest)
	f.runner.
		On("systemctl --user is-active web.service", execx.FakeResponse{ExitCode: 3}).
		On("podman ps --format {{.Names}}", execx.FakeResponse{Stdout: "kener-web\nother\n"}).
		On("podlet generate container kener-web", execx.FakeResponse{Stdout: "[Container]\nContainerName=kener-web\n"}).
		On("podlet generate container db", execx.FakeResponse{ExitCode: 1, Stderr: "no such container"})

	services, err := f.mgr.ManageProject(context.Background(), d)
	if err != nil {
		t.Fatalf("ManageProject: %v", err)
	}
	if !reflect.DeepEqual(services, []string{"web", "db"}) {
		t.Fatalf("services=%v", services)
	}

	lines := f.runner.Lines()
	want := []string{
		"systemctl --user is-active web.service",
		"systemctl --user is-active db.service",
		"systemctl --user stop db.service",
		"podman ps --format {{.Names}}",
		"podman compose down",
	}
	if len(lines) < len(want)+3 || !reflect.DeepEqual(lines[:len(want)], want) {
		t.Fatalf("calls=%v", lines)
	}
	up := f.runner.Calls[len(want)]
	if up.Dir != d.Directory {
		t.Fatalf("up dir=%q", up.Dir)
	}
	upLine := up.String()
	if !strings.HasPrefix(upLine, "podman compose -f "+d.Directory+string(os.PathSeparator)) || !strings.HasSuffix(upLine, " up -d --force-recreate") {
		t.Fatalf("up=%q", upLine)
	}
	tmp := up.Args[2]
	if _, err := os.Stat(tmp); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp manifest %s should be removed, stat err=%v", tmp, err)
	}

	secret := filepath.Join(f.root, "shm", "podman-secrets-kener", "db_password")
	raw, err := os.ReadFile(secret)
	if err != nil || string(raw) != "hunter22" {
		t.Fatalf("secret file=%q err=%v", raw, err)
	}

	unit, err := os.ReadFile(filepath.Join(f.root, "units", "web.container"))
	if err != nil {
		t.Fatalf("read unit: %v", err)
	}
	if !strings.Contains(string(unit), "Requires=podman-secrets-loader.service") {
		t.Fatalf("unit not decorated:\n%s", unit)
	}
	if _, err := os.Stat(filepath.Join(f.root, "units", "db.container")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("db unit should not exist, err=%v", err)
	}
	if !containsLog(*f.logs, "could not generate unit") {
		t.Fatalf("expected warning for db unit, logs=%v", *f.logs)
	}
}

func TestManageProjectWithoutRemoteUsesManifestAsIs(t *testing.T) {
	f := newFixture(t)
	d := f.project(t, "plain", plainManifest)
	f.runner.On("systemctl --user is-active app.service", execx.FakeResponse{ExitCode: 3})
	if _, err := f.mgr.ManageProject(context.Background(), d); err != nil {
		t.Fatalf("ManageProject: %v", err)
	}
	want := []string{
		"systemctl --user is-active app.service",
		"podman ps --format {{.Names}}",
		"podman compose up -d --force-recreate",
		"podlet generate container app",
	}
	if !reflect.DeepEqual(f.runner.Lines(), want) {
		t.Fatalf("calls=%v", f.runner.Lines())
	}
	if f.source.activated != 0 {
		t.Fatalf("source should not be touched")
	}
}

func TestFetchFailureDegradesToEmpty(t *testing.T) {
	f := newFixture(t)
	f.source.errs = map[string]error{
		"kener-secrets": errors.New("permission denied"),
		"kener-config":  errors.New("not found"),
	}
	d := f.project(t, "kener", kenerManifest)
	if _, err := f.mgr.ManageProject(context.Background(), d); err != nil {
		t.Fatalf("ManageProject: %v", err)
	}
	for _, line := range f.runner.Lines() {
		if strings.Contains(line, " -f ") {
			t.Fatalf("no override expected without values: %q", line)
		}
	}
	if _, err := os.Stat(filepath.Join(f.root, "shm", "podman-secrets-kener")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("secrets dir should not exist, err=%v", err)
	}
	if !containsLog(*f.logs, "could not fetch secrets") || !containsLog(*f.logs, "could not fetch params") {
		t.Fatalf("logs=%v", *f.logs)
	}
}

func TestRunIsolatesFailuresAndFinishes(t *testing.T) {
	f := newFixture(t)
	broken := f.project(t, "broken", plainManifest)
	kener := f.project(t, "kener", kenerManifest)
	f.runner.On("podman compose up -d --force-recreate", execx.FakeResponse{ExitCode: 1, Stderr: "pull access denied"})

	summary, err := f.mgr.Run(context.Background(), []*project.Descriptor{broken, kener})
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("expected failure naming broken, got %v", err)
	}
	if !reflect.DeepEqual(summary.Failed, []string{"broken"}) || !reflect.DeepEqual(summary.Managed, []string{"kener"}) {
		t.Fatalf("summary=%+v", summary)
	}
	if f.source.activated != 1 {
		t.Fatalf("activated=%d", f.source.activated)
	}

	lines := f.runner.Lines()
	tail := lines[len(lines)-5:]
	want := []string{
		"systemctl --user daemon-reload",
		"systemctl --user start web.service",
		"systemctl --user start db.service",
		"systemctl --user enable podman-secrets-loader.service",
		"loginctl enable-linger alice",
	}
	if !reflect.DeepEqual(tail, want) {
		t.Fatalf("tail=%v", tail)
	}

	if len(f.recorder.runs) != 2 {
		t.Fatalf("runs=%v", f.recorder.runs)
	}
	if f.recorder.runs[0].Outcome != history.OutcomeFailed || !strings.Contains(f.recorder.runs[0].Error, "compose up") {
		t.Fatalf("broken run=%+v", f.recorder.runs[0])
	}
	if f.recorder.runs[1].Outcome != history.OutcomeSuccess {
		t.Fatalf("kener run=%+v", f.recorder.runs[1])
	}
}

func TestRunDeduplicatesServices(t *testing.T) {
	f := newFixture(t)
	a := f.project(t, "a", plainManifest)
	b := f.project(t, "b", plainManifest)
	summary, err := f.mgr.Run(context.Background(), []*project.Descriptor{a, b})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(summary.Services, []string{"app"}) {
		t.Fatalf("services=%v", summary.Services)
	}
	starts := 0
	for _, line := range f.runner.Lines() {
		if line == "systemctl --user start app.service" {
			starts++
		}
	}
	if starts != 1 {
		t.Fatalf("app started %d times", starts)
	}
}

func TestRunMissingCredentialsIsFatal(t *testing.T) {
	f := newFixture(t)
	f.source.activate = fmt.Errorf("%w: /nope.json", secretstore.ErrCredentialsMissing)
	d := f.project(t, "kener", kenerManifest)
	_, err := f.mgr.Run(context.Background(), []*project.Descriptor{d})
	if !errors.Is(err, secretstore.ErrCredentialsMissing) {
		t.Fatalf("expected credentials error, got %v", err)
	}
	if len(f.runner.Calls) != 0 {
		t.Fatalf("nothing should run, calls=%v", f.runner.Lines())
	}
	if len(f.recorder.runs) != 0 {
		t.Fatalf("no run should be recorded")
	}
}

func TestRunWithoutProjects(t *testing.T) {
	f := newFixture(t)
	if _, err := f.mgr.Run(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.out.String(), "No projects to manage.") {
		t.Fatalf("out=%q", f.out.String())
	}
}

func TestDryRunShowSecretsMasksAndMutatesNothing(t *testing.T) {
	f := newFixture(t)
	f.mgr.Options.DryRun = true
	f.mgr.Options.ShowSecrets = true
	var validated []byte
	f.mgr.Validate = func(_ context.Context, _, _ string, content []byte) error {
		validated = content
		return nil
	}
	d := f.project(t, "kener", kenerManifest)

	if _, err := f.mgr.Run(context.Background(), []*project.Descriptor{d}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.runner.Calls) != 0 {
		t.Fatalf("dry run executed commands: %v", f.runner.Lines())
	}
	out := f.out.String()
	for _, want := range []string{
		"db_password: hunt...",
		"API_KEY: abcdefgh... (from secret)",
		"db_password: *** (from secret)",
		"LOG_LEVEL: *** (from param)",
		"LOG_LEVEL: debug\n",
		"REGION: eu-west1\n",
		"+      LOG_LEVEL: debug",
		"[DRY RUN] No changes made",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hunter22") || strings.Contains(out, "abcdefghijk") {
		t.Fatalf("secret value leaked:\n%s", out)
	}
	if !strings.Contains(string(validated), "hunter22") {
		t.Fatalf("validator should see the real rewritten manifest:\n%s", validated)
	}
	if _, err := os.Stat(filepath.Join(f.root, "shm")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run wrote secrets, err=%v", err)
	}
	if len(f.recorder.runs) != 1 || f.recorder.runs[0].Outcome != history.OutcomeDryRun {
		t.Fatalf("runs=%v", f.recorder.runs)
	}
}

func TestDryRunWithoutShowSecretsSkipsSource(t *testing.T) {
	f := newFixture(t)
	f.mgr.Options.DryRun = true
	d := f.project(t, "kener", kenerManifest)
	if _, err := f.mgr.Run(context.Background(), []*project.Descriptor{d}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.source.activated != 0 {
		t.Fatalf("source activated in plain dry run")
	}
	if !strings.Contains(f.out.String(), "Would fetch secrets kener-secrets and params kener-config") {
		t.Fatalf("out=%s", f.out.String())
	}
}

func TestFetchAllMaterializesEnabledRemoteProjects(t *testing.T) {
	f := newFixture(t)
	kener := f.project(t, "kener", kenerManifest)
	plain := f.project(t, "plain", plainManifest)
	disabled := f.project(t, "off", strings.Replace(kenerManifest, "enabled: true", "enabled: false", 1))
	f.source.secrets["off-secrets"] = map[string]string{"X": "y"}

	if err := f.mgr.FetchAll(context.Background(), []*project.Descriptor{kener, plain, disabled}); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(f.root, "shm"))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if !reflect.DeepEqual(names, []string{"podman-secrets-kener"}) {
		t.Fatalf("dirs=%v", names)
	}
	info, err := os.Stat(filepath.Join(f.root, "shm", "podman-secrets-kener", "API_KEY"))
	if err != nil || info.Mode().Perm() != 0o600 {
		t.Fatalf("secret file info=%v err=%v", info, err)
	}
}

func TestFetchAllKeepsGoingAfterFetchError(t *testing.T) {
	f := newFixture(t)
	kener := f.project(t, "kener", kenerManifest)
	broken := f.project(t, "broken", strings.Replace(kenerManifest, "kener", "broken", -1))
	f.source.errs = map[string]error{"broken-secrets": errors.New("permission denied")}

	if err := f.mgr.FetchAll(context.Background(), []*project.Descriptor{broken, kener}); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if !strings.Contains(f.out.String(), "Loaded 2 secret(s) for kener") {
		t.Fatalf("output=%q", f.out.String())
	}
	if !containsLog(*f.logs, "could not fetch secrets") {
		t.Fatalf("logs=%v", *f.logs)
	}
	if _, err := os.Stat(filepath.Join(f.root, "shm", "podman-secrets-broken")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("broken project should have no secrets dir, stat err=%v", err)
	}
}

func containsLog(lines []string, fragment string) bool {
	for _, line := range lines {
		if strings.Contains(line, fragment) {
			return true
		}
	}
	return false
}
