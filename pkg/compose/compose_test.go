package compose

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const validManifest = `x-config:
  enabled: true
services:
  web:
    image: nginx:1.27
    environment:
      LOG_LEVEL: info
  db:
    image: postgres:16
`

func TestValidateFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kener")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "compose.yml")
	if err := os.WriteFile(path, []byte(validManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	project, err := ValidateFile(context.Background(), "kener", path)
	if err != nil {
		t.Fatalf("ValidateFile: %v", err)
	}
	if project.Name != "kener" {
		t.Fatalf("name=%q", project.Name)
	}
	if !reflect.DeepEqual(project.Services, []string{"db", "web"}) {
		t.Fatalf("services=%v", project.Services)
	}
}

func TestValidateContentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compose.yml")
	project, err := Validate(context.Background(), "My.Project", path, []byte(validManifest))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if project.Name != "myproject" {
		t.Fatalf("name=%q", project.Name)
	}
}

func TestValidateRejectsSchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compose.yml")
	bad := "services:\n  web:\n    image: nginx\n    restart: [always]\n"
	if _, err := Validate(context.Background(), "bad", path, []byte(bad)); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateMissingFile(t *testing.T) {
	if _, err := ValidateFile(context.Background(), "x", filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := ValidateFile(context.Background(), "x", ""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
