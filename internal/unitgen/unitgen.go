// unitgen.go turns running containers into quadlet .container units via podlet.
package unitgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/podunit/internal/execx"
)

// Generator runs the unit generator CLI.
type Generator struct {
	runner execx.Runner
	argv   []string
}

// NewGenerator returns a Generator invoking argv (default ["podlet"]).
func NewGenerator(runner execx.Runner, argv []string) *Generator {
	if runner == nil {
		runner = execx.NewRunner()
	}
	if len(argv) == 0 {
		argv = []string{"podlet"}
	}
	return &Generator{runner: runner, argv: argv}
}

// Generate emits unit text for the running container.
func (g *Generator) Generate(ctx context.Context, container string) (string, error) {
	if strings.TrimSpace(container) == "" {
		return "", errors.New("container name is required")
	}
	args := append(append([]string(nil), g.argv[1:]...), "generate", "container", container)
	res, err := g.runner.Run(ctx, execx.Cmd{Name: g.argv[0], Args: args})
	if err != nil {
		return "", err
	}
	text := string(res.Stdout)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s produced no unit for %s", g.argv[0], container)
	}
	return text, nil
}

// Decorate orders the unit after the secrets loader and installs it into
// default.target.
func Decorate(unit, loaderUnit string) string {
	var b strings.Builder
	b.WriteString(unit)
	if !strings.HasSuffix(unit, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\n[Unit]\n")
	if loaderUnit != "" {
		fmt.Fprintf(&b, "After=%s\n", loaderUnit)
		fmt.Fprintf(&b, "Requires=%s\n", loaderUnit)
	}
	b.WriteString("\n[Install]\n")
	b.WriteString("WantedBy=default.target\n")
	return b.String()
}

// FileName is the quadlet file for a compose service.
func FileName(service string) string {
	return service + ".container"
}

// Write stores unit as <dir>/<service>.container and returns its path.
func Write(dir, service, unit string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create unit directory: %w", err)
	}
	path := filepath.Join(dir, FileName(service))
	if err := os.WriteFile(path, []byte(unit), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
