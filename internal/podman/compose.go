// compose.go drives the compose CLI and the container runtime for one project directory.
package podman

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/example/podunit/internal/execx"
)

// Compose wraps "<compose command> up/down" and "<container command> ps".
type Compose struct {
	runner    execx.Runner
	compose   []string
	container []string
}

// NewCompose builds a wrapper from argv prefixes such as
// ["podman", "compose"] and ["podman"].
func NewCompose(runner execx.Runner, composeArgv, containerArgv []string) *Compose {
	if runner == nil {
		runner = execx.NewRunner()
	}
	if len(composeArgv) == 0 {
		composeArgv = []string{"podman", "compose"}
	}
	if len(containerArgv) == 0 {
		containerArgv = []string{"podman"}
	}
	return &Compose{runner: runner, compose: composeArgv, container: containerArgv}
}

func (c *Compose) composeCmd(dir string, args ...string) execx.Cmd {
	all := append(append([]string(nil), c.compose[1:]...), args...)
	return execx.Cmd{Name: c.compose[0], Args: all, Dir: dir}
}

// Down stops and removes the project's containers.
func (c *Compose) Down(ctx context.Context, dir string) error {
	_, err := c.runner.Run(ctx, c.composeCmd(dir, "down"))
	return err
}

// Up recreates the project's containers detached. A non-empty manifest
// replaces the default compose file lookup.
func (c *Compose) Up(ctx context.Context, dir, manifest string) error {
	var args []string
	if manifest != "" {
		args = append(args, "-f", manifest)
	}
	args = append(args, "up", "-d", "--force-recreate")
	_, err := c.runner.Run(ctx, c.composeCmd(dir, args...))
	return err
}

// RunningContainers lists the names of running containers.
func (c *Compose) RunningContainers(ctx context.Context) ([]string, error) {
	args := append(append([]string(nil), c.container[1:]...), "ps", "--format", "{{.Names}}")
	res, err := c.runner.Run(ctx, execx.Cmd{Name: c.container[0], Args: args})
	if err != nil {
		return nil, err
	}
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(res.Stdout))
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	return names, scanner.Err()
}

// AnyRunning reports whether one of names is a running container. Names are
// compared exactly.
func (c *Compose) AnyRunning(ctx context.Context, names []string) (bool, error) {
	running, err := c.RunningContainers(ctx)
	if err != nil {
		return false, err
	}
	set := make(map[string]struct{}, len(running))
	for _, name := range running {
		set[name] = struct{}{}
	}
	for _, name := range names {
		if _, ok := set[name]; ok {
			return true, nil
		}
	}
	return false, nil
}
