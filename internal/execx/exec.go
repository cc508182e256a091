// exec.go runs external tools as argument vectors and captures their output.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Cmd describes a single invocation. Name is looked up on PATH.
type Cmd struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// String renders the invocation for logs and error messages.
func (c Cmd) String() string {
	parts := append([]string{c.Name}, c.Args...)
	return strings.Join(parts, " ")
}

// Result holds the captured streams of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes commands. Tests substitute a recording fake.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Cmd      Cmd
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Cmd.String(), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewRunner returns the default os/exec backed runner.
func NewRunner() Runner {
	return ExecRunner{}
}

func (ExecRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Result{}, errors.New("command name is required")
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = c.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &ExitError{Cmd: c, ExitCode: res.ExitCode, Stderr: strings.TrimSpace(stderr.String())}
		}
		return res, fmt.Errorf("%s: %w", c.String(), err)
	}
	return res, nil
}

// IsExit reports whether err is a non-zero exit rather than a failure to start.
func IsExit(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

// Stderr extracts captured diagnostics from an ExitError, or the error text otherwise.
func Stderr(err error) string {
	if err == nil {
		return ""
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Stderr != "" {
		return exitErr.Stderr
	}
	return err.Error()
}
