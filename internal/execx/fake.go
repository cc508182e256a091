package execx

import (
	"context"
	"strings"
	"sync"
)

// FakeRunner records invocations and answers from a table keyed by the
// command line. Unknown commands succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	Calls     []Cmd
	Responses map[string]FakeResponse
}

// FakeResponse is the canned answer for one command line.
type FakeResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Responses: map[string]FakeResponse{}}
}

// On registers a response for the exact command line "name arg1 arg2".
func (f *FakeRunner) On(line string, resp FakeResponse) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[line] = resp
	return f
}

func (f *FakeRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	_ = ctx
	f.mu.Lock()
	f.Calls = append(f.Calls, c)
	resp, ok := f.Responses[c.String()]
	f.mu.Unlock()
	if !ok {
		return Result{}, nil
	}
	res := Result{Stdout: []byte(resp.Stdout), Stderr: []byte(resp.Stderr), ExitCode: resp.ExitCode}
	if resp.Err != nil {
		return res, resp.Err
	}
	if resp.ExitCode != 0 {
		return res, &ExitError{Cmd: c, ExitCode: resp.ExitCode, Stderr: strings.TrimSpace(resp.Stderr)}
	}
	return res, nil
}

// Lines returns every recorded command line in call order.
func (f *FakeRunner) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, c.String())
	}
	return out
}
