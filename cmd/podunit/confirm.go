// File: cmd/podunit/confirm.go
// Brief: y/N prompt for starting disabled projects.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// errNotConfirmed means the operator declined or could not be asked.
var errNotConfirmed = errors.New("not confirmed")

func confirmAction(ctx context.Context, in io.Reader, out io.Writer, dec approvalDecision, prompt string) error {
	if out == nil {
		return errors.New("confirmation output is nil")
	}
	if dec.Approved {
		return nil
	}
	if !dec.InteractiveTTY {
		return fmt.Errorf("%w: no terminal to prompt on; rerun with --yes", errNotConfirmed)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = "Continue? (y/N):"
	}
	fmt.Fprint(out, prompt+" ")

	closeInputOnCancel := func() {
		rc, ok := in.(io.ReadCloser)
		if !ok {
			return
		}
		// Never close the real process stdin.
		if f, ok := in.(*os.File); ok && os.Stdin != nil && f.Fd() == os.Stdin.Fd() {
			return
		}
		_ = rc.Close()
	}

	type readResult struct {
		line string
		err  error
	}
	results := make(chan readResult, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		results <- readResult{line: line, err: err}
	}()

	var res readResult
	select {
	case <-ctx.Done():
		closeInputOnCancel()
		fmt.Fprintln(out)
		return ctx.Err()
	case res = <-results:
	}
	if res.err != nil && !errors.Is(res.err, io.EOF) {
		return res.err
	}
	switch strings.ToLower(strings.TrimSpace(res.line)) {
	case "y", "yes":
		return nil
	default:
		return errNotConfirmed
	}
}
