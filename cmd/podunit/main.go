// main.go bootstraps podunit: it builds the root Cobra command and executes it with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/example/podunit/internal/secretstore"
	"github.com/spf13/pflag"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(err)
	if err != nil {
		os.Exit(1)
	}
}

func handleError(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	var execErr *exec.Error
	switch {
	case errors.Is(err, secretstore.ErrCredentialsMissing):
		message = fmt.Sprintf("%s\nHint: pass --service-account-key or set PODUNIT_SERVICE_ACCOUNT_KEY to an existing key file.", err)
	case errors.As(err, &execErr):
		message = fmt.Sprintf("%s\nHint: %s is not on PATH; install it or point the matching --*-command flag at it.", err, execErr.Name)
	case errors.Is(err, context.Canceled):
		message = "interrupted"
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}
