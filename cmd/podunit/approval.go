package main

import (
	"os"
	"strings"

	"github.com/example/podunit/internal/ui"
	"github.com/spf13/cobra"
)

type approvalDecision struct {
	Approved       bool
	InteractiveTTY bool
}

func approvedFromEnv() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("PODUNIT_YES"))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func approvalMode(cmd *cobra.Command, approved bool) approvalDecision {
	if !approved && approvedFromEnv() {
		approved = true
	}
	return approvalDecision{
		Approved:       approved,
		InteractiveTTY: ui.IsTerminalReader(cmd.InOrStdin()) && ui.IsTerminalWriter(cmd.ErrOrStderr()),
	}
}
