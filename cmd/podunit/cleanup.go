package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/example/podunit/internal/secretsdir"
	"github.com/spf13/cobra"
)

func newCleanupCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove runtime secret directories from the RAM-backed filesystem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cleaning up %s* ...\n", filepath.Join(st.opts.SecretsRoot, st.opts.SecretsPrefix))
			res, err := secretsdir.Cleanup(st.opts.SecretsRoot, st.opts.SecretsPrefix)
			if err != nil {
				return err
			}
			failed := make([]string, 0, len(res.Errors))
			for name := range res.Errors {
				failed = append(failed, name)
			}
			sort.Strings(failed)
			for _, name := range failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not remove %s: %v\n", name, res.Errors[name])
			}
			switch n := len(res.Removed); n {
			case 0:
				fmt.Fprintln(out, "Nothing to clean up")
			case 1:
				fmt.Fprintln(out, "Cleaned up 1 secret directory")
			default:
				fmt.Fprintf(out, "Cleaned up %d secret directories\n", n)
			}
			return nil
		},
	}
}
