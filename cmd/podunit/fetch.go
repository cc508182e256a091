package main

import (
	"github.com/example/podunit/internal/project"
	"github.com/spf13/cobra"
)

func newFetchSecretsCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-secrets",
		Short: "Reload runtime secrets for enabled projects (run at boot by the loader unit)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects := project.Discover(st.opts.BaseDir, st.log)
			mgr, closeFn, err := st.newManager(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			return mgr.FetchAll(cmd.Context(), project.Sorted(projects))
		},
	}
}
