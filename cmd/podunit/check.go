package main

import (
	"fmt"
	"strings"

	"github.com/example/podunit/internal/project"
	"github.com/example/podunit/pkg/compose"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCheckCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "check [PROJECT...]",
		Short: "Validate compose manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects := project.Discover(st.opts.BaseDir, st.log)
			targets := project.Sorted(projects)
			if len(args) > 0 {
				targets = targets[:0]
				for _, name := range args {
					d, ok := project.Locate(projects, name)
					if !ok {
						reportMissing(cmd.ErrOrStderr(), name, projects)
						continue
					}
					targets = append(targets, d)
				}
			}
			out := cmd.OutOrStdout()
			ok := color.New(color.FgGreen).Sprint("ok")
			bad := color.New(color.FgRed).Sprint("invalid")
			var failed []string
			for _, d := range targets {
				p, err := compose.ValidateFile(cmd.Context(), d.Name, d.ManifestPath)
				if err != nil {
					failed = append(failed, d.Name)
					fmt.Fprintf(out, "%s %s: %v\n", bad, d.Name, err)
					continue
				}
				fmt.Fprintf(out, "%s %s (%s)\n", ok, d.Name, strings.Join(p.Services, ", "))
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d manifest(s) failed validation: %s", len(failed), strings.Join(failed, ", "))
			}
			return nil
		},
	}
}
