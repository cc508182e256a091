package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/example/podunit/internal/project"
	"github.com/spf13/cobra"
)

func newUpCommand(st *rootState) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "up [PROJECT|CONTAINER...]",
		Short: "Inject secrets, recreate containers and generate units",
		Long:  "up manages the named projects (a project directory, service or container name), or every enabled project with --all. Disabled projects named explicitly need confirmation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("name at least one project or pass --all (see 'podunit list')")
			}
			projects := project.Discover(st.opts.BaseDir, st.log)
			selected, err := selectProjects(cmd, st, projects, args, all)
			if err != nil {
				return err
			}
			if len(selected) == 0 {
				if all {
					fmt.Fprintln(cmd.OutOrStdout(), "No enabled projects found. Run 'podunit list' to see all projects.")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No projects to manage.")
				}
				return nil
			}
			mgr, closeFn, err := st.newManager(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			_, err = mgr.Run(cmd.Context(), selected)
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Manage every enabled project")
	cmd.Flags().BoolVar(&st.opts.DryRun, "dry-run", false, "Show what would happen without changing anything")
	cmd.Flags().BoolVar(&st.opts.ShowSecrets, "show-secrets", false, "With --dry-run, fetch secrets and show masked values and the rewritten manifest")
	cmd.Flags().BoolVarP(&st.opts.Yes, "yes", "y", false, "Start disabled projects without asking")
	return cmd
}

// selectProjects resolves names to projects in argument order. Unknown names
// are reported and skipped; disabled projects are confirmed one by one.
func selectProjects(cmd *cobra.Command, st *rootState, projects map[string]*project.Descriptor, names []string, all bool) ([]*project.Descriptor, error) {
	if all {
		return project.Enabled(projects), nil
	}
	errOut := cmd.ErrOrStderr()
	dec := approvalMode(cmd, st.opts.Yes)
	seen := map[string]struct{}{}
	var out []*project.Descriptor
	for _, name := range names {
		d, ok := project.Locate(projects, name)
		if !ok {
			reportMissing(errOut, name, projects)
			continue
		}
		if _, dup := seen[d.Name]; dup {
			continue
		}
		if !d.Config.Enabled {
			fmt.Fprintf(errOut, "Warning: project %q is disabled (x-config.enabled=false)\n", d.Name)
			err := confirmAction(cmd.Context(), cmd.InOrStdin(), errOut, dec, "Start it anyway? (y/N):")
			if errors.Is(err, errNotConfirmed) {
				fmt.Fprintf(errOut, "Skipping %s\n", d.Name)
				continue
			}
			if err != nil {
				return nil, err
			}
		}
		seen[d.Name] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

func reportMissing(out io.Writer, name string, projects map[string]*project.Descriptor) {
	fmt.Fprintf(out, "Project not found: %s\n", name)
	if names := project.Names(projects); len(names) > 0 {
		fmt.Fprintf(out, "  Available projects: %s\n", strings.Join(names, ", "))
	}
}
