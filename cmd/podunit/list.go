package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/example/podunit/internal/project"
	"github.com/example/podunit/internal/ui"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const minServicesWidth = 16

func newListCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered compose projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects := project.Discover(st.opts.BaseDir, st.log)
			width, _ := ui.TerminalWidth(cmd.OutOrStdout())
			printProjects(cmd.OutOrStdout(), st.opts.BaseDir, projects, width)
			return nil
		},
	}
}

// printProjects renders one row per project. width is the terminal width, or
// zero to leave the services column untrimmed.
func printProjects(out io.Writer, baseDir string, projects map[string]*project.Descriptor, width int) {
	if len(projects) == 0 {
		fmt.Fprintf(out, "No compose projects found in %s\n", baseDir)
		return
	}
	sorted := project.Sorted(projects)
	servicesWidth := 0
	if width > 0 {
		servicesWidth = width - fixedColumnsWidth(sorted)
		if servicesWidth < minServicesWidth {
			servicesWidth = minServicesWidth
		}
	}

	fmt.Fprintf(out, "Projects in %s:\n", baseDir)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tSTATUS\tREMOTE\tSECRET\tPARAMS\tSERVICES")
	enabled := 0
	for _, d := range sorted {
		if d.Config.Enabled {
			enabled++
		}
		secret, params := "-", "-"
		if d.Config.EnableRemoteIntegration {
			secret, params = d.SecretName(), d.ParamsName()
		}
		services := strings.Join(d.Services, ", ")
		if servicesWidth > 0 {
			services = ui.TrimToWidth(services, servicesWidth)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Name,
			formatEnabled(d.Config.Enabled),
			formatBool(d.Config.EnableRemoteIntegration),
			secret,
			params,
			dashIfEmpty(services),
		)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "\nTotal: %d project(s), %d enabled, %d disabled\n", len(sorted), enabled, len(sorted)-enabled)
}

// fixedColumnsWidth estimates the width of every column but SERVICES.
func fixedColumnsWidth(projects []*project.Descriptor) int {
	cols := []int{len("PROJECT"), len("disabled"), len("REMOTE"), len("SECRET"), len("PARAMS")}
	for _, d := range projects {
		cols[0] = max(cols[0], len(d.Name))
		if d.Config.EnableRemoteIntegration {
			cols[3] = max(cols[3], len(d.SecretName()))
			cols[4] = max(cols[4], len(d.ParamsName()))
		}
	}
	total := 0
	for _, c := range cols {
		total += c + 2
	}
	return total
}

func formatEnabled(enabled bool) string {
	if color.NoColor {
		if enabled {
			return "enabled"
		}
		return "disabled"
	}
	if enabled {
		return color.New(color.FgGreen).Sprint("enabled")
	}
	return color.New(color.FgYellow).Sprint("disabled")
}

func formatBool(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func dashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
