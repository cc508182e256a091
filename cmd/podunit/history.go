package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/example/podunit/internal/history"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newHistoryCommand(st *rootState) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent project runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(st.opts.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()
			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tPROJECT\tOUTCOME\tDURATION\tSERVICES\tERROR")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Project,
					formatOutcome(run.Outcome),
					run.FinishedAt.Sub(run.StartedAt).Round(time.Second),
					dashIfEmpty(strings.Join(run.Services, ",")),
					dashIfEmpty(run.Error),
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}

func formatOutcome(outcome string) string {
	if color.NoColor {
		return outcome
	}
	switch outcome {
	case history.OutcomeSuccess:
		return color.New(color.FgGreen).Sprint(outcome)
	case history.OutcomeFailed:
		return color.New(color.FgRed).Sprint(outcome)
	default:
		return color.New(color.FgYellow).Sprint(outcome)
	}
}
