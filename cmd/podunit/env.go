// File: cmd/podunit/env.go
// Brief: 'env' lists the environment variables podunit reads.

package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/example/podunit/internal/envcatalog"
	"github.com/example/podunit/internal/secretstore"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

type envRow struct {
	Category    string `json:"category"`
	Variable    string `json:"variable"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description"`
}

func envRows() []envRow {
	rows := envcatalog.Catalog()
	out := make([]envRow, 0, len(rows))
	for _, row := range rows {
		value := ""
		if !row.Dynamic {
			value = strings.TrimSpace(os.Getenv(row.Name))
		}
		if row.Sensitive && value != "" {
			value = secretstore.Mask(value, 4)
		}
		out = append(out, envRow{
			Category:    row.Category,
			Variable:    row.Name,
			Value:       value,
			Description: row.Description,
		})
	}
	slices.SortFunc(out, func(a, b envRow) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Variable, b.Variable))
	})
	return out
}

func filterEnvRows(rows []envRow, category string, onlySet bool) []envRow {
	category = strings.TrimSpace(category)
	out := rows[:0]
	for _, row := range rows {
		if category != "" && !strings.EqualFold(row.Category, category) {
			continue
		}
		if onlySet && row.Value == "" {
			continue
		}
		out = append(out, row)
	}
	return out
}

// renderEnvRows writes rows in the requested format.
func renderEnvRows(w io.Writer, rows []envRow, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tVARIABLE\tVALUE\tDESCRIPTION")
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Category, row.Variable, dashIfEmpty(row.Value), row.Description)
		}
		return tw.Flush()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml", "yml":
		b, err := yaml.Marshal(rows)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("unsupported --format %q (expected table, json, or yaml)", format)
	}
}

func newEnvCommand() *cobra.Command {
	var format string
	var onlySet bool
	var category string

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show environment variables used by podunit",
		Long:  "Show the environment variables podunit reads. Sensitive values are masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderEnvRows(cmd.OutOrStdout(), filterEnvRows(envRows(), category, onlySet), format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json, yaml")
	cmd.Flags().BoolVar(&onlySet, "set", false, "Show only variables with a non-empty value")
	cmd.Flags().StringVar(&category, "category", "", "Filter to a category (case-insensitive)")
	return cmd
}
