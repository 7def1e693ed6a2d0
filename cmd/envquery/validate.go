package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/envquery"
	"github.com/hupe1980/envquery/model"
	"github.com/hupe1980/envquery/template"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check template files",
		Long: `Load template files and check every query builds and registers.

Examples:
  envquery validate cover.toml patrol.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := template.NewRegistry()
			m := envquery.New(model.NewSimpleWorld())
			out := cmd.OutOrStdout()

			for _, path := range args {
				queries, err := reg.LoadFile(path)
				if err != nil {
					return err
				}
				names := make([]string, 0, len(queries))
				for _, q := range queries {
					if err := m.RegisterTemplate(q); err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					names = append(names, q.Name)
				}
				fmt.Fprintf(out, "%s: %d queries OK (%s)\n", path, len(queries), strings.Join(names, ", "))
			}
			return nil
		},
	}
}
