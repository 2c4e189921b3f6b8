package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/batch"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/workflow"
)

var dayStyle = lipgloss.NewStyle().Bold(true)

func newBatchesCmd(a *app) *cobra.Command {
	var watershedsOf string
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List batches grouped by day",
		Long: `List the hydrology batches under the output directory grouped by day.
With --watersheds, list the watershed batches of one hydrology batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			root := cfg.Output
			if watershedsOf != "" {
				if _, err := os.Stat(watershedsOf); err != nil {
					return &errors.IOError{Op: "open hydro batch", Path: watershedsOf, Err: err}
				}
				root = filepath.Join(watershedsOf, workflow.WatershedCalcsDir)
			}
			entries, err := batch.List(root)
			// A hydro batch gets watershed_calcs with its first watershed run.
			if watershedsOf != "" && stderrors.Is(err, os.ErrNotExist) {
				entries, err = nil, nil
			}
			if err != nil {
				return err
			}
			return printBatches(a, root, entries)
		},
	}
	cmd.Flags().StringVar(&watershedsOf, "watersheds", "", "hydrology batch whose watershed batches to list")
	return cmd
}

func printBatches(a *app, root string, entries []batch.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintf(a.stdout, "no batches in %s\n", root)
		return err
	}
	for _, day := range batch.GroupByDay(entries) {
		fmt.Fprintln(a.stdout, dayStyle.Render(day.Label))
		for _, e := range day.Entries {
			fmt.Fprintf(a.stdout, "  %s  %s\n", e.Time, e.Path)
		}
	}
	return nil
}
