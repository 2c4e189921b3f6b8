package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newResumeCmd(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "resume [run-id]",
		Short: "Continue a failed run after its last completed stage",
		Long: `Continue a failed run after its last completed stage. Without a run id the
most recent run is resumed. --list shows the recorded runs instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			p, closeStore, err := a.pipeline(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runs, err := p.Runs(ctx)
			if err != nil {
				return err
			}
			if list {
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tLAST STAGE\tSAVED")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", r.RunID, r.StageID, r.Timestamp.Format(time.DateTime))
				}
				return tw.Flush()
			}

			var runID string
			switch {
			case len(args) == 1:
				runID = args[0]
			case len(runs) > 0:
				runID = runs[0].RunID
			default:
				return fmt.Errorf("no recorded runs in %s", cfg.CheckpointDB)
			}

			state, err := p.Resume(ctx, runID)
			if err != nil {
				a.logFailure(err)
				return err
			}
			a.report(state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list recorded runs, newest first")
	return cmd
}
