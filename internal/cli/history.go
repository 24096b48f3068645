package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs, or the account transitions and workers of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			journal, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer journal.Close()

			ctx := cmd.Context()
			if runID == "" {
				runs, err := journal.ListRuns(ctx, limit)
				if err != nil {
					return fmt.Errorf("failed to list runs: %w", err)
				}
				if jsonFlag {
					return printJSON(toJSONRuns(runs))
				}
				if len(runs) == 0 {
					fmt.Println("No runs recorded.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "RUN\tSTARTED\tFINISHED\tACCOUNTS")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.ID, formatTime(r.StartedAt), formatTime(r.FinishedAt), r.Accounts)
				}
				return w.Flush()
			}

			events, err := journal.ListAccountEvents(ctx, runID)
			if err != nil {
				return fmt.Errorf("failed to list account events: %w", err)
			}
			workers, err := journal.ListWorkerResults(ctx, runID)
			if err != nil {
				return fmt.Errorf("failed to list worker results: %w", err)
			}
			if jsonFlag {
				return printJSON(jsonRunDetail{
					RunID:   runID,
					Events:  toJSONAccountEvents(events),
					Workers: toJSONWorkerResults(workers),
				})
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tACCOUNT\tSTATE\tDETAIL")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", formatTime(e.CreatedAt), e.AccountID, e.State, e.Detail)
			}
			if len(workers) > 0 {
				fmt.Fprintln(w, "\nWORKER\tPID\tSTATUS\tRESULT")
				for _, r := range workers {
					result := fmt.Sprintf("%d deleted, %d created, %d failed", r.Deleted, r.Created, r.Failed)
					if r.Error != "" {
						result = r.Error
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.AccountID, r.PID, r.Status(), result)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show the transitions of one run")
	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
