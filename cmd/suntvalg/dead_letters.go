package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var deadLetterLimit int

var deadLettersCmd = &cobra.Command{
	Use:   "dead-letters",
	Short: "Inspect and retry failed background jobs",
}

var deadLettersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List failed jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		failures, err := a.failures.List(cmd.Context(), deadLetterLimit)
		if err != nil {
			return err
		}
		if len(failures) == 0 {
			fmt.Println("no failed jobs")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tATTEMPTS\tNEXT ATTEMPT\tLAST ERROR")
		for _, f := range failures {
			next := "parked"
			if f.NextAttemptAt != nil {
				next = f.NextAttemptAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", f.ID, f.Kind, f.Attempts, next, truncate(f.LastError, 60))
		}
		return w.Flush()
	},
}

var deadLettersRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Run due failed jobs now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.deadLetters.Retry(cmd.Context(), deadLetterLimit)
		if err != nil {
			return err
		}
		fmt.Printf("succeeded: %d, failed: %d, parked: %d\n", stats.Succeeded, stats.Failed, stats.Parked)
		return nil
	},
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	deadLettersCmd.PersistentFlags().IntVar(&deadLetterLimit, "limit", 50, "Maximum number of jobs")
	deadLettersCmd.AddCommand(deadLettersListCmd)
	deadLettersCmd.AddCommand(deadLettersRetryCmd)
}
