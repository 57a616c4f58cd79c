package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/gocontext-review/internal/storage"
)

var runsLimit int
var runsJSON bool

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded analysis runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ledger storage.Storage) error {
			runs, err := ledger.ListRuns(cmd.Context(), runsLimit)
			if err != nil {
				return err
			}
			if runsJSON {
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its results and diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ledger storage.Storage) error {
			ctx := cmd.Context()
			run, err := ledger.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			results, err := ledger.ListResults(ctx, run.ID)
			if err != nil {
				return err
			}
			diags, err := ledger.ListDiagnostics(ctx, run.ID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"run":         run,
				"results":     results,
				"diagnostics": diags,
			})
		})
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run and everything recorded for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ledger storage.Storage) error {
			if err := ledger.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		})
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", storage.DefaultListLimit, "maximum number of runs to list")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "print runs as JSON")
	runsCmd.AddCommand(runsShowCmd, runsDeleteCmd)
}

// withLedger opens the configured ledger for the duration of fn
func withLedger(cmd *cobra.Command, fn func(storage.Storage) error) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	if cfg.LedgerPath == "" {
		return &exitError{code: exitConfig, err: errors.New("no run ledger configured (use --db or ledger_path)")}
	}

	ledger, err := openLedger(cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer func() { _ = ledger.Close() }()

	return fn(ledger)
}

func printRuns(w io.Writer, runs []*storage.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTARTED\tSEGMENTS\tOK\tFAILED\tDURATION\tROOT")
	for _, r := range runs {
		duration := "-"
		if r.Finished() {
			duration = r.Duration().Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.Status, r.StartedAt.Local().Format(time.DateTime),
			r.Segments, r.Succeeded, r.Failed, duration, r.RootPath)
	}
	_ = tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
