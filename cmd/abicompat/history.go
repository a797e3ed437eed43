package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/history"
	"abicompat/internal/output"
	"abicompat/internal/report"
	"abicompat/internal/verdict"
)

var (
	historyLimit     int
	historyOverall   string
	historyFormat    string
	historyOlderThan time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded comparison runs",
	Long: `Runs are recorded by compare --record, batch --record, or when
history.enabled is set in .abicompat/config.json.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Long: `List recorded runs, newest first.

Examples:
  abicompat history list
  abicompat history list --limit 5 --overall breaking`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the report of a recorded run",
	Long: `Re-render the report of a recorded run. A unique ID prefix is enough.

Examples:
  abicompat history show 3f2a9c1e
  abicompat history show 3f2a --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than a retention period",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list")
	historyListCmd.Flags().StringVar(&historyOverall, "overall", "", "Only runs with this overall severity")
	historyListCmd.Flags().StringVar(&historyFormat, "format", "text", "Output format: json or text")
	historyShowCmd.Flags().StringVar(&historyFormat, "format", "text", "Output format: json or text")
	historyPruneCmd.Flags().DurationVar(&historyOlderThan, "older-than", 30*24*time.Hour, "Retention period")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory() (*history.Store, error) {
	store, err := history.Open(app.config.HistoryPath(app.root), app.logger)
	if err != nil {
		return nil, inputError(err)
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(historyFormat)
	if err != nil {
		return inputError(err)
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.List(history.ListOptions{Limit: historyLimit, Overall: historyOverall})
	if err != nil {
		return err
	}
	return writeRuns(cmd.OutOrStdout(), runs, format)
}

func writeRuns(w io.Writer, runs []*history.Run, format report.Format) error {
	if format == report.FormatJSON {
		if runs == nil {
			runs = []*history.Run{}
		}
		data, err := output.DeterministicEncodeIndented(runs, "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No recorded runs.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tOLD\tNEW\tOVERALL\tSEMVER\tBREAKING\tWARNINGS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ShortID(),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.OldLabel,
			r.NewLabel,
			r.Overall,
			r.SemverAdvice,
			r.Breaking,
			r.Warnings,
		)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(historyFormat)
	if err != nil {
		return inputError(err)
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.Get(args[0])
	if err != nil {
		return inputError(err)
	}
	if run == nil {
		return inputError(abierrors.New(abierrors.InputNotFound, fmt.Sprintf("no recorded run matches %q", args[0]), nil, nil))
	}
	if run.Report == "" {
		return inputError(abierrors.New(abierrors.InputNotFound, fmt.Sprintf("run %s has no stored report", run.ShortID()), nil, nil))
	}

	if format == report.FormatJSON {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), run.Report)
		return err
	}
	var v verdict.Verdict
	if err := json.Unmarshal([]byte(run.Report), &v); err != nil {
		return abierrors.New(abierrors.InternalError, "stored report is not valid JSON", err, nil)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run %s recorded %s\n\n", run.ID, run.CreatedAt.Local().Format(time.RFC1123))
	return writeReport(cmd.OutOrStdout(), "", &v, report.FormatText)
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	n, err := store.Prune(historyOlderThan)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d run(s) older than %s.\n", n, historyOlderThan)
	return err
}
