package main

import (
	"time"

	"github.com/spf13/cobra"

	"abicompat/internal/report"
)

var (
	compareFormat         string
	compareFailOn         string
	compareRules          string
	compareOutput         string
	compareWorkers        int
	compareIncludePrivate bool
	compareInclude        []string
	compareExclude        []string
	compareRecord         bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <old-model> <new-model>",
	Short: "Compare two versions of a library interface",
	Long: `Compare the declaration models of two library versions and report every
API/ABI change with its severity.

Exit codes:
  0  no change at or above the --fail-on threshold
  1  a change reached the threshold
  2  an input, model or configuration error

Examples:
  abicompat compare v1/model.yaml v2/model.yaml
  abicompat compare old.json new.json --format=json -o report.json
  abicompat compare old.scip new.scip --fail-on=warning
  abicompat compare old.yaml new.yaml --include 'include/public/**'
  abicompat compare old.yaml new.yaml --rules team-rules.toml --record`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&compareFormat, "format", "", "Report format: json or text (default from config, text)")
	compareCmd.Flags().StringVar(&compareFailOn, "fail-on", "", "Severity that fails the run: breaking or warning (default from config, breaking)")
	compareCmd.Flags().StringVar(&compareRules, "rules", "", "TOML rule table replacing the built-in rules")
	compareCmd.Flags().StringVarP(&compareOutput, "output", "o", "", "Write the report to a file instead of stdout")
	compareCmd.Flags().IntVar(&compareWorkers, "workers", 0, "Concurrent symbol evaluations (0 = config, then one per CPU)")
	compareCmd.Flags().BoolVar(&compareIncludePrivate, "include-private", false, "Also compare private non-virtual members")
	compareCmd.Flags().StringSliceVar(&compareInclude, "include", nil, "Only compare declarations from files matching these globs")
	compareCmd.Flags().StringSliceVar(&compareExclude, "exclude", nil, "Skip declarations from files matching these globs")
	compareCmd.Flags().BoolVar(&compareRecord, "record", false, "Store the run in the history database")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	start := time.Now()
	cfg := app.config
	logger := app.logger

	format, err := report.ParseFormat(firstNonEmpty(compareFormat, cfg.Report.Format))
	if err != nil {
		return inputError(err)
	}
	failOn, err := parseFailOn(firstNonEmpty(compareFailOn, cfg.Report.FailOn))
	if err != nil {
		return inputError(err)
	}

	opts := optionsFromConfig(cfg, app.root)
	if compareRules != "" {
		opts.RulesPath = compareRules
	}
	if compareWorkers > 0 {
		opts.Workers = compareWorkers
	}
	if compareIncludePrivate {
		opts.IncludePrivate = true
	}
	if len(compareInclude) > 0 {
		opts.Scope.Include = compareInclude
	}
	if len(compareExclude) > 0 {
		opts.Scope.Exclude = compareExclude
	}

	p, err := newPipeline(opts, logger)
	if err != nil {
		return inputError(err)
	}
	v, err := p.run(newContext(), args[0], args[1])
	if err != nil {
		return err
	}
	if err := writeReport(cmd.OutOrStdout(), compareOutput, v, format); err != nil {
		return err
	}
	if compareRecord || cfg.History.Enabled {
		recordRun(cfg, app.root, v, args[0], args[1], logger)
	}

	logger.Info("Comparison completed",
		"old", v.Old.Label,
		"new", v.New.Label,
		"overall", v.Overall.String(),
		"records", len(v.Records),
		"duration", time.Since(start).Milliseconds(),
	)

	if thresholdCode(v, failOn) != ExitOK {
		return errThresholdExceeded
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
