package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"abicompat/internal/output"
	"abicompat/internal/report"
	"abicompat/internal/rules"
)

var (
	rulesPath   string
	rulesFormat string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective rule table",
	Long: `Print every change kind with its source and ABI severity and rationale,
plus the unfinalize policy and any overrides.

Examples:
  abicompat rules
  abicompat rules --rules team-rules.toml --format=json`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().StringVar(&rulesPath, "rules", "", "TOML rule table (default from config, then built-in)")
	rulesCmd.Flags().StringVar(&rulesFormat, "format", "text", "Output format: json or text")

	rootCmd.AddCommand(rulesCmd)
}

// rulesResponse is the JSON form of a rule table.
type rulesResponse struct {
	Version          string         `json:"version"`
	UnfinalizePolicy rules.Severity `json:"unfinalizePolicy"`
	Rules            []rules.Rule   `json:"rules"`
	Overrides        []ruleOverride `json:"overrides,omitempty"`
}

type ruleOverride struct {
	When      string         `json:"when"`
	Severity  rules.Severity `json:"severity"`
	Rationale string         `json:"rationale,omitempty"`
}

func runRules(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(rulesFormat)
	if err != nil {
		return inputError(err)
	}
	path := firstNonEmpty(rulesPath, app.config.RulesPath(app.root))
	table, err := loadRuleTable(path, app.config.Rules.UnfinalizePolicy)
	if err != nil {
		return inputError(err)
	}
	return writeRules(cmd.OutOrStdout(), table, format)
}

func writeRules(w io.Writer, table *rules.Table, format report.Format) error {
	resp := rulesResponse{
		Version:          table.Version(),
		UnfinalizePolicy: table.UnfinalizePolicy(),
		Rules:            table.Rules(),
	}
	for _, o := range table.Overrides() {
		resp.Overrides = append(resp.Overrides, ruleOverride{When: o.When, Severity: o.Severity, Rationale: o.Rationale})
	}

	if format == report.FormatJSON {
		data, err := output.DeterministicEncodeIndented(resp, "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintf(w, "Rule table %s (unfinalize: %s)\n\n", resp.Version, resp.UnfinalizePolicy)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSEVERITY\tSOURCE\tABI\tRATIONALE")
	for _, r := range resp.Rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Kind, r.Severity(), r.Source, r.ABI, r.Rationale)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(resp.Overrides) > 0 {
		fmt.Fprintln(w, "\nOverrides:")
		for _, o := range resp.Overrides {
			fmt.Fprintf(w, "  %s -> %s", o.When, o.Severity)
			if o.Rationale != "" {
				fmt.Fprintf(w, " (%s)", o.Rationale)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}
