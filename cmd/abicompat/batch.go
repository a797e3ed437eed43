package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/output"
	"abicompat/internal/report"
	"abicompat/internal/rules"
	"abicompat/internal/verdict"
)

var (
	batchFormat   string
	batchFailOn   string
	batchParallel int
	batchRecord   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Compare many model pairs with one rule table",
	Long: `Compare every pair listed in a YAML manifest concurrently. All pairs share
one rule table and one snapshot cache, so a baseline used by several pairs is
loaded once. The exit code is the worst exit code of any pair.

Manifest:
  rules: team-rules.toml     # optional, relative to the manifest
  failOn: breaking           # optional
  format: json               # report format for outputDir
  outputDir: reports         # optional; one report per pair
  pairs:
    - name: core
      old: v1/core.yaml
      new: v2/core.yaml

Examples:
  abicompat batch release.yaml
  abicompat batch release.yaml --parallel 4 --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchFormat, "format", "", "Summary format: json or text")
	batchCmd.Flags().StringVar(&batchFailOn, "fail-on", "", "Severity that fails a pair: breaking or warning")
	batchCmd.Flags().IntVar(&batchParallel, "parallel", 0, "Pairs compared at once (0 = one per CPU)")
	batchCmd.Flags().BoolVar(&batchRecord, "record", false, "Store every run in the history database")

	rootCmd.AddCommand(batchCmd)
}

// batchManifest is the YAML batch description.
type batchManifest struct {
	Rules     string      `yaml:"rules"`
	FailOn    string      `yaml:"failOn"`
	Format    string      `yaml:"format"`
	OutputDir string      `yaml:"outputDir"`
	Pairs     []batchPair `yaml:"pairs"`
}

type batchPair struct {
	Name string `yaml:"name"`
	Old  string `yaml:"old"`
	New  string `yaml:"new"`
}

// batchResult is the outcome of one pair.
type batchResult struct {
	Name         string `json:"name"`
	Old          string `json:"old"`
	New          string `json:"new"`
	Overall      string `json:"overall,omitempty"`
	SemverAdvice string `json:"semverAdvice,omitempty"`
	Breaking     int    `json:"breaking"`
	Warnings     int    `json:"warnings"`
	Safe         int    `json:"safe"`
	Report       string `json:"report,omitempty"`
	Error        string `json:"error,omitempty"`
	ExitCode     int    `json:"exitCode"`
}

// batchSummary is the batch command output.
type batchSummary struct {
	RulesVersion string        `json:"rulesVersion"`
	FailOn       string        `json:"failOn"`
	ExitCode     int           `json:"exitCode"`
	Pairs        []batchResult `json:"pairs"`
}

// readManifest parses the manifest at path and resolves its relative paths
// against the manifest's directory.
func readManifest(path string) (*batchManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, abierrors.New(abierrors.InputNotFound, fmt.Sprintf("batch manifest not found at %s", path), err, nil)
	}
	var m batchManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, abierrors.New(abierrors.MalformedInput, fmt.Sprintf("cannot parse batch manifest %s", path), err, nil)
	}
	if len(m.Pairs) == 0 {
		return nil, abierrors.New(abierrors.MalformedInput, fmt.Sprintf("batch manifest %s lists no pairs", path), nil, nil)
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	m.Rules = resolve(m.Rules)
	m.OutputDir = resolve(m.OutputDir)

	seen := make(map[string]bool, len(m.Pairs))
	for i := range m.Pairs {
		pair := &m.Pairs[i]
		if pair.Name == "" {
			pair.Name = fmt.Sprintf("pair-%d", i+1)
		}
		if pair.Old == "" || pair.New == "" {
			return nil, abierrors.New(abierrors.MalformedInput,
				fmt.Sprintf("batch pair %q needs both old and new", pair.Name), nil, nil).WithIdentity(pair.Name)
		}
		if seen[pair.Name] {
			return nil, abierrors.New(abierrors.MalformedInput,
				fmt.Sprintf("duplicate batch pair name %q", pair.Name), nil, nil).WithIdentity(pair.Name)
		}
		seen[pair.Name] = true
		pair.Old = resolve(pair.Old)
		pair.New = resolve(pair.New)
	}
	return &m, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	start := time.Now()
	cfg := app.config
	logger := app.logger

	m, err := readManifest(args[0])
	if err != nil {
		return inputError(err)
	}
	summaryFormat, err := report.ParseFormat(firstNonEmpty(batchFormat, cfg.Report.Format))
	if err != nil {
		return inputError(err)
	}
	reportFormat, err := report.ParseFormat(firstNonEmpty(m.Format, string(summaryFormat)))
	if err != nil {
		return inputError(err)
	}
	failOn, err := parseFailOn(firstNonEmpty(batchFailOn, m.FailOn, cfg.Report.FailOn))
	if err != nil {
		return inputError(err)
	}

	opts := optionsFromConfig(cfg, app.root)
	if m.Rules != "" {
		opts.RulesPath = m.Rules
	}
	opts.CacheSize = 2 * len(m.Pairs)
	p, err := newPipeline(opts, logger)
	if err != nil {
		return inputError(err)
	}

	results := make([]batchResult, len(m.Pairs))
	ctx := newContext()
	var g errgroup.Group
	if batchParallel > 0 {
		g.SetLimit(batchParallel)
	}
	for i, pair := range m.Pairs {
		g.Go(func() error {
			res, v := runPair(ctx, p, pair, m.OutputDir, reportFormat, failOn)
			results[i] = res
			if v != nil && (batchRecord || cfg.History.Enabled) {
				recordRun(cfg, app.root, v, pair.Old, pair.New, logger)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := batchSummary{
		RulesVersion: p.table.Version(),
		FailOn:       failOn.String(),
		Pairs:        results,
	}
	for _, r := range results {
		if r.ExitCode > summary.ExitCode {
			summary.ExitCode = r.ExitCode
		}
	}
	if err := writeBatchSummary(cmd.OutOrStdout(), &summary, summaryFormat); err != nil {
		return err
	}

	logger.Info("Batch completed",
		"pairs", len(results),
		"exitCode", summary.ExitCode,
		"duration", time.Since(start).Milliseconds(),
	)
	if summary.ExitCode != ExitOK {
		return &exitError{code: summary.ExitCode}
	}
	return nil
}

// runPair compares one pair. It never fails: errors are folded into the
// result with exit code 2 and a nil verdict.
func runPair(ctx context.Context, p *pipeline, pair batchPair, outDir string, format report.Format, failOn rules.Severity) (batchResult, *verdict.Verdict) {
	res := batchResult{Name: pair.Name, Old: pair.Old, New: pair.New}
	v, err := p.run(ctx, pair.Old, pair.New)
	if err != nil {
		res.Error = err.Error()
		res.ExitCode = exitCodeOf(err)
		if res.ExitCode == ExitOK {
			res.ExitCode = ExitInput
		}
		p.logger.Warn("Batch pair failed", "pair", pair.Name, "error", err)
		return res, nil
	}

	fillResult(&res, v)
	res.ExitCode = thresholdCode(v, failOn)
	if outDir != "" {
		res.Report = filepath.Join(outDir, pair.Name+reportExt(format))
		if err := writeReport(io.Discard, res.Report, v, format); err != nil {
			res.Error = err.Error()
			res.ExitCode = ExitInput
		}
	}
	return res, v
}

func reportExt(format report.Format) string {
	if format == report.FormatJSON {
		return ".json"
	}
	return ".txt"
}

func fillResult(res *batchResult, v *verdict.Verdict) {
	res.Overall = v.Overall.String()
	res.SemverAdvice = v.SemverAdvice
	res.Breaking = v.Summary.BreakingChanges
	res.Warnings = v.Summary.Warnings
	res.Safe = v.Summary.SafeChanges
}

func writeBatchSummary(w io.Writer, s *batchSummary, format report.Format) error {
	if format == report.FormatJSON {
		data, err := output.DeterministicEncodeIndented(s, "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintf(w, "Batch Compatibility Summary (rules %s, fail on %s)\n\n", s.RulesVersion, s.FailOn)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAIR\tOVERALL\tSEMVER\tBREAKING\tWARNINGS\tSAFE\tEXIT")
	for _, r := range s.Pairs {
		overall := r.Overall
		if r.Error != "" {
			overall = "error"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.Name, overall, r.SemverAdvice, r.Breaking, r.Warnings, r.Safe, r.ExitCode)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, r := range s.Pairs {
		if r.Error != "" {
			fmt.Fprintf(w, "\n%s: %s", r.Name, strings.TrimSpace(r.Error))
		}
	}
	_, err := fmt.Fprintf(w, "\nExit code: %d\n", s.ExitCode)
	return err
}
