package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"abicompat/internal/compare"
	"abicompat/internal/config"
	"abicompat/internal/history"
	"abicompat/internal/loader"
	"abicompat/internal/report"
	"abicompat/internal/rules"
	"abicompat/internal/verdict"
)

// pipeline is everything a comparison needs besides its two inputs.
// One pipeline is shared by every pair of a batch.
type pipeline struct {
	table      *rules.Table
	loader     *loader.Loader
	comparator *compare.Comparator
	logger     *slog.Logger
}

// pipelineOptions are the resolved flag and config values.
type pipelineOptions struct {
	RulesPath      string
	Unfinalize     string
	Workers        int
	IncludePrivate bool
	Scope          loader.Scope
	CacheSize      int
}

// optionsFromConfig seeds pipeline options from configuration.
func optionsFromConfig(cfg *config.Config, root string) pipelineOptions {
	return pipelineOptions{
		RulesPath:      cfg.RulesPath(root),
		Unfinalize:     cfg.Rules.UnfinalizePolicy,
		Workers:        cfg.Engine.Workers,
		IncludePrivate: cfg.Engine.IncludePrivate,
		Scope:          loader.Scope{Include: cfg.Scope.Include, Exclude: cfg.Scope.Exclude},
	}
}

func newPipeline(opts pipelineOptions, logger *slog.Logger) (*pipeline, error) {
	table, err := loadRuleTable(opts.RulesPath, opts.Unfinalize)
	if err != nil {
		return nil, err
	}
	ld, err := loader.New(loader.Options{Scope: opts.Scope, CacheSize: opts.CacheSize, Logger: logger})
	if err != nil {
		return nil, err
	}
	cmp := compare.New(table, compare.Options{Workers: opts.Workers, IncludePrivate: opts.IncludePrivate}, logger)
	logger.Debug("Pipeline ready", "rules", table.Version(), "workers", opts.Workers, "includePrivate", opts.IncludePrivate)
	return &pipeline{table: table, loader: ld, comparator: cmp, logger: logger}, nil
}

// loadRuleTable reads the table at path, or builds the built-in table with
// the given unfinalize policy. A table file carries its own policy.
func loadRuleTable(path, unfinalize string) (*rules.Table, error) {
	if path != "" {
		return rules.LoadTable(path)
	}
	if unfinalize == "" {
		return rules.DefaultTable(), nil
	}
	sev, err := rules.ParseSeverity(unfinalize)
	if err != nil {
		return nil, err
	}
	if sev == rules.DefaultTable().UnfinalizePolicy() {
		return rules.DefaultTable(), nil
	}
	return rules.NewTable(
		rules.WithVersion(rules.DefaultVersion+"+unfinalize="+sev.String()),
		rules.WithUnfinalizePolicy(sev),
	)
}

// run loads both models and compares them. Load failures are input errors.
func (p *pipeline) run(ctx context.Context, oldPath, newPath string) (*verdict.Verdict, error) {
	oldSnap, err := p.loader.Load(oldPath)
	if err != nil {
		return nil, inputError(err)
	}
	newSnap, err := p.loader.Load(newPath)
	if err != nil {
		return nil, inputError(err)
	}
	return p.comparator.Compare(ctx, oldSnap, newSnap)
}

// writeReport renders v to path, or to w when path is empty.
func writeReport(w io.Writer, path string, v *verdict.Verdict, format report.Format) error {
	data, err := report.Render(v, format)
	if err != nil {
		return err
	}
	if path == "" {
		_, err = w.Write(data)
		if err == nil && (len(data) == 0 || data[len(data)-1] != '\n') {
			_, err = io.WriteString(w, "\n")
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// recordRun stores v in the run history. Failures are logged, never fatal.
func recordRun(cfg *config.Config, root string, v *verdict.Verdict, oldPath, newPath string, logger *slog.Logger) *history.Run {
	data, err := report.Render(v, report.FormatJSON)
	if err != nil {
		logger.Warn("Cannot render report for history", "error", err)
		return nil
	}
	store, err := history.Open(cfg.HistoryPath(root), logger)
	if err != nil {
		logger.Warn("Cannot open run history", "error", err)
		return nil
	}
	defer func() { _ = store.Close() }()

	run := history.NewRun(v, data, oldPath, newPath)
	if err := store.Record(run); err != nil {
		logger.Warn("Cannot record run", "error", err)
		return nil
	}
	logger.Info("Recorded run", "runId", run.ShortID(), "overall", run.Overall)
	return run
}
