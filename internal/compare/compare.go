// Package compare runs the matching, rule evaluation and classification
// stages over two snapshots.
package compare

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"abicompat/internal/matcher"
	"abicompat/internal/model"
	"abicompat/internal/rules"
	"abicompat/internal/slogutil"
	"abicompat/internal/verdict"
)

// Options tunes a comparison.
type Options struct {
	// Workers bounds the number of names processed concurrently.
	// Zero means runtime.NumCPU().
	Workers int
	// IncludePrivate keeps private non-virtual declarations.
	IncludePrivate bool
}

// Comparator compares snapshot pairs against one rule table. A Comparator
// is safe for concurrent use; batch mode shares one across pairs.
type Comparator struct {
	Table   *rules.Table
	Options Options
	Logger  *slog.Logger
}

// New returns a comparator for table (the default table when nil).
func New(table *rules.Table, opts Options, logger *slog.Logger) *Comparator {
	return &Comparator{Table: table, Options: opts, Logger: logger}
}

func (c *Comparator) logger() *slog.Logger {
	if c.Logger == nil {
		return slogutil.NewDiscardLogger()
	}
	return c.Logger
}

func (c *Comparator) workers() int {
	if c.Options.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Options.Workers
}

// Compare matches oldSnap against newSnap, evaluates every match and
// classifies the records. The result does not depend on the worker count.
// A canceled context returns the context error and no verdict.
func (c *Comparator) Compare(ctx context.Context, oldSnap, newSnap *model.Snapshot) (*verdict.Verdict, error) {
	start := time.Now()
	engine := rules.NewEngine(c.Table)
	evalCtx := rules.EvalContext{Old: oldSnap, New: newSnap}

	matches, err := matcher.Match(ctx, oldSnap, newSnap, matcher.Options{
		Workers:        c.Options.Workers,
		IncludePrivate: c.Options.IncludePrivate,
	})
	if err != nil {
		return nil, err
	}

	// One slot per match keeps the merge in match order.
	results := make([][]rules.ChangeRecord, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers())
	for i, m := range matches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = engine.Evaluate(evalCtx, m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []rules.ChangeRecord
	for _, r := range results {
		records = append(records, r...)
	}

	v := verdict.Classify(records, verdict.Meta{
		OldLabel:     oldSnap.Label(),
		NewLabel:     newSnap.Label(),
		OldDigest:    oldSnap.Digest(),
		NewDigest:    newSnap.Digest(),
		RulesVersion: engine.Table().Version(),
		OldCount:     oldSnap.Len(),
	})

	c.logger().Debug("Comparison completed",
		"old", oldSnap.Label(),
		"new", newSnap.Label(),
		"matches", len(matches),
		"records", len(v.Records),
		"overall", v.Overall.String(),
		"duration", time.Since(start).Milliseconds(),
	)
	return v, nil
}
