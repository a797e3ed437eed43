package rules

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// OverrideEnv is the environment override expressions are evaluated against.
type OverrideEnv struct {
	Kind       string `expr:"kind"`
	Symbol     string `expr:"symbol"`
	Signature  string `expr:"signature"`
	Owner      string `expr:"owner"`
	DeclKind   string `expr:"declKind"`
	Severity   string `expr:"severity"`
	Source     string `expr:"source"`
	ABI        string `expr:"abi"`
	Visibility string `expr:"visibility"`
	Virtual    bool   `expr:"virtual"`
	File       string `expr:"file"`
}

// Override reclassifies records for which When evaluates to true.
type Override struct {
	When      string
	Severity  Severity
	Rationale string
	program   *vm.Program
}

func compileOverride(when string, s Severity, rationale string) (*Override, error) {
	program, err := expr.Compile(when, expr.Env(OverrideEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("override %q: failed to compile expression: %w", when, err)
	}
	return &Override{When: when, Severity: s, Rationale: rationale, program: program}, nil
}

// Matches runs the compiled expression against env.
func (o *Override) Matches(env OverrideEnv) (bool, error) {
	output, err := expr.Run(o.program, env)
	if err != nil {
		return false, err
	}
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("override %q: expression did not return bool", o.When)
	}
	return result, nil
}

// apply runs every override in order against rec.
func (t *Table) apply(rec ChangeRecord, visibility string, virtual bool) ChangeRecord {
	for _, o := range t.overrides {
		env := OverrideEnv{
			Kind:       string(rec.Kind),
			Symbol:     rec.Symbol,
			Signature:  rec.Signature,
			Owner:      rec.Owner,
			DeclKind:   rec.DeclKind,
			Severity:   rec.Severity.String(),
			Source:     rec.Source.String(),
			ABI:        rec.ABI.String(),
			Visibility: visibility,
			Virtual:    virtual,
			File:       rec.File,
		}
		ok, err := o.Matches(env)
		if err != nil || !ok {
			continue
		}
		rec.Source, rec.ABI, rec.Severity = o.Severity, o.Severity, o.Severity
		if o.Rationale != "" {
			rec.Rationale = o.Rationale
		}
		rec.Overridden = true
	}
	return rec
}
