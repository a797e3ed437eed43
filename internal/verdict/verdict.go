// Package verdict aggregates change records into per-symbol and overall
// severities, a change summary and an incompatibility score.
package verdict

import (
	"strings"

	"abicompat/internal/output"
	"abicompat/internal/rules"
)

// Score weights per record severity.
const (
	BreakingPoints = 10
	WarningPoints  = 1
)

// Semver bump suggestions.
const (
	SemverMajor = "major"
	SemverMinor = "minor"
	SemverPatch = "patch"
)

// Meta identifies the comparison a verdict belongs to.
type Meta struct {
	OldLabel     string
	NewLabel     string
	OldDigest    string
	NewDigest    string
	RulesVersion string
	OldCount     int // declarations in the old snapshot
}

// Side is one of the two compared versions.
type Side struct {
	Label  string `json:"label"`
	Digest string `json:"digest"`
}

// Verdict is the classified result of one comparison.
type Verdict struct {
	Old          Side                 `json:"old"`
	New          Side                 `json:"new"`
	RulesVersion string               `json:"rulesVersion"`
	Overall      rules.Severity       `json:"overall"`
	SemverAdvice string               `json:"semverAdvice"`
	Summary      *Summary             `json:"summary"`
	Score        Score                `json:"score"`
	Symbols      []SymbolVerdict      `json:"symbols"`
	Records      []rules.ChangeRecord `json:"records"`
}

// SymbolVerdict is the worst severity recorded against one qualified name.
type SymbolVerdict struct {
	Symbol   string         `json:"symbol"`
	Severity rules.Severity `json:"severity"`
	Kinds    []string       `json:"kinds"`
	Records  int            `json:"records"`
}

// Summary provides an overview of the changes.
type Summary struct {
	TotalChanges    int            `json:"totalChanges"`
	BreakingChanges int            `json:"breakingChanges"`
	Warnings        int            `json:"warnings"`
	SafeChanges     int            `json:"safeChanges"`
	Additions       int            `json:"additions"`
	ByKind          map[string]int `json:"byKind"`
}

// Score quantifies how incompatible the new version is.
type Score struct {
	Points             float64 `json:"points"`
	Percent            float64 `json:"percent"`
	AffectedOldSymbols int     `json:"affectedOldSymbols"`
	OldAPIBreakage     float64 `json:"oldApiBreakage"`
}

// Classify sorts records and derives the verdict. It does not modify the
// caller's slice.
func Classify(records []rules.ChangeRecord, meta Meta) *Verdict {
	sorted := append([]rules.ChangeRecord(nil), records...)
	rules.SortRecords(sorted)

	v := &Verdict{
		Old:          Side{Label: meta.OldLabel, Digest: meta.OldDigest},
		New:          Side{Label: meta.NewLabel, Digest: meta.NewDigest},
		RulesVersion: meta.RulesVersion,
		Overall:      rules.Safe,
		Records:      sorted,
		Symbols:      []SymbolVerdict{},
	}
	if v.Records == nil {
		v.Records = []rules.ChangeRecord{}
	}

	for _, r := range sorted {
		v.Overall = rules.Max(v.Overall, r.Severity)
	}
	v.Symbols = symbolVerdicts(sorted)
	v.Summary = computeSummary(sorted)
	v.Score = computeScore(sorted, meta.OldCount)
	v.SemverAdvice = computeSemverAdvice(v.Summary)
	return v
}

// AtLeast reports whether any record reaches threshold.
func (v *Verdict) AtLeast(threshold rules.Severity) bool {
	return len(v.Records) > 0 && v.Overall >= threshold
}

// Symbol returns the verdict for a qualified name, if any record names it.
func (v *Verdict) Symbol(name string) (SymbolVerdict, bool) {
	for _, s := range v.Symbols {
		if s.Symbol == name {
			return s, true
		}
	}
	return SymbolVerdict{}, false
}

// symbolVerdicts expects records sorted by symbol.
func symbolVerdicts(records []rules.ChangeRecord) []SymbolVerdict {
	out := []SymbolVerdict{}
	for _, r := range records {
		n := len(out)
		if n == 0 || out[n-1].Symbol != r.Symbol {
			out = append(out, SymbolVerdict{Symbol: r.Symbol, Severity: r.Severity})
			n++
		}
		sv := &out[n-1]
		sv.Severity = rules.Max(sv.Severity, r.Severity)
		sv.Records++
		if !containsString(sv.Kinds, string(r.Kind)) {
			sv.Kinds = append(sv.Kinds, string(r.Kind))
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func computeSummary(records []rules.ChangeRecord) *Summary {
	summary := &Summary{
		TotalChanges: len(records),
		ByKind:       make(map[string]int),
	}
	for _, r := range records {
		summary.ByKind[string(r.Kind)]++
		switch r.Severity {
		case rules.Breaking:
			summary.BreakingChanges++
		case rules.Warning:
			summary.Warnings++
		default:
			summary.SafeChanges++
			if isAddition(r) {
				summary.Additions++
			}
		}
	}
	return summary
}

// isAddition reports whether r describes a declaration that did not exist
// before.
func isAddition(r rules.ChangeRecord) bool {
	return r.Old == "" && r.New != ""
}

func computeScore(records []rules.ChangeRecord, oldCount int) Score {
	var s Score
	affected := make(map[string]bool)
	for _, r := range records {
		var pts float64
		switch r.Severity {
		case rules.Breaking:
			pts = BreakingPoints
		case rules.Warning:
			pts = WarningPoints
		}
		if r.Deprecated {
			pts /= 2
		}
		s.Points += pts

		if r.Severity != rules.Safe && touchesOld(r) {
			affected[r.Symbol+"\x00"+r.Signature] = true
		}
	}
	if len(records) > 0 {
		s.Percent = output.RoundFloat(s.Points / float64(len(records)*BreakingPoints) * 100)
	}
	s.AffectedOldSymbols = len(affected)
	if oldCount > 0 {
		ratio := float64(len(affected)) / float64(oldCount)
		if ratio > 1 {
			ratio = 1
		}
		s.OldAPIBreakage = output.RoundFloat(ratio * 100)
	}
	s.Points = output.RoundFloat(s.Points)
	return s
}

func touchesOld(r rules.ChangeRecord) bool {
	if r.Old != "" {
		return true
	}
	for _, c := range r.Candidates {
		if strings.HasPrefix(c, "old: ") {
			return true
		}
	}
	return false
}

// computeSemverAdvice suggests the appropriate version bump.
func computeSemverAdvice(summary *Summary) string {
	if summary.BreakingChanges > 0 {
		return SemverMajor
	}
	if summary.Warnings > 0 || summary.Additions > 0 {
		return SemverMinor
	}
	return SemverPatch
}
