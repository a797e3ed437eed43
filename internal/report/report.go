// Package report renders verdicts. Rendering is a pure function of the
// verdict: it never re-evaluates rules.
package report

import (
	"fmt"
	"sort"
	"strings"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/output"
	"abicompat/internal/rules"
	"abicompat/internal/verdict"
)

// Format represents the output format type.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatText}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText:
		return f, nil
	case "human":
		return FormatText, nil
	}
	return "", abierrors.New(abierrors.UnsupportedFormat,
		fmt.Sprintf("unsupported report format %q (want json or text)", s), nil,
		[]abierrors.FixAction{{Type: abierrors.EditInput, Description: "Use --format json or --format text"}})
}

// Render formats v.
func Render(v *verdict.Verdict, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := output.DeterministicEncodeIndented(v, "  ")
		if err != nil {
			return nil, abierrors.New(abierrors.InternalError, "failed to encode report", err, nil)
		}
		return data, nil
	case FormatText:
		return []byte(renderText(v)), nil
	default:
		_, err := ParseFormat(string(format))
		return nil, err
	}
}

func renderText(v *verdict.Verdict) string {
	var sb strings.Builder

	sb.WriteString("ABI Compatibility Report\n")
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	sb.WriteString(fmt.Sprintf("Comparing: %s → %s\n", v.Old.Label, v.New.Label))
	sb.WriteString(fmt.Sprintf("Old digest: %s\n", v.Old.Digest))
	sb.WriteString(fmt.Sprintf("New digest: %s\n", v.New.Digest))
	sb.WriteString(fmt.Sprintf("Rule table: %s\n", v.RulesVersion))
	sb.WriteString(fmt.Sprintf("Verdict: %s\n\n", strings.ToUpper(v.Overall.String())))

	if len(v.Records) == 0 {
		sb.WriteString("No API or ABI changes detected.\n\n")
	}

	var breaking, warnings, safe []rules.ChangeRecord
	for _, r := range v.Records {
		switch r.Severity {
		case rules.Breaking:
			breaking = append(breaking, r)
		case rules.Warning:
			warnings = append(warnings, r)
		default:
			safe = append(safe, r)
		}
	}
	writeSection(&sb, "Breaking Changes", "✗", breaking)
	writeSection(&sb, "Warnings", "⚠", warnings)
	writeSection(&sb, "Safe Changes", "+", safe)

	sb.WriteString("Summary:\n")
	sb.WriteString("━━━━━━━\n")
	if s := v.Summary; s != nil {
		sb.WriteString(fmt.Sprintf("  Total changes: %d\n", s.TotalChanges))
		sb.WriteString(fmt.Sprintf("  Breaking: %d\n", s.BreakingChanges))
		sb.WriteString(fmt.Sprintf("  Warnings: %d\n", s.Warnings))
		sb.WriteString(fmt.Sprintf("  Safe: %d (%d additions)\n", s.SafeChanges, s.Additions))
		for _, kind := range sortedKeys(s.ByKind) {
			sb.WriteString(fmt.Sprintf("    %s: %d\n", kind, s.ByKind[kind]))
		}
	}
	sb.WriteString(fmt.Sprintf("  Incompatibility score: %s (%s%%)\n",
		output.FormatFloat(v.Score.Points), output.FormatFloat(v.Score.Percent)))
	sb.WriteString(fmt.Sprintf("  Old API affected: %d symbols (%s%%)\n",
		v.Score.AffectedOldSymbols, output.FormatFloat(v.Score.OldAPIBreakage)))

	if len(v.Symbols) > 0 {
		sb.WriteString("\nSymbols:\n")
		for _, s := range v.Symbols {
			sb.WriteString(fmt.Sprintf("  %-8s %s (%s)\n", s.Severity, s.Symbol, strings.Join(s.Kinds, ", ")))
		}
	}

	if v.SemverAdvice != "" {
		sb.WriteString(fmt.Sprintf("\nRecommended version bump: %s\n", strings.ToUpper(v.SemverAdvice)))
	}
	return sb.String()
}

func writeSection(sb *strings.Builder, title, marker string, records []rules.ChangeRecord) {
	if len(records) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("%s (%d):\n\n", title, len(records)))
	for _, r := range records {
		sb.WriteString(fmt.Sprintf("  %s [%s] %s %s\n", marker, r.Kind, r.DeclKind, r.Symbol))
		if r.Signature != "" {
			sb.WriteString(fmt.Sprintf("    Signature: %s\n", r.Signature))
		}
		sb.WriteString(fmt.Sprintf("    %s\n", r.Rationale))
		sb.WriteString(fmt.Sprintf("    Source: %s  ABI: %s", r.Source, r.ABI))
		if r.Overridden {
			sb.WriteString("  (override)")
		}
		if r.Deprecated {
			sb.WriteString("  (was deprecated)")
		}
		sb.WriteString("\n")
		if r.File != "" {
			if r.Line > 0 {
				sb.WriteString(fmt.Sprintf("    Location: %s:%d\n", r.File, r.Line))
			} else {
				sb.WriteString(fmt.Sprintf("    Location: %s\n", r.File))
			}
		}
		if r.Old != "" {
			sb.WriteString(fmt.Sprintf("    Before: %s\n", r.Old))
		}
		if r.New != "" {
			sb.WriteString(fmt.Sprintf("    After:  %s\n", r.New))
		}
		for _, c := range r.Candidates {
			sb.WriteString(fmt.Sprintf("    Candidate %s\n", c))
		}
		sb.WriteString("\n")
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
