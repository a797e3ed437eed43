// Package history stores comparison runs in a SQLite database so earlier
// verdicts can be listed and re-rendered.
package history

import (
	"time"

	"github.com/google/uuid"

	"abicompat/internal/verdict"
)

// Run is one recorded comparison.
type Run struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	OldPath      string    `json:"oldPath,omitempty"`
	NewPath      string    `json:"newPath,omitempty"`
	OldLabel     string    `json:"oldLabel"`
	NewLabel     string    `json:"newLabel"`
	OldDigest    string    `json:"oldDigest"`
	NewDigest    string    `json:"newDigest"`
	RulesVersion string    `json:"rulesVersion"`
	Overall      string    `json:"overall"`
	SemverAdvice string    `json:"semverAdvice"`
	Breaking     int       `json:"breaking"`
	Warnings     int       `json:"warnings"`
	Safe         int       `json:"safe"`
	Score        float64   `json:"score"`
	Report       string    `json:"report,omitempty"` // JSON report
}

// NewRun captures v and its rendered JSON report under a fresh ID.
func NewRun(v *verdict.Verdict, report []byte, oldPath, newPath string) *Run {
	return &Run{
		ID:           uuid.New().String(),
		CreatedAt:    time.Now().UTC(),
		OldPath:      oldPath,
		NewPath:      newPath,
		OldLabel:     v.Old.Label,
		NewLabel:     v.New.Label,
		OldDigest:    v.Old.Digest,
		NewDigest:    v.New.Digest,
		RulesVersion: v.RulesVersion,
		Overall:      v.Overall.String(),
		SemverAdvice: v.SemverAdvice,
		Breaking:     v.Summary.BreakingChanges,
		Warnings:     v.Summary.Warnings,
		Safe:         v.Summary.SafeChanges,
		Score:        v.Score.Percent,
		Report:       string(report),
	}
}

// ShortID is the first eight characters of the ID.
func (r *Run) ShortID() string {
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}
