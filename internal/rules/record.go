package rules

import "sort"

// ChangeRecord is one detected difference.
type ChangeRecord struct {
	Symbol     string     `json:"symbol"`
	Signature  string     `json:"signature,omitempty"`
	Owner      string     `json:"owner,omitempty"`
	DeclKind   string     `json:"declKind"`
	Kind       ChangeKind `json:"kind"`
	Severity   Severity   `json:"severity"`
	Source     Severity   `json:"source"`
	ABI        Severity   `json:"abi"`
	Rationale  string     `json:"rationale"`
	Old        string     `json:"old,omitempty"`
	New        string     `json:"new,omitempty"`
	Candidates []string   `json:"candidates,omitempty"`
	Code       string     `json:"code,omitempty"`
	File       string     `json:"file,omitempty"`
	Line       int        `json:"line,omitempty"`
	Deprecated bool       `json:"deprecated,omitempty"` // old declaration was already deprecated
	Overridden bool       `json:"overridden,omitempty"`
}

// Less orders records by qualified name, then signature, then change kind.
func (r ChangeRecord) Less(o ChangeRecord) bool {
	if r.Symbol != o.Symbol {
		return r.Symbol < o.Symbol
	}
	if r.Signature != o.Signature {
		return r.Signature < o.Signature
	}
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	return r.Rationale < o.Rationale
}

// SortRecords sorts records into report order.
func SortRecords(records []ChangeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Less(records[j])
	})
}
