package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SchemaVersion is the model document version this package reads and writes.
const SchemaVersion = 1

// Document is the on-disk form of one version's declaration model.
type Document struct {
	SchemaVersion int              `json:"schemaVersion"`
	Library       string           `json:"library,omitempty"`
	Version       string           `json:"version,omitempty"`
	Declarations  []RawDeclaration `json:"declarations"`
}

// Label names the document for reports, e.g. "test_lib 1.0".
func (d *Document) Label() string {
	switch {
	case d.Library != "" && d.Version != "":
		return d.Library + " " + d.Version
	case d.Version != "":
		return d.Version
	default:
		return d.Library
	}
}

// RawDeclaration is a declaration record as produced by a front-end.
// Build validates and normalizes it.
type RawDeclaration struct {
	Name           string     `json:"name"`
	Kind           string     `json:"kind"`
	Params         []RawParam `json:"params,omitempty"`
	Qualifiers     []string   `json:"qualifiers,omitempty"`
	ReturnType     string     `json:"returnType,omitempty"`
	Owner          string     `json:"owner,omitempty"`
	Visibility     string     `json:"visibility,omitempty"`
	Value          *Value     `json:"value,omitempty"`
	Bases          []RawBase  `json:"bases,omitempty"`
	TemplateParams []string   `json:"templateParams,omitempty"`
	Underlying     string     `json:"underlying,omitempty"`
	Scoped         bool       `json:"scoped,omitempty"`
	File           string     `json:"file,omitempty"`
	Line           int        `json:"line,omitempty"`
}

// RawParam is one parameter record. A non-empty Default implies HasDefault.
type RawParam struct {
	Name       string `json:"name,omitempty"`
	Type       string `json:"type"`
	Default    string `json:"default,omitempty"`
	HasDefault bool   `json:"hasDefault,omitempty"`
}

// RawBase is one base-class record.
type RawBase struct {
	Name    string `json:"name"`
	Access  string `json:"access,omitempty"`
	Virtual bool   `json:"virtual,omitempty"`
}

// Value is a resolved constant value. It decodes from JSON strings,
// numbers and booleans so hand-written YAML models can write `value: 100`.
type Value string

// StringValue returns a pointer to v, for building raw declarations in code.
func StringValue(v string) *Value {
	val := Value(v)
	return &val
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Value(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*v = Value(strconv.FormatBool(b))
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(v))
}
