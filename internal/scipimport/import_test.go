package scipimport

import (
	"os"
	"path/filepath"
	"testing"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/model"
)

const (
	symBase      = "cxx . . $ BaseProcessor#"
	symData      = "cxx . . $ DataProcessor#"
	symTransform = "cxx . . $ DataProcessor#transform(49f6e7a0)."
	symMaxValue  = "cxx . . $ BaseProcessor#getMaxValue(0a1b)."
	symStatus    = "cxx . . $ Status#"
	symRetry     = "cxx . . $ Status#RETRY."
	symCalculate = "cxx . . $ calculate(9b28)."
	symMaxSize   = "cxx . . $ `MAX_SIZE`!"
	symField     = "cxx . . $ DataProcessor#buffer_."
)

func sigDoc(text string) *scippb.Document {
	return &scippb.Document{Language: "cpp", Text: text}
}

func def(symbol string, line int32) *scippb.Occurrence {
	return &scippb.Occurrence{
		Range:       []int32{line, 4, 12},
		Symbol:      symbol,
		SymbolRoles: int32(scippb.SymbolRole_Definition),
	}
}

func testIndex() *scippb.Index {
	return &scippb.Index{
		Metadata: &scippb.Metadata{
			ToolInfo:    &scippb.ToolInfo{Name: "scip-clang", Version: "0.3.2"},
			ProjectRoot: "file:///src/test_lib",
		},
		Documents: []*scippb.Document{
			{
				RelativePath: "include/core.hpp",
				Occurrences: []*scippb.Occurrence{
					def(symMaxSize, 4),
					def(symStatus, 6),
					def(symRetry, 10),
					def(symBase, 12),
					def(symMaxValue, 21),
					def(symData, 27),
					def(symTransform, 37),
					{Range: []int32{40, 2, 8}, Symbol: symBase},
				},
				Symbols: []*scippb.SymbolInformation{
					{Symbol: symMaxSize, Kind: scippb.SymbolInformation_Macro, SignatureDocumentation: sigDoc("#define MAX_SIZE 2048")},
					{Symbol: symStatus, Kind: scippb.SymbolInformation_Enum},
					{Symbol: symRetry, Kind: scippb.SymbolInformation_EnumMember, SignatureDocumentation: sigDoc("RETRY = 3")},
					{Symbol: symBase, Kind: scippb.SymbolInformation_Class},
					{
						Symbol:                 symMaxValue,
						Kind:                   scippb.SymbolInformation_StaticMethod,
						SignatureDocumentation: sigDoc("constexpr int BaseProcessor::getMaxValue()"),
					},
					{
						Symbol: symData,
						Kind:   scippb.SymbolInformation_Class,
						Relationships: []*scippb.Relationship{
							{Symbol: symBase, IsImplementation: true},
						},
					},
					{
						Symbol:                 symTransform,
						Kind:                   scippb.SymbolInformation_Method,
						SignatureDocumentation: sigDoc("double DataProcessor::transform(double input, double factor = 1.0)"),
					},
					{Symbol: symField, Kind: scippb.SymbolInformation_Field},
					{Symbol: "local 4", Kind: scippb.SymbolInformation_Variable},
				},
			},
			{
				RelativePath: "include/utils.hpp",
				Occurrences:  []*scippb.Occurrence{def(symCalculate, 7)},
				Symbols: []*scippb.SymbolInformation{
					{
						Symbol:      symCalculate,
						Kind:        scippb.SymbolInformation_Function,
						DisplayName: "double calculate(double a, double b)",
					},
				},
			},
		},
	}
}

func byName(doc *model.Document) map[string]model.RawDeclaration {
	out := make(map[string]model.RawDeclaration)
	for _, d := range doc.Declarations {
		out[d.Name] = d
	}
	return out
}

func TestConvert(t *testing.T) {
	doc := Convert(testIndex())

	if doc.Library != "test_lib" || doc.Version != "0.3.2" {
		t.Errorf("Library/Version = %q/%q, want test_lib/0.3.2", doc.Library, doc.Version)
	}
	if len(doc.Declarations) != 8 {
		t.Fatalf("len(Declarations) = %d, want 8", len(doc.Declarations))
	}

	decls := byName(doc)
	if _, ok := decls["DataProcessor::buffer_"]; ok {
		t.Error("fields should be skipped")
	}

	tests := []struct {
		name  string
		kind  model.Kind
		owner string
		file  string
		line  int
	}{
		{"MAX_SIZE", model.KindMacro, "", "include/core.hpp", 5},
		{"Status", model.KindEnum, "", "include/core.hpp", 7},
		{"Status::RETRY", model.KindEnumMember, "Status", "include/core.hpp", 11},
		{"BaseProcessor::getMaxValue", model.KindMethod, "BaseProcessor", "include/core.hpp", 22},
		{"DataProcessor", model.KindClass, "", "include/core.hpp", 28},
		{"DataProcessor::transform", model.KindMethod, "DataProcessor", "include/core.hpp", 38},
		{"calculate", model.KindFunction, "", "include/utils.hpp", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := decls[tt.name]
			if !ok {
				t.Fatalf("declaration %s missing", tt.name)
			}
			if d.Kind != string(tt.kind) {
				t.Errorf("Kind = %q, want %q", d.Kind, tt.kind)
			}
			if d.Owner != tt.owner {
				t.Errorf("Owner = %q, want %q", d.Owner, tt.owner)
			}
			if d.File != tt.file || d.Line != tt.line {
				t.Errorf("location = %s:%d, want %s:%d", d.File, d.Line, tt.file, tt.line)
			}
		})
	}

	if v := decls["MAX_SIZE"].Value; v == nil || *v != "2048" {
		t.Errorf("MAX_SIZE value = %v, want 2048", v)
	}
	if v := decls["Status::RETRY"].Value; v == nil || *v != "3" {
		t.Errorf("Status::RETRY value = %v, want 3", v)
	}

	maxValue := decls["BaseProcessor::getMaxValue"]
	if maxValue.ReturnType != "int" || !contains(maxValue.Qualifiers, "static") || !contains(maxValue.Qualifiers, "constexpr") {
		t.Errorf("getMaxValue = %+v, want static constexpr int", maxValue)
	}

	transform := decls["DataProcessor::transform"]
	if transform.ReturnType != "double" {
		t.Errorf("transform return = %q, want double", transform.ReturnType)
	}
	if got := renderParams(transform.Params); got != "double input; double factor = 1.0" {
		t.Errorf("transform params = %q", got)
	}

	data := decls["DataProcessor"]
	if len(data.Bases) != 1 || data.Bases[0].Name != "BaseProcessor" {
		t.Errorf("DataProcessor bases = %+v, want [BaseProcessor]", data.Bases)
	}

	if got := renderParams(decls["calculate"].Params); got != "double a; double b" {
		t.Errorf("calculate params = %q", got)
	}
}

func TestConvert_Builds(t *testing.T) {
	doc := Convert(testIndex())
	snap, err := model.Build(doc.Label(), doc.Declarations)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if snap.Label() != "test_lib 0.3.2" {
		t.Errorf("Label() = %q", snap.Label())
	}
	if !snap.DerivesFrom("DataProcessor", "BaseProcessor") {
		t.Error("DataProcessor should derive from BaseProcessor")
	}
}

func TestDecode(t *testing.T) {
	data, err := proto.Marshal(testIndex())
	if err != nil {
		t.Fatalf("proto.Marshal() error = %v", err)
	}
	doc, err := Decode(data, "index.scip")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(doc.Declarations) != 8 {
		t.Errorf("len(Declarations) = %d, want 8", len(doc.Declarations))
	}

	_, err = Decode([]byte{0xff, 0xff, 0xff}, "broken.scip")
	if !abierrors.Is(err, abierrors.MalformedInput) {
		t.Errorf("Decode(garbage) error = %v, want MALFORMED_INPUT", err)
	}
}

func TestRead(t *testing.T) {
	data, err := proto.Marshal(testIndex())
	if err != nil {
		t.Fatalf("proto.Marshal() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "index.scip")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err != nil {
		t.Errorf("Read() error = %v", err)
	}

	_, err = Read(filepath.Join(t.TempDir(), "missing.scip"))
	if !abierrors.Is(err, abierrors.InputNotFound) {
		t.Errorf("Read(missing) error = %v, want INPUT_NOT_FOUND", err)
	}
}
