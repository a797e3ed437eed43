// Package scipimport converts SCIP indexes produced by scip-clang into
// declaration models.
package scipimport

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/model"
)

// Read loads and converts an index file.
func Read(file string) (*model.Document, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, abierrors.New(abierrors.InputNotFound, fmt.Sprintf("SCIP index not found at %s", file), err, nil)
	}
	return Decode(data, file)
}

// Decode parses a serialized index. name identifies it in errors.
func Decode(data []byte, name string) (*model.Document, error) {
	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		return nil, abierrors.New(abierrors.MalformedInput,
			fmt.Sprintf("failed to parse SCIP index from %s", name),
			err,
			[]abierrors.FixAction{
				{
					Type:        abierrors.RunCommand,
					Command:     "scip print --index=" + name,
					Safe:        true,
					Description: "Verify SCIP index is valid",
				},
			},
		).WithIdentity(name)
	}
	return Convert(&index), nil
}

// Convert maps the index's symbol information to raw declarations. Symbols
// of kinds the model does not represent (namespaces, fields, parameters,
// locals) are skipped. Output is sorted by file, line and name.
func Convert(index *scippb.Index) *model.Document {
	doc := &model.Document{SchemaVersion: model.SchemaVersion}
	if md := index.GetMetadata(); md != nil && md.GetToolInfo() != nil {
		doc.Library = path.Base(strings.TrimPrefix(md.GetProjectRoot(), "file://"))
		doc.Version = md.GetToolInfo().GetVersion()
	}

	seen := make(map[string]bool)
	for _, d := range index.GetDocuments() {
		defs := definitionLines(d)
		for _, info := range d.GetSymbols() {
			id := info.GetSymbol()
			if IsLocal(id) || seen[id] {
				continue
			}
			raw, ok := convertSymbol(info)
			if !ok {
				continue
			}
			seen[id] = true
			raw.File = d.GetRelativePath()
			if line, ok := defs[id]; ok {
				raw.Line = line
			}
			doc.Declarations = append(doc.Declarations, raw)
		}
	}

	sort.SliceStable(doc.Declarations, func(i, j int) bool {
		a, b := doc.Declarations[i], doc.Declarations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Name < b.Name
	})
	return doc
}

// definitionLines maps each symbol defined in d to its 1-based line.
func definitionLines(d *scippb.Document) map[string]int {
	lines := make(map[string]int)
	for _, occ := range d.GetOccurrences() {
		if occ.GetSymbolRoles()&int32(scippb.SymbolRole_Definition) == 0 || len(occ.GetRange()) == 0 {
			continue
		}
		if _, ok := lines[occ.GetSymbol()]; !ok {
			lines[occ.GetSymbol()] = int(occ.GetRange()[0]) + 1
		}
	}
	return lines
}

func convertSymbol(info *scippb.SymbolInformation) (model.RawDeclaration, bool) {
	sym, err := ParseSymbol(info.GetSymbol())
	if err != nil || len(sym.Descriptors) == 0 {
		return model.RawDeclaration{}, false
	}
	kind, static, ok := declKind(info.GetKind(), sym)
	if !ok {
		return model.RawDeclaration{}, false
	}

	last := sym.Last()
	raw := model.RawDeclaration{Name: sym.QualifiedName(), Kind: string(kind)}
	if kind.Member() {
		raw.Owner = sym.Owner()
	}

	text := ""
	if sd := info.GetSignatureDocumentation(); sd != nil {
		text = sd.GetText()
	}
	if text == "" {
		text = info.GetDisplayName()
	}

	switch kind {
	case model.KindFunction, model.KindMethod:
		sig := parseSignature(text, last.Name)
		raw.ReturnType = sig.returnType
		raw.Params = sig.params
		raw.Qualifiers = sig.qualifiers
		if static && !contains(raw.Qualifiers, "static") {
			raw.Qualifiers = append(raw.Qualifiers, "static")
		}
	case model.KindConstant, model.KindMacro, model.KindEnumMember:
		sig := parseValue(text, last.Name)
		raw.ReturnType = sig.returnType
		raw.Qualifiers = sig.qualifiers
		raw.Value = sig.value
	}

	for _, rel := range info.GetRelationships() {
		if kind != model.KindClass || !rel.GetIsImplementation() {
			continue
		}
		if base, err := ParseSymbol(rel.GetSymbol()); err == nil {
			raw.Bases = append(raw.Bases, model.RawBase{Name: base.QualifiedName()})
		}
	}
	return raw, true
}

// declKind maps a SCIP kind, falling back to the descriptor suffix for
// indexes that leave the kind unspecified.
func declKind(k scippb.SymbolInformation_Kind, sym *Symbol) (model.Kind, bool, bool) {
	switch k {
	case scippb.SymbolInformation_Class, scippb.SymbolInformation_Struct, scippb.SymbolInformation_Union:
		return model.KindClass, false, true
	case scippb.SymbolInformation_Enum:
		return model.KindEnum, false, true
	case scippb.SymbolInformation_EnumMember:
		return model.KindEnumMember, false, true
	case scippb.SymbolInformation_Function:
		if sym.Owner() != "" {
			return model.KindMethod, false, true
		}
		return model.KindFunction, false, true
	case scippb.SymbolInformation_Method, scippb.SymbolInformation_Constructor:
		return model.KindMethod, false, true
	case scippb.SymbolInformation_StaticMethod:
		return model.KindMethod, true, true
	case scippb.SymbolInformation_Constant:
		return model.KindConstant, false, true
	case scippb.SymbolInformation_Macro:
		return model.KindMacro, false, true
	case scippb.SymbolInformation_UnspecifiedKind:
		switch sym.Last().Suffix {
		case SuffixType:
			return model.KindClass, false, true
		case SuffixMethod:
			if sym.Owner() != "" {
				return model.KindMethod, false, true
			}
			return model.KindFunction, false, true
		case SuffixMacro:
			return model.KindMacro, false, true
		}
	}
	return "", false, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
