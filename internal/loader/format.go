package loader

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/model"
)

// Format is a model file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatSCIP Format = "scip"
)

const zstdExt = ".zst"

// DetectFormat derives the format from a file name. A trailing .zst marks
// the content as zstd-compressed.
func DetectFormat(path string) (Format, bool, error) {
	name := strings.ToLower(filepath.Base(path))
	compressed := strings.HasSuffix(name, zstdExt)
	name = strings.TrimSuffix(name, zstdExt)

	switch filepath.Ext(name) {
	case ".json":
		return FormatJSON, compressed, nil
	case ".yaml", ".yml":
		return FormatYAML, compressed, nil
	case ".toml":
		return FormatTOML, compressed, nil
	case ".scip":
		return FormatSCIP, compressed, nil
	}
	return "", false, abierrors.New(abierrors.UnsupportedFormat,
		fmt.Sprintf("cannot infer model format of %s", path), nil, nil)
}

//go:embed schema/model.schema.json
var schemaJSON []byte

const schemaURL = "https://abicompat.dev/schema/model.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func modelSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

var (
	decoderOnce sync.Once
	zstdDecoder *zstd.Decoder
)

func decompress(data []byte) ([]byte, error) {
	decoderOnce.Do(func() {
		zstdDecoder, _ = zstd.NewReader(nil)
	})
	return zstdDecoder.DecodeAll(data, nil)
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// toJSON re-encodes a YAML or TOML document as JSON so that a single schema
// and a single set of struct tags cover every format.
func toJSON(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return data, nil
	case FormatYAML:
		var v interface{}
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return json.Marshal(v)
	case FormatTOML:
		var v map[string]interface{}
		if err := toml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}
	return nil, fmt.Errorf("format %s is not a text model format", format)
}

// Decode validates a model document against the model schema and decodes
// it. name identifies the document in errors.
func Decode(data []byte, format Format, name string) (*model.Document, error) {
	jsonData, err := toJSON(data, format)
	if err != nil {
		return nil, abierrors.Malformed(name, "cannot parse %s model: %v", format, err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return nil, abierrors.Malformed(name, "cannot parse %s model: %v", format, err)
	}
	schema, err := modelSchema()
	if err != nil {
		return nil, abierrors.New(abierrors.InternalError, "model schema does not compile", err, nil)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, abierrors.Malformed(name, "model does not match schema: %v", err)
	}

	var doc model.Document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, abierrors.Malformed(name, "cannot decode model: %v", err)
	}
	return &doc, nil
}

// Encode serializes doc in format. Encoded documents decode back to an
// equal document.
func Encode(doc *model.Document, format Format) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if format == FormatJSON {
		return buf.Bytes(), nil
	}

	// JSON is valid YAML; decoding it as YAML keeps integers integral.
	var generic map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &generic); err != nil {
		return nil, err
	}
	switch format {
	case FormatYAML:
		return yaml.Marshal(generic)
	case FormatTOML:
		return toml.Marshal(generic)
	}
	return nil, abierrors.New(abierrors.UnsupportedFormat,
		fmt.Sprintf("cannot write %s models", format), nil, nil)
}
