// Package loader reads declaration models from disk and builds snapshots.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/model"
	"abicompat/internal/scipimport"
	"abicompat/internal/slogutil"
)

// Options configures a Loader.
type Options struct {
	Scope Scope
	// CacheSize is the number of built snapshots kept; zero disables caching.
	CacheSize int
	Logger    *slog.Logger
}

// Loader turns model files into snapshots. It is safe for concurrent use.
type Loader struct {
	scope  Scope
	cache  *lru.Cache[cacheKey, *model.Snapshot]
	logger *slog.Logger
}

type cacheKey struct {
	path    string
	size    int64
	modTime time.Time
}

// New validates opts and returns a Loader.
func New(opts Options) (*Loader, error) {
	if err := opts.Scope.Validate(); err != nil {
		return nil, err
	}
	l := &Loader{scope: opts.Scope, logger: opts.Logger}
	if l.logger == nil {
		l.logger = slogutil.NewDiscardLogger()
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[cacheKey, *model.Snapshot](opts.CacheSize)
		if err != nil {
			return nil, abierrors.New(abierrors.InternalError, "failed to create snapshot cache", err, nil)
		}
		l.cache = cache
	}
	return l, nil
}

// LoadFile loads one model without scope filtering or caching.
func LoadFile(path string) (*model.Snapshot, error) {
	l, err := New(Options{})
	if err != nil {
		return nil, err
	}
	return l.Load(path)
}

// Load reads, filters and builds the model at path. Snapshots are cached by
// path, size and modification time.
func (l *Loader) Load(path string) (*model.Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, notFound(path, err)
	}
	if info.IsDir() {
		return nil, abierrors.New(abierrors.InputNotFound, fmt.Sprintf("%s is a directory, not a model file", path), nil, nil)
	}

	key := cacheKey{path: filepath.Clean(path), size: info.Size(), modTime: info.ModTime()}
	if l.cache != nil {
		if snap, ok := l.cache.Get(key); ok {
			l.logger.Debug("Snapshot cache hit", "path", path)
			return snap, nil
		}
	}

	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	decls := l.scope.Filter(doc.Declarations)
	label := doc.Label()
	if label == "" {
		label = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	snap, err := model.Build(label, decls)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Model loaded",
		"path", path,
		"label", label,
		"declarations", snap.Len(),
		"filtered", len(doc.Declarations)-len(decls),
	)
	if l.cache != nil {
		l.cache.Add(key, snap)
	}
	return snap, nil
}

// ReadDocument reads and decodes a model file of any supported format.
func ReadDocument(path string) (*model.Document, error) {
	format, compressed, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, notFound(path, err)
	}
	if compressed {
		if data, err = decompress(data); err != nil {
			return nil, abierrors.Malformed(path, "cannot decompress model: %v", err)
		}
	}
	if format == FormatSCIP {
		return scipimport.Decode(data, path)
	}
	return Decode(data, format, path)
}

// WriteDocument encodes doc in the format implied by path.
func WriteDocument(path string, doc *model.Document) error {
	format, compressed, err := DetectFormat(path)
	if err != nil {
		return err
	}
	data, err := Encode(doc, format)
	if err != nil {
		return err
	}
	if compressed {
		if data, err = compress(data); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func notFound(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return abierrors.New(abierrors.InputNotFound, fmt.Sprintf("model file %s does not exist", path), err, nil)
	}
	return abierrors.New(abierrors.InputNotFound, fmt.Sprintf("cannot read model file %s", path), err, nil)
}
