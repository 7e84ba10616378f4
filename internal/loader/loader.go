// Package loader reads the document corpus from a data directory.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
)

// Source extracts documents from one file format.
type Source interface {
	// Extensions lists the lower-case file extensions handled, with the leading dot.
	Extensions() []string
	Load(ctx context.Context, path string) ([]domain.Document, error)
}

// Loader dispatches corpus files to the Source registered for their extension.
type Loader struct {
	sources map[string]Source
	logger  *zap.Logger
}

// New creates a Loader. Later sources override earlier ones for the same extension.
func New(logger *zap.Logger, sources ...Source) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{sources: make(map[string]Source), logger: logger}
	for _, s := range sources {
		for _, ext := range s.Extensions() {
			l.sources[strings.ToLower(ext)] = s
		}
	}
	return l
}

// Default returns a Loader for plain text and PDF files.
func Default(logger *zap.Logger) *Loader {
	return New(logger, TextSource{}, PDFSource{})
}

// Supports reports whether a file name has a registered extension.
func (l *Loader) Supports(name string) bool {
	_, ok := l.sources[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Load reads every supported file directly under dir, in lexical order.
// A missing directory yields no documents and no error.
// Unsupported files and sub-directories are skipped; a failure on a
// supported file fails the whole call.
func (l *Loader) Load(ctx context.Context, dir string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Data directory not found", zap.String("dir", dir))
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir %s: %w", dir, err)
	}

	var docs []domain.Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}

		src, ok := l.sources[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			l.logger.Debug("Skipping unsupported file", zap.String("file", entry.Name()))
			continue
		}

		path := filepath.Join(dir, entry.Name())
		loaded, err := src.Load(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}

		l.logger.Debug("Loaded file", zap.String("file", path), zap.Int("documents", len(loaded)))
		docs = append(docs, loaded...)
	}

	return docs, nil
}
