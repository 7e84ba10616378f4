// Package convert turns office and web documents in the data directory into
// plain-text files the corpus loader can read.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrToolUnavailable signals that an external conversion tool is not installed.
	ErrToolUnavailable = errors.New("conversion tool unavailable")
	// ErrNoContent signals that no text could be extracted from a file.
	ErrNoContent = errors.New("no content extracted")
)

// Converter extracts raw text from one family of file formats.
type Converter interface {
	// Extensions lists the lower-case file extensions handled, with the leading dot.
	Extensions() []string
	Extract(ctx context.Context, path string) (string, error)
}

// Result is the outcome for a single input file.
type Result struct {
	Input  string
	Output string // empty unless converted
	Err    error
}

// Report summarizes a conversion run.
type Report struct {
	Total     int
	Converted int
	Results   []Result
}

// Runner converts every supported file in a directory to <stem>.txt next to it.
type Runner struct {
	converters map[string]Converter
	logger     *zap.Logger
}

// NewRunner creates a Runner. Later converters override earlier ones for the same extension.
func NewRunner(logger *zap.Logger, converters ...Converter) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{converters: make(map[string]Converter), logger: logger}
	for _, c := range converters {
		for _, ext := range c.Extensions() {
			r.converters[strings.ToLower(ext)] = c
		}
	}
	return r
}

// Default returns a Runner for .docx, .html and .doc files.
func Default(logger *zap.Logger) *Runner {
	return NewRunner(logger, DocxConverter{}, HTMLConverter{}, NewDocConverter(""))
}

// Run converts the supported files directly under dir. Per-file failures are
// recorded in the report and do not stop the run; only an unreadable
// directory is returned as an error.
func (r *Runner) Run(ctx context.Context, dir string) (Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Report{}, fmt.Errorf("read data dir %s: %w", dir, err)
	}

	var report Report
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if entry.IsDir() {
			continue
		}
		conv, ok := r.converters[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}

		report.Total++
		res := r.convertFile(ctx, conv, filepath.Join(dir, entry.Name()))
		if res.Err == nil {
			report.Converted++
		}
		report.Results = append(report.Results, res)
	}

	r.logger.Info("Conversion finished",
		zap.String("dir", dir),
		zap.Int("converted", report.Converted),
		zap.Int("total", report.Total),
	)
	return report, nil
}

func (r *Runner) convertFile(ctx context.Context, conv Converter, path string) Result {
	log := r.logger.With(zap.String("file", filepath.Base(path)))

	raw, err := conv.Extract(ctx, path)
	if err != nil {
		if errors.Is(err, ErrToolUnavailable) {
			log.Warn("Skipping file, converter not installed", zap.Error(err))
		} else {
			log.Error("Failed to extract text", zap.Error(err))
		}
		return Result{Input: path, Err: err}
	}

	text := CleanText(raw)
	if text == "" {
		log.Warn("No content extracted")
		return Result{Input: path, Err: ErrNoContent}
	}

	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil { //nolint:gosec // corpus files are world-readable
		log.Error("Failed to write text file", zap.Error(err))
		return Result{Input: path, Err: fmt.Errorf("write %s: %w", out, err)}
	}

	log.Info("Converted", zap.String("output", filepath.Base(out)))
	return Result{Input: path, Output: out}
}
