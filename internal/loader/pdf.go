package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
)

// PDFSource loads a .pdf file as one document per page with extractable text.
type PDFSource struct{}

// Extensions implements Source.
func (PDFSource) Extensions() []string { return []string{".pdf"} }

// Load implements Source. Pages without text are omitted.
func (PDFSource) Load(ctx context.Context, path string) (docs []domain.Document, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		for _, name := range p.Fonts() {
			font := p.Font(name)
			fonts[name] = &font
		}

		text, err := p.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		docs = append(docs, domain.Document{
			Source:  path,
			Content: text,
			Format:  domain.FormatPDF,
			Page:    i,
		})
	}

	return docs, nil
}
