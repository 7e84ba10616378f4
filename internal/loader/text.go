package loader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
)

// TextSource loads a .txt file as a single document.
type TextSource struct{}

// Extensions implements Source.
func (TextSource) Extensions() []string { return []string{".txt"} }

// Load implements Source.
func (TextSource) Load(_ context.Context, path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	content := strings.TrimPrefix(string(data), "\uFEFF")
	return []domain.Document{{
		Source:  path,
		Content: content,
		Format:  domain.FormatText,
	}}, nil
}
