package convert

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultDocTool is the external program used to read legacy Word files.
const DefaultDocTool = "antiword"

// DocConverter extracts text from legacy .doc files through an external tool
// that prints the document text to stdout.
type DocConverter struct {
	tool string
}

// NewDocConverter creates a DocConverter. An empty tool selects DefaultDocTool.
func NewDocConverter(tool string) DocConverter {
	if tool == "" {
		tool = DefaultDocTool
	}
	return DocConverter{tool: tool}
}

// Extensions implements Converter.
func (DocConverter) Extensions() []string { return []string{".doc"} }

// Extract implements Converter. It returns ErrToolUnavailable when the tool is not on PATH.
func (c DocConverter) Extract(ctx context.Context, path string) (string, error) {
	bin, err := exec.LookPath(c.tool)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.tool, ErrToolUnavailable)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, path) //nolint:gosec // tool comes from configuration
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", c.tool, err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}
