package convert

import (
	"regexp"
	"strings"
)

var (
	excessBlankLines = regexp.MustCompile(`\n\s*\n\s*\n`)
	horizontalSpace  = regexp.MustCompile(`[ \t]+`)
	lineEdges        = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)

	artifactReplacer = strings.NewReplacer(
		"\uFEFF", "",
		"\u00EF\u00BB\u00BF", "", // BOM decoded as Latin-1
		"\u200B", "",
	)
	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
	)
)

// CleanText normalizes extracted text: byte-order marks and zero-width spaces
// are dropped, line endings become \n, runs of blank lines shrink to one,
// spaces and tabs collapse, every line is trimmed and leftover HTML entities
// are decoded. Paragraph breaks survive.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = artifactReplacer.Replace(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = excessBlankLines.ReplaceAllString(text, "\n\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = lineEdges.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)

	return strings.TrimSpace(text)
}
