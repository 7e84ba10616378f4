package convert

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const documentXMLFixture = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Hostel rules</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Curfew is </w:t></w:r><w:hyperlink><w:r><w:t>10pm</w:t></w:r></w:hyperlink><w:r><w:t>.</w:t></w:r></w:p>
    <w:p></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Mess fee</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>3000</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
    <w:p><w:r><w:t>Contact the warden.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func writeDocx(t *testing.T, path, documentXML string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestDocxConverter_ParagraphsThenTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.docx")
	writeDocx(t, path, documentXMLFixture)

	text, err := DocxConverter{}.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Hostel rules\nCurfew is 10pm.\nContact the warden.\nMess fee\n3000", text)
}

func TestDocxConverter_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.docx")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

	_, err := DocxConverter{}.Extract(context.Background(), path)
	require.Error(t, err)
}

func TestHTMLConverter_DropsScriptAndStyle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	page := `<html><head><title>Library</title><style>p{color:red}</style>
<script>var x = "hidden";</script></head>
<body><h1>Library hours</h1><p>Open 9 to 5.</p><p>Closed on Sundays &amp; holidays.</p></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(page), 0o600))

	raw, err := HTMLConverter{}.Extract(context.Background(), path)
	require.NoError(t, err)

	text := CleanText(raw)
	assert.NotContains(t, text, "hidden")
	assert.NotContains(t, text, "color:red")
	assert.Contains(t, text, "Library hours\nOpen 9 to 5.\nClosed on Sundays & holidays.")
}

func TestDocConverter_ToolMissing(t *testing.T) {
	c := NewDocConverter("collegebuddy-no-such-tool")

	_, err := c.Extract(context.Background(), "whatever.doc")
	require.ErrorIs(t, err, ErrToolUnavailable)
}

func TestNewDocConverter_Default(t *testing.T) {
	assert.Equal(t, DefaultDocTool, NewDocConverter("").tool)
}

func TestRunner_Run(t *testing.T) {
	dir := t.TempDir()
	writeDocx(t, filepath.Join(dir, "rules.docx"), documentXMLFixture)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Library.HTML"),
		[]byte("<p>Open 9 to 5.</p>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.html"),
		[]byte("<script>only()</script>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("untouched"), 0o600))

	runner := NewRunner(zap.NewNop(), DocxConverter{}, HTMLConverter{})
	report, err := runner.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Converted)

	rules, err := os.ReadFile(filepath.Join(dir, "rules.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(rules), "Curfew is 10pm.")

	library, err := os.ReadFile(filepath.Join(dir, "Library.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Open 9 to 5.", string(library))

	_, err = os.Stat(filepath.Join(dir, "empty.txt"))
	assert.True(t, os.IsNotExist(err), "no output for a file without content")

	notes, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "untouched", string(notes))

	var failed []Result
	for _, r := range report.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, ErrNoContent)
}

func TestRunner_SkipsMissingTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.doc"), []byte{0xD0, 0xCF}, 0o600))

	runner := NewRunner(zap.NewNop(), NewDocConverter("collegebuddy-no-such-tool"))
	report, err := runner.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 0, report.Converted)
	require.Len(t, report.Results, 1)
	assert.True(t, errors.Is(report.Results[0].Err, ErrToolUnavailable))
}

func TestRunner_MissingDirectory(t *testing.T) {
	_, err := Default(zap.NewNop()).Run(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}
