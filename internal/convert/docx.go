package convert

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DocxConverter extracts text from Office Open XML documents:
// body paragraphs first, then the text of every table cell.
type DocxConverter struct{}

// Extensions implements Converter.
func (DocxConverter) Extensions() []string { return []string{".docx"} }

// Extract implements Converter.
func (DocxConverter) Extract(_ context.Context, path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml: %w", err)
		}

		return parseDocumentXML(content)
	}

	return "", errors.New("word/document.xml not found")
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
		Tables     []table     `xml:"tbl"`
	} `xml:"body"`
}

type table struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []paragraph `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

// paragraph collects the text of every w:t below a w:p in document order,
// including runs nested in hyperlinks or smart tags.
type paragraph struct {
	text string
}

func (p *paragraph) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	var (
		b      strings.Builder
		inText bool
	)
	for depth := 1; depth > 0; {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	p.text = b.String()
	return nil
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}

	var parts []string
	for _, p := range doc.Body.Paragraphs {
		if strings.TrimSpace(p.text) != "" {
			parts = append(parts, p.text)
		}
	}
	for _, tbl := range doc.Body.Tables {
		for _, row := range tbl.Rows {
			for _, cell := range row.Cells {
				lines := make([]string, len(cell.Paragraphs))
				for i, p := range cell.Paragraphs {
					lines[i] = p.text
				}
				if text := strings.Join(lines, "\n"); strings.TrimSpace(text) != "" {
					parts = append(parts, text)
				}
			}
		}
	}

	return strings.Join(parts, "\n"), nil
}
