package domain

// Format identifies how a document's text was extracted.
type Format string

const (
	// FormatText is a plain-text file loaded as a single document.
	FormatText Format = "text"
	// FormatPDF is one page of a PDF file.
	FormatPDF Format = "pdf"
)

// Document is one unit of loaded corpus content. PDF files yield one document per page.
type Document struct {
	Source  string
	Content string
	Format  Format
	Page    int // 1-based for PDF pages, 0 for text files
}

// Chunk is a bounded fragment of a Document, the unit that gets embedded and indexed.
type Chunk struct {
	ID       string
	Source   string
	Page     int
	Position int // order within the source document
	Text     string
}

// ScoredChunk is a single retrieval hit.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
