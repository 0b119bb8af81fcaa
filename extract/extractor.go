// Package extract turns uploaded files and fetched pages into plain text
// ready for chunking.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Result is the extracted text plus how it was obtained.
type Result struct {
	Text   string `json:"text"`
	Method string `json:"extraction_method"`
	Stats  Stats  `json:"stats"`
}

// Stats describes the extracted text. Tokens are estimated at four
// characters each, matching the chunker's estimate.
type Stats struct {
	CharCount       int `json:"char_count"`
	WordCount       int `json:"word_count"`
	EstimatedTokens int `json:"estimated_tokens"`
}

type Extractor struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{log: log}
}

// ExtractFile extracts text from the file at path according to its type.
// Supported types are txt, md, pdf and html.
func (e *Extractor) ExtractFile(path, fileType string) (*Result, error) {
	switch fileType {
	case "txt", "md":
		return e.extractPlain(path)
	case "pdf":
		return e.extractPDF(path)
	case "html":
		return e.extractHTMLFile(path)
	default:
		return nil, fmt.Errorf("extract: unsupported file type %q", fileType)
	}
}

func computeStats(text string) Stats {
	chars := utf8.RuneCountInString(text)
	return Stats{
		CharCount:       chars,
		WordCount:       len(strings.Fields(text)),
		EstimatedTokens: chars / 4,
	}
}

func newResult(text, method string) *Result {
	text = strings.TrimSpace(text)
	return &Result{Text: text, Method: method, Stats: computeStats(text)}
}
