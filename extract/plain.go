package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
)

func (e *Extractor) extractPlain(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	text := string(data)
	method := "plain"
	if !utf8.Valid(data) {
		// Not UTF-8; reinterpret as Latin-1, which cannot fail.
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode file: %w", err)
		}
		text = string(decoded)
		method = "plain_latin1"
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("extract: file contains no text")
	}
	return newResult(text, method), nil
}

func (e *Extractor) extractPDF(path string) (*Result, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract pdf text: %w", err)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf text: %w", err)
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return nil, errors.New("extract: pdf contains no extractable text")
	}
	return newResult(text, "pdf"), nil
}
