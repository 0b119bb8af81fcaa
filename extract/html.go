package extract

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

func (e *Extractor) extractHTMLFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return e.ExtractHTML(data, "file://"+path)
}

// ExtractHTML extracts readable text from an HTML page. Boilerplate tags are
// stripped first, then trafilatura, readability and the bare document text
// are tried in turn. Article content is stored as markdown when the
// conversion succeeds.
func (e *Extractor) ExtractHTML(body []byte, sourceURL string) (*Result, error) {
	pageURL, err := url.Parse(sourceURL)
	if err != nil {
		pageURL = &url.URL{Scheme: "file", Path: "/"}
	}
	cleaned := stripBoilerplate(body)

	if res := e.extractWithTrafilatura(cleaned, pageURL); res != nil {
		return res, nil
	}
	e.log.Warn("trafilatura_extraction_empty", zap.String("url", sourceURL))

	if res := e.extractWithReadability(cleaned, pageURL); res != nil {
		return res, nil
	}
	e.log.Warn("readability_extraction_empty", zap.String("url", sourceURL))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(cleaned))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	text := collapseWhitespace(doc.Text())
	if text == "" {
		return nil, errors.New("extract: page contains no text")
	}
	return newResult(text, "html"), nil
}

func (e *Extractor) extractWithTrafilatura(body []byte, pageURL *url.URL) *Result {
	opts := trafilatura.Options{
		OriginalURL: pageURL,
	}
	result, err := trafilatura.Extract(bytes.NewReader(body), opts)
	if err != nil || strings.TrimSpace(result.ContentText) == "" {
		return nil
	}
	text := result.ContentText
	method := "trafilatura"
	if result.ContentNode != nil {
		if htmlStr, err := renderNode(result.ContentNode); err == nil {
			if md, err := htmltomarkdown.ConvertString(htmlStr); err == nil && strings.TrimSpace(md) != "" {
				text = md
				method = "trafilatura_markdown"
			}
		}
	}
	return newResult(text, method)
}

func (e *Extractor) extractWithReadability(body []byte, pageURL *url.URL) *Result {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return nil
	}
	return newResult(collapseWhitespace(article.TextContent), "readability")
}

// stripBoilerplate drops the tags that never carry article text. The raw
// bytes are returned unchanged when the document cannot be parsed, so the
// downstream extractors still get a chance at it.
func stripBoilerplate(body []byte) []byte {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return body
	}
	doc.Find("script, style, nav, header, footer, aside, noscript").Remove()
	htmlStr, err := doc.Html()
	if err != nil {
		return body
	}
	return []byte(htmlStr)
}

func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
