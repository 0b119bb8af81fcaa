// Package ingest fetches remote pages so they can enter the pipeline the
// same way uploaded files do.
package ingest

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const (
	DefaultUserAgent = "raglab/1.0"
	DefaultTimeout   = 30 * time.Second

	// Fetched bodies share the upload size cap.
	MaxBodySize = 10 << 20
)

// Page is one fetched document.
type Page struct {
	URL         string
	Body        []byte
	ContentType string
	StatusCode  int
}

// SuggestedFilename derives a filename for storing the page, from the last
// URL path segment when there is one.
func (p *Page) SuggestedFilename() string {
	parsed, err := url.Parse(p.URL)
	if err != nil {
		return "page.html"
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "/" || name == "." {
		name = parsed.Hostname() + ".html"
	}
	return name
}

// FileType maps the response content type onto a pipeline file type.
// Anything unrecognized is treated as HTML, which is what web servers
// mislabel most often.
func (p *Page) FileType() string {
	ct := strings.ToLower(p.ContentType)
	switch {
	case strings.Contains(ct, "application/pdf"):
		return "pdf"
	case strings.Contains(ct, "text/markdown"):
		return "md"
	case strings.Contains(ct, "text/plain"):
		return "txt"
	default:
		return "html"
	}
}

type Fetcher struct {
	userAgent string
	timeout   time.Duration
	log       *zap.Logger
}

func NewFetcher(userAgent string, timeout time.Duration, log *zap.Logger) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{userAgent: userAgent, timeout: timeout, log: log}
}

// Fetch downloads a single page. Each call uses a fresh collector so visits
// are never deduplicated across requests.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ingest: invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("ingest: unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("ingest: url %q has no host", rawURL)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.MaxDepth(1),
		colly.MaxBodySize(MaxBodySize),
	)
	c.SetRequestTimeout(f.timeout)

	var page *Page
	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:         r.Request.URL.String(),
			Body:        append([]byte(nil), r.Body...),
			ContentType: r.Headers.Get("Content-Type"),
			StatusCode:  r.StatusCode,
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = fmt.Errorf("ingest: %s returned status %d", rawURL, r.StatusCode)
			return
		}
		fetchErr = fmt.Errorf("ingest: fetch %s: %w", rawURL, err)
	})

	if err := c.Visit(parsed.String()); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("ingest: fetch %s: %w", rawURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if page == nil {
		return nil, fmt.Errorf("ingest: no response from %s", rawURL)
	}
	if page.StatusCode < 200 || page.StatusCode > 299 {
		return nil, fmt.Errorf("ingest: %s returned status %d", rawURL, page.StatusCode)
	}
	f.log.Info("page_fetched",
		zap.String("url", page.URL),
		zap.Int("status", page.StatusCode),
		zap.Int("bytes", len(page.Body)),
		zap.String("content_type", page.ContentType),
	)
	return page, nil
}
