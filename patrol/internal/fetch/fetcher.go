// Package fetch retrieves documentation source content over HTTP.
//
// The fetcher enforces SSRF validation on the request URL and every redirect,
// caps response size, bounds concurrency with a semaphore, and produces a
// normalized Snapshot: extracted text, sanitized HTML rendered to markdown,
// title, links, images, and a SHA-256 content hash. PDF responses go through
// the pdfcpu text path instead of the HTML one.
package fetch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"

	"github.com/docpatrol/docpatrol/extract"
	"github.com/docpatrol/docpatrol/safeurl"
)

// Snapshot is the normalized result of one fetch.
type Snapshot struct {
	Text       string
	Markdown   string
	Title      string
	Links      []string
	Images     []string
	Hash       string // SHA-256 of Text
	Duration   time.Duration
	Method     string // html | pdf | text
	StatusCode int
}

// Config configures the fetcher.
type Config struct {
	Timeout        time.Duration // per-fetch HTTP timeout. Default: 20s.
	MaxBytes       int64         // max response body size. Default: safeurl.MaxResponseBody.
	MaxConcurrency int           // simultaneous fetches. Default: 3.
	UserAgent      string
	// URLValidator validates URLs before fetch and on each redirect.
	// Default: safeurl.ValidateURL.
	URLValidator func(string) error
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = safeurl.MaxResponseBody
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 3
	}
	if c.UserAgent == "" {
		c.UserAgent = "docpatrol/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = safeurl.ValidateURL
	}
}

// Fetcher performs bounded-concurrency HTTP fetches.
type Fetcher struct {
	client   *http.Client
	config   Config
	sem      chan struct{}
	sanitize *bluemonday.Policy
}

// New creates a Fetcher with SSRF protection on redirects.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked (SSRF): %w", err)
				}
				return nil
			},
		},
		config:   cfg,
		sem:      make(chan struct{}, cfg.MaxConcurrency),
		sanitize: bluemonday.UGCPolicy(),
	}
}

// Fetch retrieves a URL and returns its normalized content snapshot.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Snapshot, error) {
	select {
	case f.sem <- struct{}{}:
		defer func() { <-f.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := f.config.URLValidator(url); err != nil {
		return nil, fmt.Errorf("URL blocked (SSRF): %w", err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html, application/pdf, text/plain, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := safeurl.LimitedReadAll(resp.Body, f.config.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	snap, err := f.build(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	snap.Duration = time.Since(start)
	snap.StatusCode = resp.StatusCode
	return snap, nil
}

// build routes the body through the right extraction path by content type,
// sniffing the body when the header is absent or generic.
func (f *Fetcher) build(body []byte, contentType string) (*Snapshot, error) {
	switch {
	case strings.Contains(contentType, "application/pdf") || bytes.HasPrefix(body, []byte("%PDF-")):
		return f.buildPDF(body)
	case strings.Contains(contentType, "text/html"),
		strings.Contains(contentType, "application/xhtml"),
		looksLikeHTML(body):
		return f.buildHTML(body)
	default:
		return f.buildPlain(body)
	}
}

func (f *Fetcher) buildHTML(body []byte) (*Snapshot, error) {
	res, err := extract.Extract(body, extract.Options{})
	if err != nil {
		return nil, fmt.Errorf("extract html: %w", err)
	}

	clean := f.sanitize.Sanitize(res.HTML)
	markdown, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		// Markdown is a projection; the text snapshot stands on its own.
		markdown = ""
	}

	text := extract.CleanText(res.Text)
	return &Snapshot{
		Text:     text,
		Markdown: strings.TrimSpace(markdown),
		Title:    res.Title,
		Links:    res.Links,
		Images:   res.Images,
		Hash:     hashText(text),
		Method:   "html",
	}, nil
}

func (f *Fetcher) buildPlain(body []byte) (*Snapshot, error) {
	text := extract.CleanText(string(body))
	if text == "" {
		return nil, fmt.Errorf("empty text content")
	}
	title := text
	if i := strings.IndexByte(title, '\n'); i > 0 {
		title = title[:i]
	}
	if len(title) > 200 {
		title = title[:200]
	}
	return &Snapshot{
		Text:   text,
		Title:  title,
		Hash:   hashText(text),
		Method: "text",
	}, nil
}

func looksLikeHTML(body []byte) bool {
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	lower := bytes.ToLower(head)
	return bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("<!doctype html"))
}

func hashText(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
