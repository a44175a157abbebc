// Package reader loads the HTML documents the engine translates, either from
// disk or over HTTP, optionally reduced to their readable article.
package reader

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
)

const (
	DefaultFetchTimeout  = 12 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024

	defaultUserAgent = "pagetrans/1.0"
)

// FetchOptions controls HTTP behavior for page loading.
type FetchOptions struct {
	Timeout       time.Duration
	BodyByteLimit int64
	UserAgent     string
	HTTPClient    *http.Client
}

// Page is a loaded source document.
type Page struct {
	URL         *url.URL
	ContentType string
	Body        []byte
}

// IsRemote reports whether src should be fetched rather than read from disk.
func IsRemote(src string) bool {
	lower := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load reads src from disk, or fetches it when it is an http(s) URL.
func Load(ctx context.Context, src string, opts FetchOptions) (Page, error) {
	if IsRemote(src) {
		return Fetch(ctx, src, opts)
	}
	body, err := os.ReadFile(src)
	if err != nil {
		return Page{}, fmt.Errorf("read page file: %w", err)
	}
	return Page{ContentType: "text/html", Body: body}, nil
}

// Fetch retrieves pageURL.
func Fetch(ctx context.Context, pageURL string, opts FetchOptions) (Page, error) {
	page := strings.TrimSpace(pageURL)
	if page == "" {
		return Page{}, fmt.Errorf("page URL is required")
	}
	parsed, err := url.Parse(page)
	if err != nil {
		return Page{}, fmt.Errorf("parse page url: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	bodyLimit := opts.BodyByteLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyByteLimit
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, page, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}

	return Page{
		URL:         parsed,
		ContentType: strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type"))),
		Body:        body,
	}, nil
}

// Readable reduces the page to its main article and returns it as a
// standalone HTML document. Plain text bodies become one paragraph per block.
func (p Page) Readable() ([]byte, error) {
	if strings.HasPrefix(p.ContentType, "text/plain") {
		return textDocument("", CleanText(string(p.Body))), nil
	}

	article, err := readability.FromReader(bytes.NewReader(p.Body), p.URL)
	if err != nil {
		return nil, fmt.Errorf("readability parse: %w", err)
	}

	var content bytes.Buffer
	if err := article.RenderHTML(&content); err != nil {
		return nil, fmt.Errorf("render readability html: %w", err)
	}
	if strings.TrimSpace(content.String()) == "" {
		excerpt := CleanText(article.Excerpt())
		if excerpt == "" {
			return nil, fmt.Errorf("reader extracted empty content")
		}
		return textDocument(article.Title(), excerpt), nil
	}

	var out bytes.Buffer
	out.WriteString("<html><head><title>")
	out.WriteString(html.EscapeString(strings.TrimSpace(article.Title())))
	out.WriteString("</title></head><body>")
	out.Write(content.Bytes())
	out.WriteString("</body></html>")
	return out.Bytes(), nil
}

func textDocument(title, text string) []byte {
	var out bytes.Buffer
	out.WriteString("<html><head><title>")
	out.WriteString(html.EscapeString(strings.TrimSpace(title)))
	out.WriteString("</title></head><body>")
	for _, paragraph := range strings.Split(text, "\n\n") {
		if paragraph == "" {
			continue
		}
		out.WriteString("<p>")
		out.WriteString(html.EscapeString(paragraph))
		out.WriteString("</p>")
	}
	out.WriteString("</body></html>")
	return out.Bytes()
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}
