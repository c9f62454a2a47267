package webpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	DefaultMaxChars = 4000
	defaultTimeout  = 15 * time.Second
	maxHeadings     = 10
	userAgent       = "persona-panel/1.0 (+snapshot)"
)

// Snapshot is the text a persona gets to see of a landing page
type Snapshot struct {
	Title       string
	Description string
	Headings    []string
	Text        string
}

// String renders the snapshot as prompt-ready plain text
func (s Snapshot) String() string {
	var b strings.Builder
	if s.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", s.Title)
	}
	if s.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", s.Description)
	}
	if len(s.Headings) > 0 {
		fmt.Fprintf(&b, "Headings: %s\n", strings.Join(s.Headings, " | "))
	}
	if s.Text != "" {
		b.WriteString(s.Text)
	}
	return strings.TrimSpace(b.String())
}

// Fetcher downloads pages and reduces them to a Snapshot
type Fetcher struct {
	client   *http.Client
	maxChars int
	logger   *zap.Logger
}

// NewFetcher creates a fetcher. maxChars <= 0 uses DefaultMaxChars.
func NewFetcher(maxChars int, logger *zap.Logger) *Fetcher {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Fetcher{
		client:   &http.Client{Timeout: defaultTimeout},
		maxChars: maxChars,
		logger:   logger,
	}
}

// Fetch downloads url and extracts its snapshot
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch page: status code %d", resp.StatusCode)
	}

	snap, err := Extract(resp.Body, f.maxChars)
	if err != nil {
		return nil, err
	}

	if f.logger != nil {
		f.logger.Debug("🌐 Page snapshot extracted",
			zap.String("url", url),
			zap.String("title", snap.Title),
			zap.Int("text_chars", len(snap.Text)),
		)
	}
	return snap, nil
}

// Extract parses HTML and keeps the title, meta description, headings and visible text
func Extract(r io.Reader, maxChars int) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	doc.Find("script, style, noscript, template, svg").Remove()

	snap := &Snapshot{
		Title:       collapse(doc.Find("title").First().Text()),
		Description: collapse(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
	}
	if snap.Description == "" {
		snap.Description = collapse(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
	}

	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if h := collapse(s.Text()); h != "" {
			snap.Headings = append(snap.Headings, h)
		}
		return len(snap.Headings) < maxHeadings
	})

	snap.Text = truncate(collapse(doc.Find("body").Text()), maxChars)

	if snap.Title == "" && snap.Text == "" {
		return nil, fmt.Errorf("no text content found")
	}
	return snap, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return strings.TrimSpace(string(runes[:maxChars])) + "…"
}
