package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Card is one candidate item scanned from the loaded directory page.
type Card struct {
	Title       string
	URL         string
	Author      string
	Date        string // MM/DD/YYYY as rendered by the source
	Description string
}

// Session is a controlled content session over the blog directory. Open
// loads the first page, Cards scans everything currently loaded, LoadMore
// triggers the load-more affordance and reports whether new content
// materialized. Close must be safe on every exit path.
type Session interface {
	Open(ctx context.Context, pageURL string) error
	Cards(ctx context.Context) ([]Card, error)
	LoadMore(ctx context.Context, have int) (bool, error)
	Close() error
}

// DirectorySession implements Session over plain HTTP. The source's
// load-more button maps to a paged request against the same directory
// endpoint; cards accumulate across loads like they do in the browser.
type DirectorySession struct {
	client   *http.Client
	pageSize int
	loadWait time.Duration
	logger   *slog.Logger

	baseURL string
	page    int
	cards   []Card
}

var _ Session = (*DirectorySession)(nil)

// NewDirectorySession wires an HTTP client; pageSize defaults to 24.
func NewDirectorySession(client *http.Client, pageSize int, loadWait time.Duration, log *slog.Logger) *DirectorySession {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if pageSize <= 0 {
		pageSize = 24
	}
	if loadWait <= 0 {
		loadWait = 15 * time.Second
	}
	return &DirectorySession{client: client, pageSize: pageSize, loadWait: loadWait, logger: log}
}

// Open fetches the first directory page.
func (s *DirectorySession) Open(ctx context.Context, pageURL string) error {
	s.baseURL = pageURL
	s.page = 1
	s.cards = nil

	cards, err := s.fetchPage(ctx, s.page)
	if err != nil {
		return fmt.Errorf("open directory %s: %w", pageURL, err)
	}
	s.cards = cards
	return nil
}

// Cards returns every card currently loaded, in page order.
func (s *DirectorySession) Cards(_ context.Context) ([]Card, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("session not opened")
	}
	out := make([]Card, len(s.cards))
	copy(out, s.cards)
	return out, nil
}

// LoadMore requests the next page slice, bounded by the per-iteration
// wait, and reports whether the card count grew.
func (s *DirectorySession) LoadMore(ctx context.Context, have int) (bool, error) {
	if s.baseURL == "" {
		return false, fmt.Errorf("session not opened")
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.loadWait)
	defer cancel()

	cards, err := s.fetchPage(waitCtx, s.page+1)
	if err != nil {
		return false, fmt.Errorf("load more (page %d): %w", s.page+1, err)
	}

	s.page++
	s.cards = append(s.cards, cards...)
	return len(s.cards) > have, nil
}

// Close releases the underlying HTTP resources.
func (s *DirectorySession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *DirectorySession) fetchPage(ctx context.Context, page int) ([]Card, error) {
	pageURL, err := buildPageURL(s.baseURL, page, s.pageSize)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "blogdigest/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request directory page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse directory page: %w", err)
	}

	var cards []Card
	doc.Find("ul.blog-directories-container li").Each(func(_ int, li *goquery.Selection) {
		card, err := parseCard(li)
		if err != nil {
			s.debug("skip card", "error", err)
			return
		}
		cards = append(cards, card)
	})

	return cards, nil
}

// parseCard extracts one structured record from a directory card element.
// The info line reads "Author One, Author Two, MM/DD/YYYY".
func parseCard(li *goquery.Selection) (Card, error) {
	info := strings.TrimSpace(li.Find("div.m-card-info").First().Text())
	if info == "" {
		return Card{}, fmt.Errorf("card has no info line")
	}

	parts := strings.Split(info, ",")
	if len(parts) < 2 {
		return Card{}, fmt.Errorf("card info %q has no date part", info)
	}

	date := strings.TrimSpace(parts[len(parts)-1])
	authors := make([]string, 0, len(parts)-1)
	for _, part := range parts[:len(parts)-1] {
		authors = append(authors, strings.TrimSpace(part))
	}

	anchor := li.Find("div.m-card-title a").First()
	title := strings.TrimSpace(anchor.Text())
	href, _ := anchor.Attr("href")
	href = strings.TrimSpace(href)
	if title == "" || href == "" {
		return Card{}, fmt.Errorf("card is missing title or url")
	}

	description := strings.TrimSpace(li.Find("div.m-card-description").First().Text())

	return Card{
		Title:       title,
		URL:         href,
		Author:      strings.Join(authors, ", "),
		Date:        date,
		Description: description,
	}, nil
}

func buildPageURL(base string, page, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid directory url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (s *DirectorySession) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
