package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"blogdigest/internal/domain"
)

// Extractor drives a content session against the blog directory and
// collects every post published on the target date. The source lists
// items newest-first, so the first card strictly older than the target
// date ends the run.
type Extractor struct {
	session  Session
	url      string
	maxLoads int
	logger   *slog.Logger
}

// New wires a session against the configured directory URL.
func New(session Session, url string, maxLoads int, log *slog.Logger) *Extractor {
	if maxLoads <= 0 {
		maxLoads = 50
	}
	return &Extractor{session: session, url: url, maxLoads: maxLoads, logger: log}
}

// Run returns the finite post set for the date. Inability to open the
// session is fatal; a single unparseable card is logged and skipped;
// reaching the load ceiling ends the run with whatever was collected.
// The session is closed on every exit path.
func (e *Extractor) Run(ctx context.Context, date string) ([]domain.Post, error) {
	target, err := domain.ParseDate(date)
	if err != nil {
		return nil, err
	}

	if err := e.session.Open(ctx, e.url); err != nil {
		e.closeSession()
		return nil, fmt.Errorf("open content session: %w", err)
	}
	defer e.closeSession()

	seen := map[string]struct{}{}
	var posts []domain.Post
	scanned := 0

	for load := 0; load < e.maxLoads; load++ {
		cards, err := e.session.Cards(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan directory page: %w", err)
		}

		fresh, olderFound := e.collect(cards[scanned:], target, date, seen, &posts)
		scanned = len(cards)
		e.debug("load processed", "load", load+1, "new_posts", fresh, "total", len(posts))

		if olderFound {
			e.debug("older card reached, stopping", "date", date)
			return posts, nil
		}

		grew, err := e.session.LoadMore(ctx, scanned)
		if err != nil {
			e.warn("load more failed, stopping with partial results", "error", err)
			return posts, nil
		}
		if !grew {
			e.debug("no further content, stopping")
			return posts, nil
		}
	}

	e.warn("reached load ceiling", "max_loads", e.maxLoads, "collected", len(posts))
	return posts, nil
}

// collect walks freshly loaded cards, deduplicates by source URL within
// the run, and reports whether an older-than-target card was found.
func (e *Extractor) collect(cards []Card, target time.Time, date string, seen map[string]struct{}, posts *[]domain.Post) (int, bool) {
	fresh := 0
	for _, card := range cards {
		if _, ok := seen[card.URL]; ok {
			continue
		}
		seen[card.URL] = struct{}{}

		cardDay, err := domain.ParseDate(card.Date)
		if err != nil {
			e.warn("skip card with unparseable date", "url", card.URL, "date", card.Date)
			continue
		}

		if cardDay.Before(target) {
			return fresh, true
		}
		if !cardDay.Equal(target) {
			continue
		}

		*posts = append(*posts, domain.Post{
			ID:          uuid.NewString(),
			Title:       card.Title,
			URL:         card.URL,
			Author:      card.Author,
			Date:        date,
			Description: card.Description,
		})
		fresh++
	}
	return fresh, false
}

func (e *Extractor) closeSession() {
	if err := e.session.Close(); err != nil {
		e.warn("close session", "error", err)
	}
}

func (e *Extractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Extractor) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
