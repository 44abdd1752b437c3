package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"blogdigest/internal/domain"
	"blogdigest/internal/ports"
)

// PostRepository persists posts and their categorization state.
type PostRepository struct {
	db *sqlx.DB
}

var _ ports.PostStore = (*PostRepository)(nil)

// NewPostRepository wires a sqlx connection.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

type postRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	URL         string         `db:"url"`
	Author      string         `db:"author"`
	Date        string         `db:"date"`
	Description string         `db:"description"`
	Categories  pq.StringArray `db:"categories"`
	Summary     string         `db:"summary"`
	Processed   bool           `db:"processed"`
}

func (r postRow) toDomain() domain.Post {
	return domain.Post{
		ID:          r.ID,
		Title:       r.Title,
		URL:         r.URL,
		Author:      r.Author,
		Date:        r.Date,
		Description: r.Description,
		Categories:  []string(r.Categories),
		Summary:     r.Summary,
		Processed:   r.Processed,
	}
}

// SavePosts upserts posts in one transaction keyed by source URL, so
// cross-run reruns for the same date never duplicate records.
func (r *PostRepository) SavePosts(ctx context.Context, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, post := range posts {
		query, args, err := psql.Insert("posts").
			Columns("id", "title", "url", "author", "date", "description").
			Values(post.ID, post.Title, post.URL, post.Author, post.Date, post.Description).
			Suffix(`ON CONFLICT (url) DO UPDATE
                SET title = EXCLUDED.title,
                    author = EXCLUDED.author,
                    date = EXCLUDED.date,
                    description = EXCLUDED.description`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build upsert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert post %s: %w", post.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit posts: %w", err)
	}
	return nil
}

// PostsByDate returns every post for the processing date.
func (r *PostRepository) PostsByDate(ctx context.Context, date string) ([]domain.Post, error) {
	query, args, err := psql.
		Select("id", "title", "url", "author", "date", "description", "categories", "summary", "processed").
		From("posts").
		Where("date = ?", date).
		OrderBy("url").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query posts by date: %w", err)
	}

	posts := make([]domain.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toDomain())
	}
	return posts, nil
}

// UnprocessedByDate returns posts awaiting categorization, bounded by
// limit when it is positive.
func (r *PostRepository) UnprocessedByDate(ctx context.Context, date string, limit int) ([]domain.Post, error) {
	builder := psql.
		Select("id", "title", "url", "author", "date", "description", "categories", "summary", "processed").
		From("posts").
		Where("date = ?", date).
		Where("processed = false").
		OrderBy("url")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query unprocessed posts: %w", err)
	}

	posts := make([]domain.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toDomain())
	}
	return posts, nil
}

// UpdateClassification sets categories/summary and flips processed.
// Re-applying the same result yields the same final state.
func (r *PostRepository) UpdateClassification(ctx context.Context, id string, categories []string, summary string) error {
	query, args, err := psql.Update("posts").
		Set("categories", pq.StringArray(categories)).
		Set("summary", summary).
		Set("processed", true).
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update classification for %s: %w", id, err)
	}
	return nil
}
