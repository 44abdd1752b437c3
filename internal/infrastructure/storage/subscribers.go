package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"blogdigest/internal/domain"
	"blogdigest/internal/ports"
)

// SubscriberRepository reads the externally-owned subscriber list. The
// pipeline never writes here; lifecycle belongs to the subscription
// service. Email uniqueness is not assumed.
type SubscriberRepository struct {
	db *sqlx.DB
}

var _ ports.SubscriberStore = (*SubscriberRepository)(nil)

// NewSubscriberRepository wires a sqlx connection.
func NewSubscriberRepository(db *sqlx.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

type subscriberRow struct {
	ID         string         `db:"id"`
	Email      string         `db:"email"`
	Name       string         `db:"name"`
	Categories pq.StringArray `db:"categories"`
	Active     bool           `db:"active"`
}

// ActiveSubscribers returns every active subscriber and their interests.
func (r *SubscriberRepository) ActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	query, args, err := psql.
		Select("id", "email", "name", "categories", "active").
		From("subscribers").
		Where("active = true").
		OrderBy("email").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []subscriberRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query active subscribers: %w", err)
	}

	subscribers := make([]domain.Subscriber, 0, len(rows))
	for _, row := range rows {
		subscribers = append(subscribers, domain.Subscriber{
			ID:         row.ID,
			Email:      row.Email,
			Name:       row.Name,
			Categories: []string(row.Categories),
			Active:     row.Active,
		})
	}
	return subscribers, nil
}
