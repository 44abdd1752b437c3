package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"blogdigest/internal/domain"
	"blogdigest/internal/ports"
)

// SnapshotRepository keeps one category snapshot per processing date.
type SnapshotRepository struct {
	db *sqlx.DB
}

var _ ports.SnapshotStore = (*SnapshotRepository)(nil)

// NewSnapshotRepository wires a sqlx connection.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// SaveSnapshot upserts the date's category set. Recomputation overwrites
// in place and never duplicates.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot domain.CategorySnapshot) error {
	query, args, err := psql.Insert("category_snapshots").
		Columns("date", "categories").
		Values(snapshot.Date, pq.StringArray(snapshot.Categories)).
		Suffix("ON CONFLICT (date) DO UPDATE SET categories = EXCLUDED.categories").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert snapshot for %s: %w", snapshot.Date, err)
	}
	return nil
}
