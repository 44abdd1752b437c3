package storage

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogdigest/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

var postColumns = []string{"id", "title", "url", "author", "date", "description", "categories", "summary", "processed"}

func TestSavePostsUpsertsInOneTransaction(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	posts := []domain.Post{
		{ID: "p1", Title: "A", URL: "/blogs/compute/a", Author: "Jane", Date: "06/25/2025", Description: "a"},
		{ID: "p2", Title: "B", URL: "/blogs/database/b", Author: "Sam", Date: "06/25/2025", Description: "b"},
	}

	mock.ExpectBegin()
	upsert := regexp.QuoteMeta("INSERT INTO posts (id,title,url,author,date,description) VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (url) DO UPDATE")
	mock.ExpectExec(upsert).
		WithArgs("p1", "A", "/blogs/compute/a", "Jane", "06/25/2025", "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsert).
		WithArgs("p2", "B", "/blogs/database/b", "Sam", "06/25/2025", "b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SavePosts(context.Background(), posts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePostsEmptySliceIsNoOp(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	require.NoError(t, repo.SavePosts(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostsByDate(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	rows := sqlmock.NewRows(postColumns).
		AddRow("p1", "A", "/blogs/compute/a", "Jane", "06/25/2025", "a", "{compute,storage}", "Sum A.", true).
		AddRow("p2", "B", "/blogs/database/b", "Sam", "06/25/2025", "b", "{}", "", false)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, url, author, date, description, categories, summary, processed FROM posts WHERE date = $1 ORDER BY url")).
		WithArgs("06/25/2025").
		WillReturnRows(rows)

	posts, err := repo.PostsByDate(context.Background(), "06/25/2025")
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, []string{"compute", "storage"}, posts[0].Categories)
	assert.Equal(t, "Sum A.", posts[0].Summary)
	assert.True(t, posts[0].Processed)
	assert.Empty(t, posts[1].Categories)
	assert.False(t, posts[1].Processed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnprocessedByDateAppliesLimit(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, url, author, date, description, categories, summary, processed FROM posts WHERE date = $1 AND processed = false ORDER BY url LIMIT 2")).
		WithArgs("06/25/2025").
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow("p1", "A", "/blogs/compute/a", "Jane", "06/25/2025", "a", "{}", "", false))

	posts, err := repo.UnprocessedByDate(context.Background(), "06/25/2025", 2)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateClassification(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET categories = $1, summary = $2, processed = $3 WHERE id = $4")).
		WithArgs(pq.StringArray{"compute"}, "Sum A.", true, "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateClassification(context.Background(), "p1", []string{"compute"}, "Sum A."))
	assert.NoError(t, mock.ExpectationsWereMet())
}
