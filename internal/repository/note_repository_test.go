package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/md-notes-api/internal/models"
)

func noteRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "title", "content", "tags", "starred", "word_count", "deleted_at", "created_at", "updated_at"}).
		AddRow("note-1", "user-1", "Groceries", "milk eggs", "errands", false, 2, nil, now, now)
}

func TestNoteRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notes WHERE user_id = $1 AND deleted_at IS NULL")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, title, content, tags, starred, word_count, deleted_at, created_at, updated_at FROM notes WHERE user_id = $1 AND deleted_at IS NULL ORDER BY updated_at DESC LIMIT $2 OFFSET $3")).
		WithArgs("user-1", 20, 0).
		WillReturnRows(noteRows(time.Now()))

	notes, total, err := repo.List(context.Background(), models.NoteFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, notes, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryListWithKeyword(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notes WHERE user_id = $1 AND deleted_at IS NULL AND (LOWER(title) LIKE $2 OR LOWER(content) LIKE $2)")).
		WithArgs("user-1", "%milk%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT .+ FROM notes WHERE user_id = .+ LIKE .+ ORDER BY updated_at DESC").
		WithArgs("user-1", "%milk%", 20, 0).
		WillReturnRows(noteRows(time.Now()))

	notes, total, err := repo.List(context.Background(), models.NoteFilter{UserID: "user-1", Keyword: "Milk"})
	require.NoError(t, err)
	assert.Len(t, notes, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, title, content, tags, starred, word_count, deleted_at, created_at, updated_at FROM notes WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL LIMIT 1")).
		WithArgs("note-1", "user-1").
		WillReturnRows(noteRows(time.Now()))

	note, err := repo.GetByID(context.Background(), "note-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", note.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	mock.ExpectExec("INSERT INTO notes").
		WillReturnResult(sqlmock.NewResult(1, 1))

	now := time.Now()
	err := repo.Create(context.Background(), &models.Note{
		ID: "note-1", UserID: "user-1", Title: "Groceries", Content: "milk eggs",
		WordCount: 2, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	mock.ExpectExec("UPDATE notes SET title").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Note{ID: "missing", UserID: "user-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	ts := time.Now()
	mock.ExpectExec("UPDATE notes SET deleted_at").
		WithArgs("note-1", "user-1", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SoftDelete(context.Background(), "note-1", "user-1", ts)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositorySetStarred(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	ts := time.Now()
	mock.ExpectExec("UPDATE notes SET starred").
		WithArgs("note-1", "user-1", true, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetStarred(context.Background(), "note-1", "user-1", true, ts)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositorySearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	mock.ExpectQuery("(?s)SELECT .+ FROM notes.+LIKE.+ORDER BY updated_at DESC").
		WithArgs("user-1", "%milk%").
		WillReturnRows(noteRows(time.Now()))

	notes, err := repo.Search(context.Background(), "user-1", "Milk")
	require.NoError(t, err)
	assert.Len(t, notes, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
