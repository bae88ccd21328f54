package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/md-notes-api/internal/models"
)

// NoteRepository provides database access for notes.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository creates a new instance of NoteRepository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

const noteColumns = `id, user_id, title, content, tags, starred, word_count, deleted_at, created_at, updated_at`

// List returns the user's notes with optional keyword filtering and the total count.
func (r *NoteRepository) List(ctx context.Context, filter models.NoteFilter) ([]models.Note, int, error) {
	baseQuery := `FROM notes WHERE user_id = $1 AND deleted_at IS NULL`
	args := []interface{}{filter.UserID}

	if filter.Keyword != "" {
		baseQuery += fmt.Sprintf(" AND (LOWER(title) LIKE $%d OR LOWER(content) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Keyword)+"%")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d",
		noteColumns, baseQuery, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	return notes, total, nil
}

// GetByID returns a note owned by the given user.
func (r *NoteRepository) GetByID(ctx context.Context, id, userID string) (*models.Note, error) {
	query := fmt.Sprintf(`SELECT %s FROM notes WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL LIMIT 1`, noteColumns)
	var note models.Note
	if err := r.db.GetContext(ctx, &note, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	return &note, nil
}

// Create inserts a new note row.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	const query = `INSERT INTO notes (id, user_id, title, content, tags, starred, word_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query,
		note.ID, note.UserID, note.Title, note.Content, note.Tags,
		note.Starred, note.WordCount, note.CreatedAt, note.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// Update rewrites the mutable note fields.
func (r *NoteRepository) Update(ctx context.Context, note *models.Note) error {
	const query = `UPDATE notes SET title = $3, content = $4, tags = $5, word_count = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		note.ID, note.UserID, note.Title, note.Content, note.Tags, note.WordCount, note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete marks the note as deleted.
func (r *NoteRepository) SoftDelete(ctx context.Context, id, userID string, ts time.Time) error {
	const query = `UPDATE notes SET deleted_at = $3, updated_at = $3 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, userID, ts)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetStarred updates the starred flag.
func (r *NoteRepository) SetStarred(ctx context.Context, id, userID string, starred bool, ts time.Time) error {
	const query = `UPDATE notes SET starred = $3, updated_at = $4 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, userID, starred, ts)
	if err != nil {
		return fmt.Errorf("star note: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListStarred returns the user's starred notes, most recently updated first.
func (r *NoteRepository) ListStarred(ctx context.Context, userID string) ([]models.Note, error) {
	query := fmt.Sprintf(`SELECT %s FROM notes WHERE user_id = $1 AND starred = TRUE AND deleted_at IS NULL ORDER BY updated_at DESC`, noteColumns)
	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, userID); err != nil {
		return nil, fmt.Errorf("list starred notes: %w", err)
	}
	return notes, nil
}

// ListRecent returns the most recently updated notes up to limit.
func (r *NoteRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.Note, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM notes WHERE user_id = $1 AND deleted_at IS NULL ORDER BY updated_at DESC LIMIT $2`, noteColumns)
	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list recent notes: %w", err)
	}
	return notes, nil
}

// Search returns notes matching the keyword in title, content or tags.
func (r *NoteRepository) Search(ctx context.Context, userID, keyword string) ([]models.Note, error) {
	query := fmt.Sprintf(`SELECT %s FROM notes
		WHERE user_id = $1 AND deleted_at IS NULL
		AND (LOWER(title) LIKE $2 OR LOWER(content) LIKE $2 OR LOWER(tags) LIKE $2)
		ORDER BY updated_at DESC`, noteColumns)
	pattern := "%" + strings.ToLower(keyword) + "%"
	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, userID, pattern); err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	return notes, nil
}
