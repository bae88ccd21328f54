package models

import "time"

// Note represents a markdown note stored in the notes table.
// Deletion is soft: deleted rows keep their content until purged.
type Note struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Title     string     `db:"title" json:"title"`
	Content   string     `db:"content" json:"content"`
	Tags      string     `db:"tags" json:"tags"`
	Starred   bool       `db:"starred" json:"starred"`
	WordCount int        `db:"word_count" json:"word_count"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// NoteFilter captures filtering criteria for listing notes.
type NoteFilter struct {
	UserID   string
	Keyword  string
	Page     int
	PageSize int
}
