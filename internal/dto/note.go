package dto

// NoteCreateRequest is the payload for creating a note.
type NoteCreateRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"omitempty"`
	Tags    string `json:"tags" validate:"omitempty,max=500"`
}

// NoteUpdateRequest is the payload for updating a note. Nil fields are untouched.
type NoteUpdateRequest struct {
	Title   *string `json:"title" validate:"omitempty,max=255"`
	Content *string `json:"content"`
	Tags    *string `json:"tags" validate:"omitempty,max=500"`
}
