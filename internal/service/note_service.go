package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/md-notes-api/internal/dto"
	"github.com/noah-isme/md-notes-api/internal/models"
	appErrors "github.com/noah-isme/md-notes-api/pkg/errors"
	"github.com/noah-isme/md-notes-api/pkg/export"
)

type noteRepository interface {
	List(ctx context.Context, filter models.NoteFilter) ([]models.Note, int, error)
	GetByID(ctx context.Context, id, userID string) (*models.Note, error)
	Create(ctx context.Context, note *models.Note) error
	Update(ctx context.Context, note *models.Note) error
	SoftDelete(ctx context.Context, id, userID string, ts time.Time) error
	SetStarred(ctx context.Context, id, userID string, starred bool, ts time.Time) error
	ListStarred(ctx context.Context, userID string) ([]models.Note, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Note, error)
	Search(ctx context.Context, userID, keyword string) ([]models.Note, error)
}

// NoteService provides note use cases scoped to the owning user.
type NoteService struct {
	repo      noteRepository
	validator *validator.Validate
	logger    *zap.Logger
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
}

// NewNoteService constructs a NoteService instance.
func NewNoteService(repo noteRepository, validate *validator.Validate, logger *zap.Logger) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NoteService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// List returns the user's notes with pagination metadata.
func (s *NoteService) List(ctx context.Context, filter models.NoteFilter) ([]models.Note, *models.Pagination, error) {
	notes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return notes, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns one note owned by the user.
func (s *NoteService) Get(ctx context.Context, id, userID string) (*models.Note, error) {
	note, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	return note, nil
}

// Create stores a new note for the user.
func (s *NoteService) Create(ctx context.Context, userID string, req dto.NoteCreateRequest) (*models.Note, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}

	now := time.Now().UTC()
	note := &models.Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		WordCount: countWords(req.Content),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create note")
	}
	return note, nil
}

// Update applies the provided fields to an existing note.
func (s *NoteService) Update(ctx context.Context, id, userID string, req dto.NoteUpdateRequest) (*models.Note, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}

	note, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Content != nil {
		note.Content = *req.Content
		note.WordCount = countWords(*req.Content)
	}
	if req.Tags != nil {
		note.Tags = *req.Tags
	}
	note.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, note); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update note")
	}
	return note, nil
}

// Delete soft-deletes a note.
func (s *NoteService) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.SoftDelete(ctx, id, userID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
	}
	return nil
}

// ToggleStar flips the starred flag on a note.
func (s *NoteService) ToggleStar(ctx context.Context, id, userID string) (*models.Note, error) {
	note, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	note.Starred = !note.Starred
	note.UpdatedAt = time.Now().UTC()
	if err := s.repo.SetStarred(ctx, id, userID, note.Starred, note.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to star note")
	}
	return note, nil
}

// Starred lists the user's starred notes.
func (s *NoteService) Starred(ctx context.Context, userID string) ([]models.Note, error) {
	notes, err := s.repo.ListStarred(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list starred notes")
	}
	return notes, nil
}

// Recent lists the user's most recently updated notes.
func (s *NoteService) Recent(ctx context.Context, userID string, limit int) ([]models.Note, error) {
	notes, err := s.repo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recent notes")
	}
	return notes, nil
}

// Search returns notes matching the keyword.
func (s *NoteService) Search(ctx context.Context, userID, keyword string) ([]models.Note, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "keyword is required")
	}
	notes, err := s.repo.Search(ctx, userID, keyword)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search notes")
	}
	return notes, nil
}

// ExportCSV renders the user's notes index as CSV.
func (s *NoteService) ExportCSV(ctx context.Context, userID string) ([]byte, error) {
	data, err := s.indexDataset(ctx, userID)
	if err != nil {
		return nil, err
	}

	out, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return out, nil
}

// ExportPDFIndex renders the user's notes index as a tabular PDF.
func (s *NoteService) ExportPDFIndex(ctx context.Context, userID string) ([]byte, error) {
	data, err := s.indexDataset(ctx, userID)
	if err != nil {
		return nil, err
	}

	out, err := s.pdf.RenderTable(data, "Notes")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return out, nil
}

func (s *NoteService) indexDataset(ctx context.Context, userID string) (export.Dataset, error) {
	notes, _, err := s.repo.List(ctx, models.NoteFilter{UserID: userID, PageSize: 100})
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}

	data := export.Dataset{Headers: []string{"title", "tags", "words", "updated_at"}}
	for _, note := range notes {
		data.Rows = append(data.Rows, map[string]string{
			"title":      note.Title,
			"tags":       note.Tags,
			"words":      strconv.Itoa(note.WordCount),
			"updated_at": note.UpdatedAt.Format(time.RFC3339),
		})
	}
	return data, nil
}

// ExportPDF renders a single note as a PDF document.
func (s *NoteService) ExportPDF(ctx context.Context, id, userID string) ([]byte, error) {
	note, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	out, err := s.pdf.RenderDocument(note.Title, note.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return out, nil
}

func countWords(content string) int {
	return len(strings.Fields(content))
}
