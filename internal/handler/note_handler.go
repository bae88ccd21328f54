package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/md-notes-api/internal/dto"
	"github.com/noah-isme/md-notes-api/internal/models"
	"github.com/noah-isme/md-notes-api/internal/service"
	appErrors "github.com/noah-isme/md-notes-api/pkg/errors"
	"github.com/noah-isme/md-notes-api/pkg/response"
)

// NoteHandler wires HTTP endpoints to the note service.
type NoteHandler struct {
	service *service.NoteService
}

// NewNoteHandler creates a new handler.
func NewNoteHandler(svc *service.NoteService) *NoteHandler {
	return &NoteHandler{service: svc}
}

// List godoc
// @Summary List notes
// @Tags Notes
// @Produce json
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Param keyword query string false "Keyword filter"
// @Success 200 {object} response.Envelope
// @Router /notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	principal := principalFromContext(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	notes, pagination, err := h.service.List(c.Request.Context(), models.NoteFilter{
		UserID:   principal.UserID,
		Keyword:  c.Query("keyword"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notes, pagination)
}

// Get godoc
// @Summary Get a note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(c *gin.Context) {
	principal := principalFromContext(c)
	note, err := h.service.Get(c.Request.Context(), c.Param("id"), principal.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, note, nil)
}

// Create godoc
// @Summary Create a note
// @Tags Notes
// @Accept json
// @Produce json
// @Param payload body dto.NoteCreateRequest true "Note payload"
// @Success 201 {object} response.Envelope
// @Router /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	principal := principalFromContext(c)
	var req dto.NoteCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return
	}

	note, err := h.service.Create(c.Request.Context(), principal.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, note)
}

// Update godoc
// @Summary Update a note
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body dto.NoteUpdateRequest true "Note payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{id} [put]
func (h *NoteHandler) Update(c *gin.Context) {
	principal := principalFromContext(c)
	var req dto.NoteUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return
	}

	note, err := h.service.Update(c.Request.Context(), c.Param("id"), principal.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, note, nil)
}

// Delete godoc
// @Summary Delete a note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	principal := principalFromContext(c)
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), principal.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Search godoc
// @Summary Search notes
// @Tags Notes
// @Produce json
// @Param keyword query string true "Keyword"
// @Success 200 {object} response.Envelope
// @Router /notes/search [get]
func (h *NoteHandler) Search(c *gin.Context) {
	principal := principalFromContext(c)
	notes, err := h.service.Search(c.Request.Context(), principal.UserID, c.Query("keyword"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notes, nil)
}

// ToggleStar godoc
// @Summary Toggle the starred flag on a note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{id}/star [put]
func (h *NoteHandler) ToggleStar(c *gin.Context) {
	principal := principalFromContext(c)
	note, err := h.service.ToggleStar(c.Request.Context(), c.Param("id"), principal.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, note, nil)
}

// Starred godoc
// @Summary List starred notes
// @Tags Notes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notes/starred [get]
func (h *NoteHandler) Starred(c *gin.Context) {
	principal := principalFromContext(c)
	notes, err := h.service.Starred(c.Request.Context(), principal.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notes, nil)
}

// Recent godoc
// @Summary List recently updated notes
// @Tags Notes
// @Produce json
// @Param limit query int false "Limit"
// @Success 200 {object} response.Envelope
// @Router /notes/recent [get]
func (h *NoteHandler) Recent(c *gin.Context) {
	principal := principalFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	notes, err := h.service.Recent(c.Request.Context(), principal.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notes, nil)
}

// Export godoc
// @Summary Export notes
// @Description format=csv exports the notes index; format=pdf exports one note when id is given, otherwise a tabular notes index
// @Tags Notes
// @Produce octet-stream
// @Param format query string true "csv or pdf"
// @Param id query string false "Note ID for a single-note pdf"
// @Success 200
// @Router /notes/export [get]
func (h *NoteHandler) Export(c *gin.Context) {
	principal := principalFromContext(c)

	switch c.DefaultQuery("format", "csv") {
	case "csv":
		out, err := h.service.ExportCSV(c.Request.Context(), principal.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="notes.csv"`)
		c.Data(http.StatusOK, "text/csv", out)

	case "pdf":
		id := c.Query("id")
		if id == "" {
			out, err := h.service.ExportPDFIndex(c.Request.Context(), principal.UserID)
			if err != nil {
				response.Error(c, err)
				return
			}
			c.Header("Content-Disposition", `attachment; filename="notes.pdf"`)
			c.Data(http.StatusOK, "application/pdf", out)
			return
		}
		out, err := h.service.ExportPDF(c.Request.Context(), id, principal.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "note-"+id+".pdf"))
		c.Data(http.StatusOK, "application/pdf", out)

	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported export format"))
	}
}
