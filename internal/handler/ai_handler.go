package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/md-notes-api/internal/dto"
	"github.com/noah-isme/md-notes-api/internal/service"
	"github.com/noah-isme/md-notes-api/internal/stream"
	appErrors "github.com/noah-isme/md-notes-api/pkg/errors"
	"github.com/noah-isme/md-notes-api/pkg/response"
)

// AIHandler wires HTTP endpoints to the AI service and the stream relay.
type AIHandler struct {
	service *service.AIService
	relay   *stream.Relay
}

// NewAIHandler creates a new handler.
func NewAIHandler(svc *service.AIService, relay *stream.Relay) *AIHandler {
	return &AIHandler{service: svc, relay: relay}
}

// Chat godoc
// @Summary Chat with the AI assistant
// @Tags AI
// @Accept json
// @Produce json
// @Param payload body dto.ChatRequest true "Chat payload"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /ai/chat [post]
func (h *AIHandler) Chat(c *gin.Context) {
	principal := principalFromContext(c)
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid chat payload"))
		return
	}

	record, err := h.service.Chat(c.Request.Context(), principal.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// StreamChat godoc
// @Summary Stream a chat response over SSE
// @Tags AI
// @Accept json
// @Produce text/event-stream
// @Param payload body dto.ChatRequest true "Chat payload"
// @Success 200
// @Router /ai/chat/stream [post]
func (h *AIHandler) StreamChat(c *gin.Context) {
	// Authentication is checked before any channel resources are allocated.
	principal := principalFromContext(c)
	if principal == nil {
		h.relay.Reject(c, "authentication required")
		return
	}

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.relay.Reject(c, "invalid chat payload")
		return
	}

	h.relay.Serve(c, principal.UserID, h.service.StreamChat(principal.UserID, req))
}

// Enhance godoc
// @Summary Enhance text with AI
// @Tags AI
// @Accept json
// @Produce json
// @Param payload body dto.TextRequest true "Text payload"
// @Success 200 {object} response.Envelope
// @Router /ai/enhance [post]
func (h *AIHandler) Enhance(c *gin.Context) {
	principal := principalFromContext(c)
	var req dto.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid text payload"))
		return
	}

	enhanced, err := h.service.Enhance(c.Request.Context(), principal.UserID, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"text": enhanced}, nil)
}

// StreamEnhance godoc
// @Summary Stream enhanced text over SSE
// @Tags AI
// @Accept json
// @Produce text/event-stream
// @Param payload body dto.TextRequest true "Text payload"
// @Success 200
// @Router /ai/enhance/stream [post]
func (h *AIHandler) StreamEnhance(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		h.relay.Reject(c, "authentication required")
		return
	}

	var req dto.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.relay.Reject(c, "invalid text payload")
		return
	}

	h.relay.Serve(c, principal.UserID, h.service.StreamEnhance(principal.UserID, req.Text))
}

// Summarize godoc
// @Summary Summarize content with AI
// @Tags AI
// @Accept json
// @Produce json
// @Param payload body dto.TextRequest true "Text payload"
// @Success 200 {object} response.Envelope
// @Router /ai/summarize [post]
func (h *AIHandler) Summarize(c *gin.Context) {
	principal := principalFromContext(c)
	var req dto.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid text payload"))
		return
	}

	summary, err := h.service.Summarize(c.Request.Context(), principal.UserID, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"text": summary}, nil)
}

// StreamSummarize godoc
// @Summary Stream a summary over SSE
// @Tags AI
// @Accept json
// @Produce text/event-stream
// @Param payload body dto.TextRequest true "Text payload"
// @Success 200
// @Router /ai/summarize/stream [post]
func (h *AIHandler) StreamSummarize(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		h.relay.Reject(c, "authentication required")
		return
	}

	var req dto.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.relay.Reject(c, "invalid text payload")
		return
	}

	h.relay.Serve(c, principal.UserID, h.service.StreamSummarize(principal.UserID, req.Text))
}

// Translate godoc
// @Summary Translate text with AI
// @Tags AI
// @Accept json
// @Produce json
// @Param payload body dto.TranslateRequest true "Translate payload"
// @Success 200 {object} response.Envelope
// @Router /ai/translate [post]
func (h *AIHandler) Translate(c *gin.Context) {
	principal := principalFromContext(c)
	var req dto.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid translate payload"))
		return
	}

	translated, err := h.service.Translate(c.Request.Context(), principal.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"text": translated}, nil)
}

// Conversations godoc
// @Summary Get conversation history
// @Tags AI
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ai/conversations [get]
func (h *AIHandler) Conversations(c *gin.Context) {
	principal := principalFromContext(c)
	response.JSON(c, http.StatusOK, h.service.History(principal.UserID), nil)
}

// ClearConversations godoc
// @Summary Clear conversation history
// @Tags AI
// @Produce json
// @Success 204
// @Router /ai/conversations [delete]
func (h *AIHandler) ClearConversations(c *gin.Context) {
	principal := principalFromContext(c)
	h.service.ClearHistory(principal.UserID)
	response.NoContent(c)
}
