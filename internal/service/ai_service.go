package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/md-notes-api/internal/dto"
	"github.com/noah-isme/md-notes-api/internal/models"
	"github.com/noah-isme/md-notes-api/internal/stream"
	appErrors "github.com/noah-isme/md-notes-api/pkg/errors"
)

// Generator is the synchronous generation contract. The adapter behind it
// owns all response-shape handling; the service only sees text or an error.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StreamGenerator is implemented by generators that can emit text
// incrementally. Generators without it fall back to a single chunk.
type StreamGenerator interface {
	GenerateStream(ctx context.Context, prompt string, emit func(chunk string) error) error
}

type conversationHistory interface {
	Append(userID string, record models.ChatRecord)
	List(userID string) []models.ChatRecord
	Clear(userID string)
}

// AIConfig tunes prompt assembly.
type AIConfig struct {
	SystemPrompt string
}

// generationObserver receives the latency of each upstream generation call.
type generationObserver interface {
	ObserveGeneration(duration time.Duration)
}

// AIService runs AI-assisted note operations: chat, enhancement,
// summarization and translation, with per-user conversation history.
type AIService struct {
	gen       Generator
	history   conversationHistory
	validator *validator.Validate
	logger    *zap.Logger
	config    AIConfig
	metrics   generationObserver
}

// NewAIService constructs an AIService instance. metrics may be nil.
func NewAIService(gen Generator, history conversationHistory, validate *validator.Validate, logger *zap.Logger, config AIConfig, metrics generationObserver) *AIService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AIService{gen: gen, history: history, validator: validate, logger: logger, config: config, metrics: metrics}
}

// generate runs one synchronous generation call and records its latency.
func (s *AIService) generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	response, err := s.gen.Generate(ctx, prompt)
	s.observeGeneration(start)
	return response, err
}

func (s *AIService) observeGeneration(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveGeneration(time.Since(start))
	}
}

// Chat runs one synchronous exchange and records it in the history.
func (s *AIService) Chat(ctx context.Context, userID string, req dto.ChatRequest) (*models.ChatRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chat payload")
	}

	response, err := s.generate(ctx, s.chatPrompt(req))
	if err != nil {
		return nil, upstreamError(err)
	}

	record := s.record(userID, req.ConversationID, req.Message, response, "chat")
	return &record, nil
}

// Enhance polishes the given text.
func (s *AIService) Enhance(ctx context.Context, userID, text string) (string, error) {
	return s.transform(ctx, userID, text, enhancePrompt(text), "enhance")
}

// Summarize condenses the given content.
func (s *AIService) Summarize(ctx context.Context, userID, content string) (string, error) {
	return s.transform(ctx, userID, content, summarizePrompt(content), "summarize")
}

// Translate renders the text in the target language.
func (s *AIService) Translate(ctx context.Context, userID string, req dto.TranslateRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid translate payload")
	}
	return s.transform(ctx, userID, req.Text, translatePrompt(req.Text, req.TargetLanguage), "translate")
}

// StreamChat returns a producer that streams the chat response and records
// the completed exchange.
func (s *AIService) StreamChat(userID string, req dto.ChatRequest) stream.Producer {
	return s.producer(userID, req.ConversationID, req.Message, s.chatPrompt(req), "chat")
}

// StreamEnhance returns a producer streaming the enhanced text.
func (s *AIService) StreamEnhance(userID, text string) stream.Producer {
	return s.producer(userID, "", text, enhancePrompt(text), "enhance")
}

// StreamSummarize returns a producer streaming the summary.
func (s *AIService) StreamSummarize(userID, content string) stream.Producer {
	return s.producer(userID, "", content, summarizePrompt(content), "summarize")
}

// History returns the user's conversation history, oldest first.
func (s *AIService) History(userID string) []models.ChatRecord {
	return s.history.List(userID)
}

// ClearHistory drops the user's conversation history.
func (s *AIService) ClearHistory(userID string) {
	s.history.Clear(userID)
}

func (s *AIService) transform(ctx context.Context, userID, input, prompt, kind string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "text is required")
	}

	response, err := s.generate(ctx, prompt)
	if err != nil {
		return "", upstreamError(err)
	}

	s.record(userID, "", input, response, kind)
	return response, nil
}

// upstreamError classifies a generation failure: a blown deadline surfaces as
// a timeout, everything else as an upstream failure.
func upstreamError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, "generation timed out")
	}
	return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "generation failed")
}

func (s *AIService) producer(userID, conversationID, message, prompt, kind string) stream.Producer {
	return func(ctx context.Context, emit func(chunk string) error) error {
		var full strings.Builder

		collect := func(chunk string) error {
			full.WriteString(chunk)
			return emit(chunk)
		}

		start := time.Now()
		var err error
		if sg, ok := s.gen.(StreamGenerator); ok {
			err = sg.GenerateStream(ctx, prompt, collect)
		} else {
			var text string
			text, err = s.gen.Generate(ctx, prompt)
			if err == nil {
				err = collect(text)
			}
		}
		s.observeGeneration(start)
		if err != nil {
			return err
		}

		s.record(userID, conversationID, message, full.String(), kind)
		return nil
	}
}

func (s *AIService) record(userID, conversationID, message, response, kind string) models.ChatRecord {
	record := models.ChatRecord{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserID:         userID,
		Message:        message,
		Response:       response,
		Type:           kind,
		Timestamp:      time.Now().UTC(),
	}
	s.history.Append(userID, record)
	return record
}

func (s *AIService) chatPrompt(req dto.ChatRequest) string {
	var b strings.Builder
	if s.config.SystemPrompt != "" {
		b.WriteString(s.config.SystemPrompt)
		b.WriteString("\n\n")
	}
	if strings.TrimSpace(req.Context) != "" {
		b.WriteString("Context:\n")
		b.WriteString(req.Context)
		b.WriteString("\n\n")
	}
	b.WriteString(req.Message)
	return b.String()
}

func enhancePrompt(text string) string {
	return "Polish the following text to make it clearer and more professional. Keep the original language and markdown formatting:\n\n" + text
}

func summarizePrompt(content string) string {
	return "Summarize the key points of the following content:\n\n" + content
}

func translatePrompt(text, targetLanguage string) string {
	return fmt.Sprintf("Translate the following text into %s:\n\n%s", targetLanguage, text)
}
