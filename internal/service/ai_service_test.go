package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/md-notes-api/internal/dto"
	"github.com/noah-isme/md-notes-api/internal/models"
	appErrors "github.com/noah-isme/md-notes-api/pkg/errors"
)

type generatorStub struct {
	response   string
	err        error
	lastPrompt string
}

func (g *generatorStub) Generate(ctx context.Context, prompt string) (string, error) {
	g.lastPrompt = prompt
	return g.response, g.err
}

type streamGeneratorStub struct {
	generatorStub
	chunks    []string
	streamErr error
}

func (g *streamGeneratorStub) GenerateStream(ctx context.Context, prompt string, emit func(chunk string) error) error {
	g.lastPrompt = prompt
	for _, chunk := range g.chunks {
		if err := emit(chunk); err != nil {
			return err
		}
	}
	return g.streamErr
}

type historyStub struct {
	records map[string][]models.ChatRecord
}

func newHistoryStub() *historyStub {
	return &historyStub{records: make(map[string][]models.ChatRecord)}
}

func (h *historyStub) Append(userID string, record models.ChatRecord) {
	h.records[userID] = append(h.records[userID], record)
}

func (h *historyStub) List(userID string) []models.ChatRecord {
	return h.records[userID]
}

func (h *historyStub) Clear(userID string) {
	delete(h.records, userID)
}

func TestAIServiceChatRecordsHistory(t *testing.T) {
	gen := &generatorStub{response: "hello there"}
	history := newHistoryStub()
	svc := NewAIService(gen, history, nil, nil, AIConfig{SystemPrompt: "You help with notes."}, nil)

	record, err := svc.Chat(context.Background(), "user-1", dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", record.Response)
	assert.Equal(t, "hi", record.Message)
	assert.Equal(t, "chat", record.Type)

	assert.Contains(t, gen.lastPrompt, "You help with notes.")
	assert.Contains(t, gen.lastPrompt, "hi")

	require.Len(t, history.List("user-1"), 1)
}

func TestAIServiceChatIncludesContext(t *testing.T) {
	gen := &generatorStub{response: "ok"}
	svc := NewAIService(gen, newHistoryStub(), nil, nil, AIConfig{}, nil)

	_, err := svc.Chat(context.Background(), "user-1", dto.ChatRequest{Message: "summarize this", Context: "# My Note"})
	require.NoError(t, err)
	assert.Contains(t, gen.lastPrompt, "# My Note")
}

func TestAIServiceChatUpstreamFailure(t *testing.T) {
	gen := &generatorStub{err: errors.New("quota exceeded")}
	history := newHistoryStub()
	svc := NewAIService(gen, history, nil, nil, AIConfig{}, nil)

	_, err := svc.Chat(context.Background(), "user-1", dto.ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUpstream))
	assert.Empty(t, history.List("user-1"), "failed exchanges are not recorded")
}

func TestAIServiceChatDeadlineExceeded(t *testing.T) {
	gen := &generatorStub{err: context.DeadlineExceeded}
	svc := NewAIService(gen, newHistoryStub(), nil, nil, AIConfig{}, nil)

	_, err := svc.Chat(context.Background(), "user-1", dto.ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrTimeout))
}

func TestAIServiceChatValidatesMessage(t *testing.T) {
	svc := NewAIService(&generatorStub{}, newHistoryStub(), nil, nil, AIConfig{}, nil)

	_, err := svc.Chat(context.Background(), "user-1", dto.ChatRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestAIServiceEnhanceRejectsEmptyText(t *testing.T) {
	svc := NewAIService(&generatorStub{}, newHistoryStub(), nil, nil, AIConfig{}, nil)

	_, err := svc.Enhance(context.Background(), "user-1", "   ")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestAIServiceTranslate(t *testing.T) {
	gen := &generatorStub{response: "bonjour"}
	svc := NewAIService(gen, newHistoryStub(), nil, nil, AIConfig{}, nil)

	out, err := svc.Translate(context.Background(), "user-1", dto.TranslateRequest{Text: "hello", TargetLanguage: "French"})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", out)
	assert.Contains(t, gen.lastPrompt, "French")
}

func TestAIServiceTranslateRequiresTargetLanguage(t *testing.T) {
	svc := NewAIService(&generatorStub{}, newHistoryStub(), nil, nil, AIConfig{}, nil)

	_, err := svc.Translate(context.Background(), "user-1", dto.TranslateRequest{Text: "hello"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

type generationObserverStub struct {
	observations []time.Duration
}

func (o *generationObserverStub) ObserveGeneration(duration time.Duration) {
	o.observations = append(o.observations, duration)
}

func TestAIServiceChatObservesGenerationLatency(t *testing.T) {
	observer := &generationObserverStub{}
	svc := NewAIService(&generatorStub{response: "ok"}, newHistoryStub(), nil, nil, AIConfig{}, observer)

	_, err := svc.Chat(context.Background(), "user-1", dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	require.Len(t, observer.observations, 1)
	assert.GreaterOrEqual(t, observer.observations[0], time.Duration(0))
}

func TestAIServiceStreamProducerObservesGenerationLatency(t *testing.T) {
	observer := &generationObserverStub{}
	gen := &streamGeneratorStub{chunks: []string{"a", "b"}}
	svc := NewAIService(gen, newHistoryStub(), nil, nil, AIConfig{}, observer)

	produce := svc.StreamChat("user-1", dto.ChatRequest{Message: "hi"})
	err := produce(context.Background(), func(chunk string) error { return nil })
	require.NoError(t, err)
	assert.Len(t, observer.observations, 1)
}

func TestAIServiceStreamProducerEmitsChunks(t *testing.T) {
	gen := &streamGeneratorStub{chunks: []string{"Mark", "down ", "notes"}}
	history := newHistoryStub()
	svc := NewAIService(gen, history, nil, nil, AIConfig{}, nil)

	produce := svc.StreamChat("user-1", dto.ChatRequest{Message: "hi"})

	var got []string
	err := produce(context.Background(), func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mark", "down ", "notes"}, got)

	records := history.List("user-1")
	require.Len(t, records, 1)
	assert.Equal(t, "Markdown notes", records[0].Response, "history stores the assembled response")
}

func TestAIServiceStreamProducerFallsBackToSingleChunk(t *testing.T) {
	gen := &generatorStub{response: "whole answer"}
	history := newHistoryStub()
	svc := NewAIService(gen, history, nil, nil, AIConfig{}, nil)

	produce := svc.StreamEnhance("user-1", "draft text")

	var got []string
	err := produce(context.Background(), func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"whole answer"}, got)
	require.Len(t, history.List("user-1"), 1)
}

func TestAIServiceStreamProducerPropagatesError(t *testing.T) {
	gen := &streamGeneratorStub{chunks: []string{"partial"}, streamErr: errors.New("connection reset")}
	history := newHistoryStub()
	svc := NewAIService(gen, history, nil, nil, AIConfig{}, nil)

	produce := svc.StreamSummarize("user-1", "content")

	err := produce(context.Background(), func(chunk string) error { return nil })
	require.Error(t, err)
	assert.Empty(t, history.List("user-1"), "failed streams are not recorded")
}

func TestAIServiceClearHistory(t *testing.T) {
	history := newHistoryStub()
	svc := NewAIService(&generatorStub{response: "ok"}, history, nil, nil, AIConfig{}, nil)

	_, err := svc.Chat(context.Background(), "user-1", dto.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	require.NotEmpty(t, svc.History("user-1"))

	svc.ClearHistory("user-1")
	assert.Empty(t, svc.History("user-1"))
}
