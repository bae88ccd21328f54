package repository

import (
	"sync"

	"github.com/noah-isme/md-notes-api/internal/models"
)

// HistoryRepository keeps per-user conversation history in process memory.
// Appends are safe under concurrent requests for the same user; each key is
// capped at limit entries and the oldest records drop off on overflow.
type HistoryRepository struct {
	mu     sync.RWMutex
	byUser map[string][]models.ChatRecord
	limit  int
}

// NewHistoryRepository constructs a history repository with a per-user cap.
func NewHistoryRepository(limit int) *HistoryRepository {
	if limit <= 0 {
		limit = 100
	}
	return &HistoryRepository{
		byUser: make(map[string][]models.ChatRecord),
		limit:  limit,
	}
}

// Append records a completed exchange for the user.
func (r *HistoryRepository) Append(userID string, record models.ChatRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := append(r.byUser[userID], record)
	if len(records) > r.limit {
		records = records[len(records)-r.limit:]
	}
	r.byUser[userID] = records
}

// List returns a copy of the user's history, oldest first.
func (r *HistoryRepository) List(userID string) []models.ChatRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.byUser[userID]
	out := make([]models.ChatRecord, len(records))
	copy(out, records)
	return out
}

// Clear removes all history for the user.
func (r *HistoryRepository) Clear(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
}
