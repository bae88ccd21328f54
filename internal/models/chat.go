package models

import "time"

// ChatRecord is one completed exchange kept in the in-process conversation history.
type ChatRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	UserID         string    `json:"user_id"`
	Message        string    `json:"message"`
	Response       string    `json:"response"`
	Type           string    `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
}
