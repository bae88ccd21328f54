package dto

// ChatRequest is the payload for AI chat endpoints.
type ChatRequest struct {
	Message        string `json:"message" validate:"required"`
	Context        string `json:"context" validate:"omitempty"`
	ConversationID string `json:"conversationId" validate:"omitempty,max=64"`
}

// TextRequest carries a raw text body for enhance/summarize endpoints.
type TextRequest struct {
	Text string `json:"text" validate:"required"`
}

// TranslateRequest carries text plus the requested target language.
type TranslateRequest struct {
	Text           string `json:"text" validate:"required"`
	TargetLanguage string `json:"targetLanguage" validate:"required,max=50"`
}
