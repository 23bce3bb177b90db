package dto

type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionID string `json:"sessionId" validate:"omitempty,max=128"`
}

type ChatResponse struct {
	Response string        `json:"response"`
	Sources  []SourceEntry `json:"sources"`
}

// SourceEntry is a knowledge entry used as context for an answer.
type SourceEntry struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Source   string  `json:"source"`
	Score    float64 `json:"score"`
}
