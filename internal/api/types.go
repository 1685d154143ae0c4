package api

import (
	"github.com/go-playground/validator/v10"

	"github.com/sanhakwon/metrocast/domain/entities"
)

// RequestValidator plugs go-playground/validator into echo.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates the echo validator.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate implements echo.Validator
func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// RegisterKeywordsRequest registers a batch of watch words on a session.
type RegisterKeywordsRequest struct {
	SessionID string   `json:"session_id" validate:"required"`
	Words     []string `json:"words" validate:"required,min=1,dive,required"`
}

// ChunkUploadResponse acknowledges an accepted chunk upload.
type ChunkUploadResponse struct {
	ChunkID   string `json:"chunk_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// KeywordResponse is one registered keyword.
type KeywordResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Word      string `json:"word"`
}

// KeywordDeletedResponse echoes the removed word back.
type KeywordDeletedResponse struct {
	ID     string `json:"id"`
	Word   string `json:"keyword"`
	Detail string `json:"detail"`
}

// SessionStatusResponse is the status endpoint payload.
type SessionStatusResponse struct {
	SessionID     string            `json:"session_id"`
	Status        string            `json:"status"`
	Progress      float64           `json:"progress"`
	DoneChunks    int64             `json:"done_chunks"`
	TotalChunks   int64             `json:"total_chunks"`
	TotalAlerts   int               `json:"total_keywords"`
	KeywordAlerts []*entities.Alert `json:"keyword_alerts"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func keywordResponses(keywords []*entities.Keyword) []KeywordResponse {
	out := make([]KeywordResponse, 0, len(keywords))
	for _, k := range keywords {
		out = append(out, KeywordResponse{
			ID:        k.ID,
			SessionID: k.SessionID,
			Word:      k.Word,
		})
	}
	return out
}
