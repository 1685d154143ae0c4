package events

import "time"

// Type discriminates live event payloads on the wire.
type Type string

const (
	TypeProgress         Type = "progress"
	TypeChunkReceived    Type = "chunk_received"
	TypeBroadcastCreated Type = "broadcast_created"
	TypeKeywordAlert     Type = "keyword_alert"
	TypeStatus           Type = "status"
)

// Event is one state-change notification pushed to a session's live
// listeners. Fields beyond Type and SessionID are type-specific and omitted
// when empty.
type Event struct {
	Type      Type   `json:"type"`
	SessionID string `json:"session_id"`

	// progress
	Progress *float64 `json:"progress,omitempty"`

	// chunk_received / broadcast_created / keyword_alert
	ChunkID    string  `json:"chunk_id,omitempty"`
	FragmentID string  `json:"fragment_id,omitempty"`
	Text       string  `json:"full_text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// keyword_alert
	Keyword    string     `json:"keyword,omitempty"`
	DetectedAt *time.Time `json:"detected_at,omitempty"`

	// status
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}
