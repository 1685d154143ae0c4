package entities

import (
	"time"
)

// SessionStatus represents the lifecycle state of a recording session.
type SessionStatus string

const (
	SessionStatusRecording  SessionStatus = "RECORDING"
	SessionStatusProcessing SessionStatus = "PROCESSING"
	SessionStatusComplete   SessionStatus = "COMPLETE"
	SessionStatusExpired    SessionStatus = "EXPIRED"
)

// DefaultSessionTTL is how long a session stays usable after creation.
const DefaultSessionTTL = time.Hour

// Session is the top-level unit of work. It owns its chunks, fragments,
// keywords and alerts; deleting a session cascades to all of them.
//
// ChunksTotal and ChunksDone form the counter pair that progress is derived
// from. They are only ever moved through atomic store operations so that
// concurrent chunk completions cannot lose updates.
type Session struct {
	ID          string        `json:"id" bson:"_id,omitempty"`
	Status      SessionStatus `json:"status" bson:"status"`
	Progress    float64       `json:"progress" bson:"progress"`
	ChunksTotal int64         `json:"chunks_total" bson:"chunks_total"`
	ChunksDone  int64         `json:"chunks_done" bson:"chunks_done"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at" bson:"expires_at"`
	EndedAt     *time.Time    `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
}

// NewSession creates a session in RECORDING state with the given TTL.
func NewSession(ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now()
	return &Session{
		Status:    SessionStatusRecording,
		Progress:  0,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the session is past its expiry timestamp.
// Expiry is evaluated lazily on access; nothing sweeps sessions in the
// background.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsTerminal reports whether no further status transitions are allowed.
func (s *Session) IsTerminal() bool {
	return s.Status == SessionStatusComplete || s.Status == SessionStatusExpired
}
