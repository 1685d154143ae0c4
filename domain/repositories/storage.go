package repositories

import (
	"context"
	"io"

	"github.com/sanhakwon/metrocast/domain/entities"
)

// SessionRepository defines data access methods for sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error
	GetByID(ctx context.Context, id string) (*entities.Session, error)
	// SetStatus moves the session to status unless it is already terminal.
	SetStatus(ctx context.Context, id string, status entities.SessionStatus) error
	// RaiseProgress sets progress only if the new value is higher than the
	// stored one, so concurrent recomputations can never move it backwards.
	RaiseProgress(ctx context.Context, id string, progress float64) error
	// CompleteOnce flips the session to COMPLETE and stamps EndedAt. It
	// reports true only for the caller that performed the flip.
	CompleteOnce(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// ChunkRepository defines data access methods for audio chunks. Creating a
// chunk and completing a chunk both move the session's counter pair
// atomically; read-then-write progress updates are a correctness bug under
// concurrent completions.
type ChunkRepository interface {
	// Create inserts the chunk and increments the session's total counter.
	Create(ctx context.Context, chunk *entities.Chunk) error
	GetByID(ctx context.Context, id string) (*entities.Chunk, error)
	SetStatus(ctx context.Context, id string, status entities.ChunkStatus) error
	// MarkComplete transitions the chunk to COMPLETE and increments the
	// session's done counter exactly once, even when called repeatedly for
	// the same chunk. It returns the counter pair after the update.
	MarkComplete(ctx context.Context, id string) (done, total int64, err error)
	// Counts returns the session's (done, total) counter pair.
	Counts(ctx context.Context, sessionID string) (done, total int64, err error)
	// ListBySession returns the session's chunks ordered by creation time
	// ascending. The cascade uses it to release stored audio.
	ListBySession(ctx context.Context, sessionID string) ([]*entities.Chunk, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

// FragmentRepository stores per-chunk recognition results.
type FragmentRepository interface {
	Create(ctx context.Context, fragment *entities.Fragment) error
	// ListBySession returns fragments ordered by creation time ascending.
	ListBySession(ctx context.Context, sessionID string) ([]*entities.Fragment, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

// KeywordRepository stores operator-registered keywords. (session, word) is
// unique; Create returns entities.ErrDuplicateKeyword on violation.
type KeywordRepository interface {
	Create(ctx context.Context, keyword *entities.Keyword) error
	GetByID(ctx context.Context, id string) (*entities.Keyword, error)
	ListBySession(ctx context.Context, sessionID string) ([]*entities.Keyword, error)
	Delete(ctx context.Context, id string) error
	DeleteBySession(ctx context.Context, sessionID string) error
}

// AlertRepository stores keyword detections. At most one alert may exist per
// (keyword, fragment) pair.
type AlertRepository interface {
	// CreateIfAbsent inserts the alert unless one already exists for the
	// same (keyword, fragment) pair. It reports whether a row was created;
	// a duplicate is a no-op, never an error.
	CreateIfAbsent(ctx context.Context, alert *entities.Alert) (bool, error)
	ListBySession(ctx context.Context, sessionID string) ([]*entities.Alert, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

// TranscriptRepository stores the per-session rollup, one document per
// session, replaced on every results run.
type TranscriptRepository interface {
	Upsert(ctx context.Context, transcript *entities.Transcript) error
	GetBySession(ctx context.Context, sessionID string) (*entities.Transcript, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

// AudioStore persists raw chunk audio behind opaque handles.
type AudioStore interface {
	Save(ctx context.Context, r io.Reader) (handle string, err error)
	Load(ctx context.Context, handle string) ([]byte, error)
	Remove(ctx context.Context, handle string) error
}

// Store bundles every repository a use case may need. Adapters populate it
// with implementations backed by the same database.
type Store struct {
	Sessions    SessionRepository
	Chunks      ChunkRepository
	Fragments   FragmentRepository
	Keywords    KeywordRepository
	Alerts      AlertRepository
	Transcripts TranscriptRepository
}
