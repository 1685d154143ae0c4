package usecase

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/sanhakwon/metrocast/domain/entities"
	"github.com/sanhakwon/metrocast/domain/repositories"
	"github.com/sanhakwon/metrocast/internal/events"
)

// SessionService owns the session lifecycle: creation, lazy expiry, cascading
// deletion, status reads and chunk intake.
type SessionService struct {
	store  *repositories.Store
	audio  repositories.AudioStore
	hub    *events.Hub
	ttl    time.Duration
	logger *zap.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(store *repositories.Store, audio repositories.AudioStore, hub *events.Hub, ttl time.Duration, logger *zap.Logger) *SessionService {
	if ttl <= 0 {
		ttl = entities.DefaultSessionTTL
	}
	return &SessionService{
		store:  store,
		audio:  audio,
		hub:    hub,
		ttl:    ttl,
		logger: logger,
	}
}

// Create starts a new RECORDING session with the configured TTL.
func (s *SessionService) Create(ctx context.Context) (*entities.Session, error) {
	session := entities.NewSession(s.ttl)
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("Session created",
		zap.String("session_id", session.ID),
		zap.Time("expires_at", session.ExpiresAt))
	return session, nil
}

// Get retrieves a session, evaluating expiry lazily. An expired session is
// cascade-deleted on this access and reported as entities.ErrExpired.
func (s *SessionService) Get(ctx context.Context, id string) (*entities.Session, error) {
	session, err := s.store.Sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		s.logger.Info("Session expired, cascading delete", zap.String("session_id", id))
		if err := s.deleteCascade(ctx, id); err != nil {
			s.logger.Error("Cascade delete of expired session failed", zap.Error(err))
		}
		return nil, entities.ErrExpired
	}
	return session, nil
}

// Delete removes the session and everything it owns.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Sessions.GetByID(ctx, id); err != nil {
		return err
	}
	return s.deleteCascade(ctx, id)
}

func (s *SessionService) deleteCascade(ctx context.Context, id string) error {
	// Release stored audio before the chunk rows disappear; losing a handle
	// means the file can never be cleaned up. Removal failures are logged and
	// skipped so one stuck file cannot block the cascade.
	chunks, err := s.store.Chunks.ListBySession(ctx, id)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if chunk.StorageHandle == "" {
			continue
		}
		if err := s.audio.Remove(ctx, chunk.StorageHandle); err != nil {
			s.logger.Warn("Failed to remove chunk audio",
				zap.String("chunk_id", chunk.ID),
				zap.Error(err))
		}
	}

	if err := s.store.Alerts.DeleteBySession(ctx, id); err != nil {
		return err
	}
	if err := s.store.Keywords.DeleteBySession(ctx, id); err != nil {
		return err
	}
	if err := s.store.Fragments.DeleteBySession(ctx, id); err != nil {
		return err
	}
	if err := s.store.Chunks.DeleteBySession(ctx, id); err != nil {
		return err
	}
	if err := s.store.Transcripts.DeleteBySession(ctx, id); err != nil {
		return err
	}
	return s.store.Sessions.Delete(ctx, id)
}

// SessionStatus is the status endpoint's view of a session.
type SessionStatus struct {
	Session    *entities.Session `json:"session"`
	DoneChunks int64             `json:"done_chunks"`
	Total      int64             `json:"total_chunks"`
	Alerts     []*entities.Alert `json:"keyword_alerts"`
}

// Status reads the session's progress counters and alert list.
func (s *SessionService) Status(ctx context.Context, id string) (*SessionStatus, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	done, total, err := s.store.Chunks.Counts(ctx, id)
	if err != nil {
		return nil, err
	}
	alerts, err := s.store.Alerts.ListBySession(ctx, id)
	if err != nil {
		return nil, err
	}

	return &SessionStatus{
		Session:    session,
		DoneChunks: done,
		Total:      total,
		Alerts:     alerts,
	}, nil
}

// AcceptChunk stores the uploaded audio, registers a PENDING chunk against
// the session and announces the intake. Orchestration itself runs on the
// worker pool; this only has to be fast.
func (s *SessionService) AcceptChunk(ctx context.Context, sessionID string, audio io.Reader) (*entities.Chunk, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	handle, err := s.audio.Save(ctx, audio)
	if err != nil {
		return nil, err
	}

	chunk := &entities.Chunk{
		SessionID:     sessionID,
		StorageHandle: handle,
		Status:        entities.ChunkStatusPending,
	}
	if err := s.store.Chunks.Create(ctx, chunk); err != nil {
		return nil, err
	}

	s.hub.Publish(sessionID, events.Event{
		Type:    events.TypeChunkReceived,
		ChunkID: chunk.ID,
	})
	return chunk, nil
}
