// Package memory provides an in-process implementation of the repository
// interfaces. It backs tests and development runs without a MongoDB, and its
// mutex-guarded counter updates honor the same atomicity contract the mongo
// adapter gets from $inc and unique indexes.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanhakwon/metrocast/domain/entities"
	"github.com/sanhakwon/metrocast/domain/repositories"
)

type Store struct {
	mu          sync.Mutex
	sessions    map[string]*entities.Session
	chunks      map[string]*entities.Chunk
	fragments   map[string]*entities.Fragment
	keywords    map[string]*entities.Keyword
	alerts      map[string]*entities.Alert
	transcripts map[string]*entities.Transcript // keyed by session id
}

// NewStore creates an empty in-memory store and the repository bundle over it.
func NewStore() (*Store, *repositories.Store) {
	s := &Store{
		sessions:    make(map[string]*entities.Session),
		chunks:      make(map[string]*entities.Chunk),
		fragments:   make(map[string]*entities.Fragment),
		keywords:    make(map[string]*entities.Keyword),
		alerts:      make(map[string]*entities.Alert),
		transcripts: make(map[string]*entities.Transcript),
	}
	return s, &repositories.Store{
		Sessions:    (*sessionRepo)(s),
		Chunks:      (*chunkRepo)(s),
		Fragments:   (*fragmentRepo)(s),
		Keywords:    (*keywordRepo)(s),
		Alerts:      (*alertRepo)(s),
		Transcripts: (*transcriptRepo)(s),
	}
}

func newID() string {
	return uuid.NewString()
}

// ---------------------------------------------------------------------------
// sessions

type sessionRepo Store

func (r *sessionRepo) Create(_ context.Context, session *entities.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.ID == "" {
		session.ID = newID()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = session.CreatedAt.Add(entities.DefaultSessionTTL)
	}
	if session.Status == "" {
		session.Status = entities.SessionStatusRecording
	}
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *sessionRepo) GetByID(_ context.Context, id string) (*entities.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *sessionRepo) SetStatus(_ context.Context, id string, status entities.SessionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return entities.ErrNotFound
	}
	if !s.IsTerminal() {
		s.Status = status
	}
	return nil
}

func (r *sessionRepo) RaiseProgress(_ context.Context, id string, progress float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return entities.ErrNotFound
	}
	if progress > s.Progress {
		s.Progress = progress
	}
	return nil
}

func (r *sessionRepo) CompleteOnce(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false, entities.ErrNotFound
	}
	if s.IsTerminal() {
		return false, nil
	}
	now := time.Now()
	s.Status = entities.SessionStatusComplete
	s.EndedAt = &now
	return true, nil
}

func (r *sessionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return entities.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

// ---------------------------------------------------------------------------
// chunks

type chunkRepo Store

func (r *chunkRepo) Create(_ context.Context, chunk *entities.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[chunk.SessionID]
	if !ok {
		return entities.ErrNotFound
	}
	if chunk.ID == "" {
		chunk.ID = newID()
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}
	if chunk.Status == "" {
		chunk.Status = entities.ChunkStatusPending
	}
	clone := *chunk
	r.chunks[chunk.ID] = &clone
	session.ChunksTotal++
	return nil
}

func (r *chunkRepo) GetByID(_ context.Context, id string) (*entities.Chunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chunks[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *chunkRepo) SetStatus(_ context.Context, id string, status entities.ChunkStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chunks[id]
	if !ok {
		return entities.ErrNotFound
	}
	if c.Status != entities.ChunkStatusComplete {
		c.Status = status
	}
	return nil
}

func (r *chunkRepo) MarkComplete(_ context.Context, id string) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chunks[id]
	if !ok {
		return 0, 0, entities.ErrNotFound
	}
	session, ok := r.sessions[c.SessionID]
	if !ok {
		return 0, 0, entities.ErrNotFound
	}
	if c.Status != entities.ChunkStatusComplete {
		c.Status = entities.ChunkStatusComplete
		session.ChunksDone++
	}
	return session.ChunksDone, session.ChunksTotal, nil
}

func (r *chunkRepo) Counts(_ context.Context, sessionID string) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return 0, 0, entities.ErrNotFound
	}
	return session.ChunksDone, session.ChunksTotal, nil
}

func (r *chunkRepo) ListBySession(_ context.Context, sessionID string) ([]*entities.Chunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entities.Chunk
	for _, c := range r.chunks {
		if c.SessionID == sessionID {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *chunkRepo) DeleteBySession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.chunks {
		if c.SessionID == sessionID {
			delete(r.chunks, id)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// fragments

type fragmentRepo Store

func (r *fragmentRepo) Create(_ context.Context, fragment *entities.Fragment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fragment.ID == "" {
		fragment.ID = newID()
	}
	if fragment.CreatedAt.IsZero() {
		fragment.CreatedAt = time.Now()
	}
	clone := *fragment
	r.fragments[fragment.ID] = &clone
	return nil
}

func (r *fragmentRepo) ListBySession(_ context.Context, sessionID string) ([]*entities.Fragment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entities.Fragment
	for _, f := range r.fragments {
		if f.SessionID == sessionID {
			clone := *f
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fragmentRepo) DeleteBySession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, f := range r.fragments {
		if f.SessionID == sessionID {
			delete(r.fragments, id)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// keywords

type keywordRepo Store

func (r *keywordRepo) Create(_ context.Context, keyword *entities.Keyword) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range r.keywords {
		if k.SessionID == keyword.SessionID && k.Word == keyword.Word {
			return entities.ErrDuplicateKeyword
		}
	}
	if keyword.ID == "" {
		keyword.ID = newID()
	}
	if keyword.CreatedAt.IsZero() {
		keyword.CreatedAt = time.Now()
	}
	clone := *keyword
	r.keywords[keyword.ID] = &clone
	return nil
}

func (r *keywordRepo) GetByID(_ context.Context, id string) (*entities.Keyword, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.keywords[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	clone := *k
	return &clone, nil
}

func (r *keywordRepo) ListBySession(_ context.Context, sessionID string) ([]*entities.Keyword, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entities.Keyword
	for _, k := range r.keywords {
		if k.SessionID == sessionID {
			clone := *k
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Word < out[j].Word })
	return out, nil
}

func (r *keywordRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keywords[id]; !ok {
		return entities.ErrNotFound
	}
	delete(r.keywords, id)
	return nil
}

func (r *keywordRepo) DeleteBySession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, k := range r.keywords {
		if k.SessionID == sessionID {
			delete(r.keywords, id)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// alerts

type alertRepo Store

func (r *alertRepo) CreateIfAbsent(_ context.Context, alert *entities.Alert) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.alerts {
		if a.KeywordID == alert.KeywordID && a.FragmentID == alert.FragmentID {
			return false, nil
		}
	}
	if alert.ID == "" {
		alert.ID = newID()
	}
	if alert.DetectedAt.IsZero() {
		alert.DetectedAt = time.Now()
	}
	clone := *alert
	r.alerts[alert.ID] = &clone
	return true, nil
}

func (r *alertRepo) ListBySession(_ context.Context, sessionID string) ([]*entities.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entities.Alert
	for _, a := range r.alerts {
		if a.SessionID == sessionID {
			clone := *a
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.Before(out[j].DetectedAt) })
	return out, nil
}

func (r *alertRepo) DeleteBySession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.alerts {
		if a.SessionID == sessionID {
			delete(r.alerts, id)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// transcripts

type transcriptRepo Store

func (r *transcriptRepo) Upsert(_ context.Context, transcript *entities.Transcript) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if transcript.ID == "" {
		transcript.ID = newID()
	}
	if transcript.CreatedAt.IsZero() {
		transcript.CreatedAt = time.Now()
	}
	clone := *transcript
	r.transcripts[transcript.SessionID] = &clone
	return nil
}

func (r *transcriptRepo) GetBySession(_ context.Context, sessionID string) (*entities.Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transcripts[sessionID]
	if !ok {
		return nil, entities.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *transcriptRepo) DeleteBySession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.transcripts, sessionID)
	return nil
}
