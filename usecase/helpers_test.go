package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sanhakwon/metrocast/domain/entities"
	"github.com/sanhakwon/metrocast/domain/repositories"
)

// stubRefiner is a scriptable TextRefiner for tests.
type stubRefiner struct {
	mu sync.Mutex

	correctText string
	correctErr  error

	summary    entities.AnnouncementSummary
	summaryErr error

	continuation    bool
	continuationErr error

	continuationCalls int
}

func (r *stubRefiner) Correct(_ context.Context, raw string) (string, error) {
	if r.correctErr != nil {
		return "", r.correctErr
	}
	if r.correctText != "" {
		return r.correctText, nil
	}
	return raw, nil
}

func (r *stubRefiner) Summarize(_ context.Context, _ string) (entities.AnnouncementSummary, error) {
	if r.summaryErr != nil {
		return entities.AnnouncementSummary{}, r.summaryErr
	}
	if r.summary == (entities.AnnouncementSummary{}) {
		return entities.DefaultSummary(), nil
	}
	return r.summary, nil
}

func (r *stubRefiner) IsContinuation(_ context.Context, _, _ string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.continuationCalls++
	if r.continuationErr != nil {
		return false, r.continuationErr
	}
	return r.continuation, nil
}

// stubSpeech returns one fixed transcription, or fails.
type stubSpeech struct {
	text       string
	confidence float64
	err        error
}

func (s *stubSpeech) Transcribe(_ context.Context, _ []byte, _ repositories.AudioConfig) (repositories.Transcription, error) {
	if s.err != nil {
		return repositories.Transcription{}, s.err
	}
	return repositories.Transcription{Text: s.text, Confidence: s.confidence}, nil
}

// stubAudio keeps audio bytes in a map.
type stubAudio struct {
	mu    sync.Mutex
	blobs map[string][]byte
	next  int
}

func newStubAudio() *stubAudio {
	return &stubAudio{blobs: make(map[string][]byte)}
}

func (a *stubAudio) Save(_ context.Context, r io.Reader) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return "", err
	}
	a.next++
	handle := fmt.Sprintf("audio-%d", a.next)
	a.blobs[handle] = buf.Bytes()
	return handle, nil
}

func (a *stubAudio) Load(_ context.Context, handle string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	blob, ok := a.blobs[handle]
	if !ok {
		return nil, errors.New("unknown audio handle")
	}
	return blob, nil
}

func (a *stubAudio) Remove(_ context.Context, handle string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.blobs, handle)
	return nil
}

func (a *stubAudio) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.blobs)
}
