package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sanhakwon/metrocast/adapters/memory"
	"github.com/sanhakwon/metrocast/domain/entities"
	"github.com/sanhakwon/metrocast/domain/repositories"
	"github.com/sanhakwon/metrocast/internal/events"
)

type orchestratorFixture struct {
	store   *repositories.Store
	audio   *stubAudio
	hub     *events.Hub
	runner  *Orchestrator
	session *entities.Session
}

func newOrchestratorFixture(t *testing.T, speech repositories.SpeechToText, ttl time.Duration) *orchestratorFixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	_, store := memory.NewStore()
	audio := newStubAudio()
	hub := events.NewHub(logger)
	matcher := NewKeywordMatcher(store.Keywords, store.Alerts, logger)
	tracker := NewProgressTracker(store.Sessions, store.Chunks)
	runner := NewOrchestrator(
		store, audio, speech, matcher, tracker, hub,
		repositories.AudioConfig{SampleRate: 16000, Encoding: "LINEAR16", Language: "ko-KR"},
		time.Second, logger,
	)

	session := entities.NewSession(ttl)
	if err := store.Sessions.Create(ctx, session); err != nil {
		t.Fatal(err)
	}
	return &orchestratorFixture{
		store:   store,
		audio:   audio,
		hub:     hub,
		runner:  runner,
		session: session,
	}
}

func (f *orchestratorFixture) addChunk(t *testing.T) *entities.Chunk {
	t.Helper()
	ctx := context.Background()

	handle, err := f.audio.Save(ctx, bytes.NewReader([]byte("pcm")))
	if err != nil {
		t.Fatal(err)
	}
	chunk := &entities.Chunk{
		SessionID:     f.session.ID,
		StorageHandle: handle,
		Status:        entities.ChunkStatusPending,
	}
	if err := f.store.Chunks.Create(ctx, chunk); err != nil {
		t.Fatal(err)
	}
	return chunk
}

func drainEvents(sub *events.Subscription) []events.Event {
	var out []events.Event
	for {
		select {
		case event := <-sub.Events():
			out = append(out, event)
		default:
			return out
		}
	}
}

func eventTypes(collected []events.Event) []events.Type {
	types := make([]events.Type, 0, len(collected))
	for _, e := range collected {
		types = append(types, e.Type)
	}
	return types
}

func TestProcessChunkHappyPath(t *testing.T) {
	ctx := context.Background()
	speech := &stubSpeech{text: "환승하실 승객께서는 이번 역에서 내리시기 바랍니다.", confidence: 0.95}
	f := newOrchestratorFixture(t, speech, 0)

	if err := f.store.Keywords.Create(ctx, &entities.Keyword{SessionID: f.session.ID, Word: "환승"}); err != nil {
		t.Fatal(err)
	}
	chunk := f.addChunk(t)

	sub := f.hub.Subscribe(f.session.ID)
	defer f.hub.Unsubscribe(sub)

	if err := f.runner.ProcessChunk(ctx, chunk.ID); err != nil {
		t.Fatal(err)
	}

	fragments, err := f.store.Fragments.ListBySession(ctx, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fragments) != 1 {
		t.Fatalf("Expected 1 fragment, got %d", len(fragments))
	}
	if fragments[0].Text != speech.text {
		t.Errorf("Unexpected fragment text: %s", fragments[0].Text)
	}
	if !fragments[0].CreatedAt.Equal(chunk.CreatedAt) {
		t.Error("Fragment must carry the chunk's capture timestamp")
	}

	alerts, err := f.store.Alerts.ListBySession(ctx, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 || alerts[0].Word != "환승" {
		t.Fatalf("Expected 1 환승 alert, got %v", alerts)
	}

	stored, err := f.store.Sessions.GetByID(ctx, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != entities.SessionStatusComplete || stored.Progress != 100 {
		t.Errorf("Expected COMPLETE at 100, got %s at %v", stored.Status, stored.Progress)
	}

	types := eventTypes(drainEvents(sub))
	expected := []events.Type{
		events.TypeBroadcastCreated,
		events.TypeKeywordAlert,
		events.TypeProgress,
		events.TypeStatus,
	}
	if len(types) != len(expected) {
		t.Fatalf("Expected %d events, got %v", len(expected), types)
	}
	for i := range expected {
		if types[i] != expected[i] {
			t.Errorf("Event %d: expected %s, got %s", i, expected[i], types[i])
		}
	}
}

func TestProcessChunkEmptyTranscription(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(t, &stubSpeech{text: "   "}, 0)
	chunk := f.addChunk(t)

	sub := f.hub.Subscribe(f.session.ID)
	defer f.hub.Unsubscribe(sub)

	if err := f.runner.ProcessChunk(ctx, chunk.ID); err != nil {
		t.Fatal(err)
	}

	fragments, err := f.store.Fragments.ListBySession(ctx, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fragments) != 0 {
		t.Errorf("Silence must not produce a fragment, got %d", len(fragments))
	}

	// Progress still moves: the chunk counts as processed.
	stored, err := f.store.Sessions.GetByID(ctx, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Progress != 100 {
		t.Errorf("Expected progress 100, got %v", stored.Progress)
	}

	for _, event := range drainEvents(sub) {
		if event.Type == events.TypeBroadcastCreated {
			t.Error("Unexpected broadcast_created event for silent chunk")
		}
	}
}

func TestProcessChunkTranscriptionFailure(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(t, &stubSpeech{err: errors.New("stt unavailable")}, 0)
	chunk := f.addChunk(t)

	sub := f.hub.Subscribe(f.session.ID)
	defer f.hub.Unsubscribe(sub)

	if err := f.runner.ProcessChunk(ctx, chunk.ID); err != nil {
		t.Fatalf("Transcription failure must not fail the job: %v", err)
	}

	stored, err := f.store.Chunks.GetByID(ctx, chunk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != entities.ChunkStatusError {
		t.Errorf("Expected chunk ERROR, got %s", stored.Status)
	}

	session, err := f.store.Sessions.GetByID(ctx, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if session.Status == entities.SessionStatusComplete {
		t.Error("Session must not complete on a failed chunk")
	}

	collected := drainEvents(sub)
	if len(collected) != 1 || collected[0].Type != events.TypeStatus || collected[0].Error == "" {
		t.Errorf("Expected a single status event carrying the error, got %v", collected)
	}
}

func TestProcessChunkReprocessingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	speech := &stubSpeech{text: "환승 통로는 오른쪽입니다.", confidence: 0.9}
	f := newOrchestratorFixture(t, speech, 0)

	if err := f.store.Keywords.Create(ctx, &entities.Keyword{SessionID: f.session.ID, Word: "환승"}); err != nil {
		t.Fatal(err)
	}
	chunk := f.addChunk(t)

	if err := f.runner.ProcessChunk(ctx, chunk.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.runner.ProcessChunk(ctx, chunk.ID); err != nil {
		t.Fatal(err)
	}

	// A settled chunk must not gain a second fragment or a second alert.
	fragments, err := f.store.Fragments.ListBySession(ctx, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fragments) != 1 {
		t.Errorf("Expected 1 fragment after retry, got %d", len(fragments))
	}

	alerts, err := f.store.Alerts.ListBySession(ctx, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Errorf("Expected 1 alert after retry, got %d", len(alerts))
	}

	done, total, err := f.store.Chunks.Counts(ctx, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done != 1 || total != 1 {
		t.Errorf("Expected counters (1, 1), got (%d, %d)", done, total)
	}
}

func TestProcessChunkRetryAfterErrorIsNoOp(t *testing.T) {
	ctx := context.Background()
	speech := &stubSpeech{err: errors.New("stt unavailable")}
	f := newOrchestratorFixture(t, speech, 0)
	chunk := f.addChunk(t)

	if err := f.runner.ProcessChunk(ctx, chunk.ID); err != nil {
		t.Fatal(err)
	}

	// The service recovers, but the chunk already settled in ERROR; a
	// redelivered job must not resurrect it.
	speech.err = nil
	speech.text = "이번 역은 구로역입니다."
	if err := f.runner.ProcessChunk(ctx, chunk.ID); err != nil {
		t.Fatal(err)
	}

	stored, err := f.store.Chunks.GetByID(ctx, chunk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != entities.ChunkStatusError {
		t.Errorf("Expected chunk to stay ERROR, got %s", stored.Status)
	}

	fragments, err := f.store.Fragments.ListBySession(ctx, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fragments) != 0 {
		t.Errorf("ERROR chunk must not gain fragments, got %d", len(fragments))
	}
}

func TestProcessChunkSkipsExpiredSession(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(t, &stubSpeech{text: "이번 역은 구로역입니다."}, 0)
	chunk := f.addChunk(t)

	// Force the session past its expiry.
	expired, err := f.store.Sessions.GetByID(ctx, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	if err := f.store.Sessions.Delete(ctx, f.session.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.store.Sessions.Create(ctx, expired); err != nil {
		t.Fatal(err)
	}

	if err := f.runner.ProcessChunk(ctx, chunk.ID); err != nil {
		t.Fatal(err)
	}

	stored, err := f.store.Chunks.GetByID(ctx, chunk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != entities.ChunkStatusPending {
		t.Errorf("Expired session's chunk must stay PENDING, got %s", stored.Status)
	}

	fragments, err := f.store.Fragments.ListBySession(ctx, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fragments) != 0 {
		t.Error("Expired session must not gain fragments")
	}
}
