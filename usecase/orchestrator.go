package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanhakwon/metrocast/domain/entities"
	"github.com/sanhakwon/metrocast/domain/repositories"
	"github.com/sanhakwon/metrocast/internal/events"
)

// Orchestrator runs the per-chunk pipeline: transcribe, persist the fragment,
// scan keywords, update progress, publish events. Chunks of one session run
// fully concurrently; the only cross-chunk shared state (progress counters,
// alert rows) is guarded by the stores' atomic updates. One chunk's failure
// never blocks or corrupts its siblings.
type Orchestrator struct {
	store             *repositories.Store
	audio             repositories.AudioStore
	stt               repositories.SpeechToText
	matcher           *KeywordMatcher
	progress          *ProgressTracker
	hub               *events.Hub
	audioConfig       repositories.AudioConfig
	transcribeTimeout time.Duration
	logger            *zap.Logger
}

// NewOrchestrator wires the pipeline. All collaborators are injected so tests
// can substitute stubs without touching global state.
func NewOrchestrator(
	store *repositories.Store,
	audio repositories.AudioStore,
	stt repositories.SpeechToText,
	matcher *KeywordMatcher,
	progress *ProgressTracker,
	hub *events.Hub,
	audioConfig repositories.AudioConfig,
	transcribeTimeout time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	if transcribeTimeout <= 0 {
		transcribeTimeout = 60 * time.Second
	}
	return &Orchestrator{
		store:             store,
		audio:             audio,
		stt:               stt,
		matcher:           matcher,
		progress:          progress,
		hub:               hub,
		audioConfig:       audioConfig,
		transcribeTimeout: transcribeTimeout,
		logger:            logger,
	}
}

// ProcessChunk handles one uploaded chunk end to end. A transcription failure
// marks the chunk ERROR and stops; the core does not retry. An empty
// recognition result completes the chunk without creating a fragment or
// scanning keywords, but still moves progress. Calling it again for a chunk
// that already reached COMPLETE or ERROR is a no-op, so a redelivered job
// cannot duplicate fragments or alerts.
func (o *Orchestrator) ProcessChunk(ctx context.Context, chunkID string) error {
	chunk, err := o.store.Chunks.GetByID(ctx, chunkID)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", chunkID, err)
	}
	if chunk.Status == entities.ChunkStatusComplete || chunk.Status == entities.ChunkStatusError {
		// Redelivered job for a settled chunk. Running the pipeline again
		// would mint a second fragment and second alerts for the same audio.
		o.logger.Debug("Skipping settled chunk",
			zap.String("chunk_id", chunkID),
			zap.String("status", string(chunk.Status)))
		return nil
	}

	session, err := o.store.Sessions.GetByID(ctx, chunk.SessionID)
	if err != nil {
		// Session gone: stop processing its chunks.
		return fmt.Errorf("session %s: %w", chunk.SessionID, err)
	}
	if session.IsExpired() || session.Status == entities.SessionStatusExpired {
		o.logger.Info("Skipping chunk of expired session",
			zap.String("session_id", session.ID),
			zap.String("chunk_id", chunkID))
		return nil
	}

	if err := o.store.Chunks.SetStatus(ctx, chunkID, entities.ChunkStatusProcessing); err != nil {
		return err
	}
	if err := o.store.Sessions.SetStatus(ctx, session.ID, entities.SessionStatusProcessing); err != nil {
		o.logger.Warn("Failed to move session to PROCESSING", zap.Error(err))
	}

	transcription, err := o.transcribe(ctx, chunk)
	if err != nil {
		o.logger.Error("Transcription failed",
			zap.String("session_id", session.ID),
			zap.String("chunk_id", chunkID),
			zap.Error(err))
		if serr := o.store.Chunks.SetStatus(ctx, chunkID, entities.ChunkStatusError); serr != nil {
			o.logger.Error("Failed to mark chunk ERROR", zap.Error(serr))
		}
		o.hub.Publish(session.ID, events.Event{
			Type:    events.TypeStatus,
			ChunkID: chunkID,
			Status:  string(entities.ChunkStatusError),
			Error:   "transcription failed",
		})
		return nil
	}

	if strings.TrimSpace(transcription.Text) == "" {
		// Silence or non-announcement audio: no fragment, no keyword scan.
		o.completeAndPublishProgress(ctx, session.ID, chunkID)
		return nil
	}

	fragment := &entities.Fragment{
		SessionID:  session.ID,
		ChunkID:    chunk.ID,
		Text:       transcription.Text,
		Confidence: transcription.Confidence,
		CreatedAt:  chunk.CreatedAt,
	}
	if err := o.store.Fragments.Create(ctx, fragment); err != nil {
		return fmt.Errorf("persist fragment: %w", err)
	}

	o.hub.Publish(session.ID, events.Event{
		Type:       events.TypeBroadcastCreated,
		ChunkID:    chunk.ID,
		FragmentID: fragment.ID,
		Text:       fragment.Text,
		Confidence: fragment.Confidence,
	})

	alerts, err := o.matcher.ScanFragment(ctx, fragment)
	if err != nil {
		o.logger.Error("Keyword scan failed",
			zap.String("fragment_id", fragment.ID),
			zap.Error(err))
	}
	for _, alert := range alerts {
		detectedAt := alert.DetectedAt
		o.hub.Publish(session.ID, events.Event{
			Type:       events.TypeKeywordAlert,
			FragmentID: alert.FragmentID,
			Keyword:    alert.Word,
			DetectedAt: &detectedAt,
		})
	}

	o.completeAndPublishProgress(ctx, session.ID, chunkID)
	return nil
}

func (o *Orchestrator) transcribe(ctx context.Context, chunk *entities.Chunk) (repositories.Transcription, error) {
	audio, err := o.audio.Load(ctx, chunk.StorageHandle)
	if err != nil {
		return repositories.Transcription{}, fmt.Errorf("load audio: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.transcribeTimeout)
	defer cancel()
	return o.stt.Transcribe(ctx, audio, o.audioConfig)
}

func (o *Orchestrator) completeAndPublishProgress(ctx context.Context, sessionID, chunkID string) {
	if _, _, err := o.store.Chunks.MarkComplete(ctx, chunkID); err != nil {
		o.logger.Error("Failed to mark chunk complete",
			zap.String("chunk_id", chunkID),
			zap.Error(err))
		return
	}

	progress, completed, err := o.progress.Recompute(ctx, sessionID)
	if err != nil {
		o.logger.Error("Failed to recompute progress",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}

	if !completed && progress < 100 {
		// Chunks are still streaming in; fall back to RECORDING.
		if err := o.store.Sessions.SetStatus(ctx, sessionID, entities.SessionStatusRecording); err != nil {
			o.logger.Warn("Failed to move session back to RECORDING", zap.Error(err))
		}
	}

	o.hub.Publish(sessionID, events.Event{
		Type:     events.TypeProgress,
		Progress: &progress,
	})
	if completed {
		o.hub.Publish(sessionID, events.Event{
			Type:   events.TypeStatus,
			Status: string(entities.SessionStatusComplete),
		})
	}
}
