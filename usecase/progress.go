package usecase

import (
	"context"
	"math"

	"github.com/sanhakwon/metrocast/domain/repositories"
)

// ProgressTracker derives a session's completion percentage from its chunk
// counter pair. The counters are moved atomically by the chunk store and
// progress is written with a raise-only update, so concurrent chunk
// completions can interleave in any order without losing updates or moving
// progress backwards.
type ProgressTracker struct {
	sessions repositories.SessionRepository
	chunks   repositories.ChunkRepository
}

// NewProgressTracker creates a tracker over the given stores.
func NewProgressTracker(sessions repositories.SessionRepository, chunks repositories.ChunkRepository) *ProgressTracker {
	return &ProgressTracker{sessions: sessions, chunks: chunks}
}

// Recompute recalculates progress from the counter pair and persists it.
// When the session reaches 100% it is flipped to COMPLETE; the flip happens
// exactly once and completed reports whether this caller performed it.
func (t *ProgressTracker) Recompute(ctx context.Context, sessionID string) (progress float64, completed bool, err error) {
	done, total, err := t.chunks.Counts(ctx, sessionID)
	if err != nil {
		return 0, false, err
	}

	progress = Progress(done, total)
	if err := t.sessions.RaiseProgress(ctx, sessionID, progress); err != nil {
		return progress, false, err
	}

	if progress == 100 {
		completed, err = t.sessions.CompleteOnce(ctx, sessionID)
		if err != nil {
			return progress, false, err
		}
	}
	return progress, completed, nil
}

// Progress computes round(100*done/total, 2); 0 when no chunks exist yet.
func Progress(done, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(100 * float64(done) / float64(total))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
