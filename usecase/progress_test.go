package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/sanhakwon/metrocast/adapters/memory"
	"github.com/sanhakwon/metrocast/domain/entities"
	"github.com/sanhakwon/metrocast/domain/repositories"
)

func TestProgressComputation(t *testing.T) {
	cases := []struct {
		done, total int64
		expected    float64
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 2, 50},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{3, 3, 100},
	}

	for _, tc := range cases {
		if got := Progress(tc.done, tc.total); got != tc.expected {
			t.Errorf("Progress(%d, %d) = %v, expected %v", tc.done, tc.total, got, tc.expected)
		}
	}
}

func seedSessionWithChunks(t *testing.T, store *repositories.Store, n int) (*entities.Session, []*entities.Chunk) {
	t.Helper()
	ctx := context.Background()

	session := entities.NewSession(0)
	if err := store.Sessions.Create(ctx, session); err != nil {
		t.Fatal(err)
	}

	chunks := make([]*entities.Chunk, 0, n)
	for i := 0; i < n; i++ {
		chunk := &entities.Chunk{SessionID: session.ID, StorageHandle: "h"}
		if err := store.Chunks.Create(ctx, chunk); err != nil {
			t.Fatal(err)
		}
		chunks = append(chunks, chunk)
	}
	return session, chunks
}

func TestRecomputePartialProgress(t *testing.T) {
	ctx := context.Background()
	_, store := memory.NewStore()
	session, chunks := seedSessionWithChunks(t, store, 2)

	tracker := NewProgressTracker(store.Sessions, store.Chunks)

	if _, _, err := store.Chunks.MarkComplete(ctx, chunks[0].ID); err != nil {
		t.Fatal(err)
	}
	progress, completed, err := tracker.Recompute(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if progress != 50 {
		t.Errorf("Expected progress 50, got %v", progress)
	}
	if completed {
		t.Error("Session must not complete at 50%")
	}

	stored, err := store.Sessions.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Progress != 50 {
		t.Errorf("Expected persisted progress 50, got %v", stored.Progress)
	}
	if stored.Status == entities.SessionStatusComplete {
		t.Error("Session flipped COMPLETE too early")
	}
}

func TestRecomputeCompletesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	_, store := memory.NewStore()
	session, chunks := seedSessionWithChunks(t, store, 2)

	tracker := NewProgressTracker(store.Sessions, store.Chunks)

	for _, chunk := range chunks {
		if _, _, err := store.Chunks.MarkComplete(ctx, chunk.ID); err != nil {
			t.Fatal(err)
		}
	}

	progress, completed, err := tracker.Recompute(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if progress != 100 || !completed {
		t.Fatalf("Expected (100, true), got (%v, %v)", progress, completed)
	}

	// A second recompute at 100% must not report the flip again.
	_, completed, err = tracker.Recompute(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if completed {
		t.Error("COMPLETE flip reported twice")
	}

	stored, err := store.Sessions.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != entities.SessionStatusComplete {
		t.Errorf("Expected COMPLETE, got %s", stored.Status)
	}
	if stored.EndedAt == nil {
		t.Error("Expected EndedAt to be set")
	}
}

func TestRecomputeConcurrentCompletions(t *testing.T) {
	ctx := context.Background()
	_, store := memory.NewStore()
	session, chunks := seedSessionWithChunks(t, store, 8)

	tracker := NewProgressTracker(store.Sessions, store.Chunks)

	for _, chunk := range chunks {
		if _, _, err := store.Chunks.MarkComplete(ctx, chunk.ID); err != nil {
			t.Fatal(err)
		}
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		flips int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, completed, err := tracker.Recompute(ctx, session.ID)
			if err != nil {
				t.Error(err)
				return
			}
			if completed {
				mu.Lock()
				flips++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if flips != 1 {
		t.Errorf("Expected exactly 1 COMPLETE flip, got %d", flips)
	}
}

func TestProgressNeverRegresses(t *testing.T) {
	ctx := context.Background()
	_, store := memory.NewStore()
	session, _ := seedSessionWithChunks(t, store, 2)

	if err := store.Sessions.RaiseProgress(ctx, session.ID, 50); err != nil {
		t.Fatal(err)
	}
	if err := store.Sessions.RaiseProgress(ctx, session.ID, 25); err != nil {
		t.Fatal(err)
	}

	stored, err := store.Sessions.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Progress != 50 {
		t.Errorf("Progress regressed to %v", stored.Progress)
	}
}
