package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sanhakwon/metrocast/domain/entities"
)

func TestChunkCountersUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	_, store := NewStore()

	session := entities.NewSession(0)
	if err := store.Sessions.Create(ctx, session); err != nil {
		t.Fatal(err)
	}

	const n = 32
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		chunk := &entities.Chunk{SessionID: session.ID, StorageHandle: "h"}
		if err := store.Chunks.Create(ctx, chunk); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, chunk.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			// Double completion must not double count.
			if _, _, err := store.Chunks.MarkComplete(ctx, id); err != nil {
				t.Error(err)
			}
			if _, _, err := store.Chunks.MarkComplete(ctx, id); err != nil {
				t.Error(err)
			}
		}(id)
	}
	wg.Wait()

	done, total, err := store.Chunks.Counts(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done != n || total != n {
		t.Errorf("Expected counters (%d, %d), got (%d, %d)", n, n, done, total)
	}
}

func TestKeywordUniquePerSession(t *testing.T) {
	ctx := context.Background()
	_, store := NewStore()

	s1 := entities.NewSession(0)
	s2 := entities.NewSession(0)
	if err := store.Sessions.Create(ctx, s1); err != nil {
		t.Fatal(err)
	}
	if err := store.Sessions.Create(ctx, s2); err != nil {
		t.Fatal(err)
	}

	if err := store.Keywords.Create(ctx, &entities.Keyword{SessionID: s1.ID, Word: "환승"}); err != nil {
		t.Fatal(err)
	}
	err := store.Keywords.Create(ctx, &entities.Keyword{SessionID: s1.ID, Word: "환승"})
	if !errors.Is(err, entities.ErrDuplicateKeyword) {
		t.Errorf("Expected ErrDuplicateKeyword, got %v", err)
	}

	// The same word on another session is a different row.
	if err := store.Keywords.Create(ctx, &entities.Keyword{SessionID: s2.ID, Word: "환승"}); err != nil {
		t.Errorf("Cross-session duplicate rejected: %v", err)
	}
}

func TestAlertDedupByKeywordAndFragment(t *testing.T) {
	ctx := context.Background()
	_, store := NewStore()

	alert := &entities.Alert{SessionID: "s1", KeywordID: "k1", FragmentID: "f1", Word: "환승"}
	inserted, err := store.Alerts.CreateIfAbsent(ctx, alert)
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Fatal("Expected first insert to succeed")
	}

	duplicate := &entities.Alert{SessionID: "s1", KeywordID: "k1", FragmentID: "f1", Word: "환승"}
	inserted, err = store.Alerts.CreateIfAbsent(ctx, duplicate)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("Expected duplicate (keyword, fragment) pair to be a no-op")
	}

	other := &entities.Alert{SessionID: "s1", KeywordID: "k1", FragmentID: "f2", Word: "환승"}
	if inserted, err = store.Alerts.CreateIfAbsent(ctx, other); err != nil || !inserted {
		t.Errorf("Expected a different fragment to insert, got (%v, %v)", inserted, err)
	}
}

func TestSetStatusKeepsTerminalSessions(t *testing.T) {
	ctx := context.Background()
	_, store := NewStore()

	session := entities.NewSession(0)
	if err := store.Sessions.Create(ctx, session); err != nil {
		t.Fatal(err)
	}

	flipped, err := store.Sessions.CompleteOnce(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !flipped {
		t.Fatal("Expected first CompleteOnce to flip")
	}

	if err := store.Sessions.SetStatus(ctx, session.ID, entities.SessionStatusRecording); err != nil {
		t.Fatal(err)
	}
	stored, err := store.Sessions.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != entities.SessionStatusComplete {
		t.Errorf("Terminal session moved to %s", stored.Status)
	}
}
