package localfs

import (
	"bytes"
	"context"
	"testing"
)

func TestSaveLoadRemoveRoundtrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewAudioStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte("fake pcm bytes")
	handle, err := store.Save(ctx, bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	if handle == "" {
		t.Fatal("Expected a non-empty handle")
	}

	loaded, err := store.Load(ctx, handle)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(loaded, payload) {
		t.Errorf("Loaded bytes differ: %q", loaded)
	}

	if err := store.Remove(ctx, handle); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, handle); err == nil {
		t.Error("Expected load after remove to fail")
	}
	// Removing twice is fine.
	if err := store.Remove(ctx, handle); err != nil {
		t.Errorf("Expected idempotent remove, got %v", err)
	}
}

func TestLoadRejectsPathTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewAudioStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, handle := range []string{"", "../secret", "a/b", `a\b`, ".."} {
		if _, err := store.Load(ctx, handle); err == nil {
			t.Errorf("Load(%q) unexpectedly succeeded", handle)
		}
		if err := store.Remove(ctx, handle); err == nil {
			t.Errorf("Remove(%q) unexpectedly succeeded", handle)
		}
	}
}
