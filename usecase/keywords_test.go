package usecase

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/sanhakwon/metrocast/adapters/memory"
	"github.com/sanhakwon/metrocast/domain/entities"
)

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"환승", "환승"},
		{"  환승  ", "환승"},
		{"이번 역은 구로역입니다!", "이번 역은 구로역입니다"},
		{"Delay!!! 지연?", "delay 지연"},
		{"...", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := NormalizeText(tc.input); got != tc.expected {
			t.Errorf("NormalizeText(%q) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}

func TestMatchSubstringContainment(t *testing.T) {
	matcher := NewKeywordMatcher(nil, nil, zap.NewNop())
	keywords := []*entities.Keyword{
		{ID: "k1", Word: "환승"},
		{ID: "k2", Word: "지연"},
		{ID: "k3", Word: "사당"},
	}

	matched := matcher.Match(keywords, "이번 역은 사당, 사당역입니다. 환승하실 승객께서는...")
	if len(matched) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matched))
	}
	words := map[string]bool{}
	for _, k := range matched {
		words[k.Word] = true
	}
	if !words["환승"] || !words["사당"] {
		t.Errorf("Unexpected match set: %v", words)
	}
}

func TestMatchEmptyText(t *testing.T) {
	matcher := NewKeywordMatcher(nil, nil, zap.NewNop())
	keywords := []*entities.Keyword{{ID: "k1", Word: "환승"}}

	if matched := matcher.Match(keywords, "!!!"); matched != nil {
		t.Errorf("Expected no matches on punctuation-only text, got %v", matched)
	}
}

func TestScanFragmentIdempotent(t *testing.T) {
	ctx := context.Background()
	_, store := memory.NewStore()
	logger := zap.NewNop()

	session := entities.NewSession(0)
	if err := store.Sessions.Create(ctx, session); err != nil {
		t.Fatal(err)
	}
	keyword := &entities.Keyword{SessionID: session.ID, Word: "환승"}
	if err := store.Keywords.Create(ctx, keyword); err != nil {
		t.Fatal(err)
	}

	fragment := &entities.Fragment{
		ID:        "frag-1",
		SessionID: session.ID,
		Text:      "환승하실 승객께서는 준비하시기 바랍니다.",
	}

	matcher := NewKeywordMatcher(store.Keywords, store.Alerts, logger)

	created, err := matcher.ScanFragment(ctx, fragment)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 {
		t.Fatalf("Expected 1 new alert, got %d", len(created))
	}

	// The second scan of the same fragment must not raise a second alert.
	created, err = matcher.ScanFragment(ctx, fragment)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 0 {
		t.Fatalf("Expected no new alerts on rescan, got %d", len(created))
	}

	alerts, err := store.Alerts.ListBySession(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Errorf("Expected exactly 1 stored alert, got %d", len(alerts))
	}
}

func TestRegisterSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	_, store := memory.NewStore()
	service := NewKeywordService(store, zap.NewNop())

	session := entities.NewSession(0)
	if err := store.Sessions.Create(ctx, session); err != nil {
		t.Fatal(err)
	}

	registered, err := service.Register(ctx, session.ID, []string{"환승!", "환승", "지연", "  "})
	if err != nil {
		t.Fatal(err)
	}
	// "환승!" normalizes to "환승", so the second entry is a duplicate and the
	// blank entry is dropped.
	if len(registered) != 2 {
		t.Fatalf("Expected 2 registered keywords, got %d", len(registered))
	}

	listed, err := service.List(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 2 {
		t.Errorf("Expected 2 stored keywords, got %d", len(listed))
	}
}

func TestRegisterUnknownSession(t *testing.T) {
	ctx := context.Background()
	_, store := memory.NewStore()
	service := NewKeywordService(store, zap.NewNop())

	if _, err := service.Register(ctx, "missing", []string{"환승"}); err != entities.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteReturnsWord(t *testing.T) {
	ctx := context.Background()
	_, store := memory.NewStore()
	service := NewKeywordService(store, zap.NewNop())

	session := entities.NewSession(0)
	if err := store.Sessions.Create(ctx, session); err != nil {
		t.Fatal(err)
	}
	registered, err := service.Register(ctx, session.ID, []string{"지연"})
	if err != nil {
		t.Fatal(err)
	}

	word, err := service.Delete(ctx, registered[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if word != "지연" {
		t.Errorf("Expected deleted word 지연, got %s", word)
	}

	if _, err := service.Delete(ctx, registered[0].ID); err != entities.ErrNotFound {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}
