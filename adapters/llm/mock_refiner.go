package llm

import (
	"context"
	"strings"

	"github.com/sanhakwon/metrocast/domain/entities"
)

// MockRefiner is a placeholder refiner for running the server without a
// Gemini API key. It echoes text back and answers continuation with a cheap
// truncation heuristic.
type MockRefiner struct{}

// NewMockRefiner creates a new mock refiner
func NewMockRefiner() *MockRefiner {
	return &MockRefiner{}
}

// Correct implements repositories.TextRefiner
func (m *MockRefiner) Correct(_ context.Context, raw string) (string, error) {
	return strings.TrimSpace(raw), nil
}

// Summarize implements repositories.TextRefiner
func (m *MockRefiner) Summarize(_ context.Context, text string) (entities.AnnouncementSummary, error) {
	summary := entities.DefaultSummary()
	if strings.Contains(text, "환승") {
		summary.Transfer = "환승 안내 포함"
	}
	return summary, nil
}

// IsContinuation implements repositories.TextRefiner
func (m *MockRefiner) IsContinuation(_ context.Context, prev, _ string) (bool, error) {
	trimmed := strings.TrimSpace(prev)
	return trimmed != "" && !strings.HasSuffix(trimmed, "."), nil
}
