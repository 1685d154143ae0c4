package repositories

import (
	"context"

	"github.com/sanhakwon/metrocast/domain/entities"
)

// TextRefiner abstracts the LLM-backed text-correction service.
//
// Callers treat every method as degradable: a failed Correct keeps the raw
// merged text, a failed Summarize falls back to entities.DefaultSummary, and
// a failed IsContinuation is read as false. A flaky refinement service lowers
// output quality but never aborts a request.
type TextRefiner interface {
	// Correct reconstructs a clean announcement sentence from noisy merged
	// recognition text.
	Correct(ctx context.Context, raw string) (string, error)
	// Summarize extracts the fixed-schema structured summary from a refined
	// announcement sentence.
	Summarize(ctx context.Context, text string) (entities.AnnouncementSummary, error)
	// IsContinuation judges whether curr is the uninterrupted continuation
	// of prev within one spoken announcement.
	IsContinuation(ctx context.Context, prev, curr string) (bool, error)
}
