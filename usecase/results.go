package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanhakwon/metrocast/domain/entities"
	"github.com/sanhakwon/metrocast/domain/repositories"
)

// SessionResults is the on-demand announcement timeline for one session.
type SessionResults struct {
	SessionID          string                       `json:"session_id"`
	TotalAnnouncements int                          `json:"total_announcements"`
	Summary            entities.AnnouncementSummary `json:"summary"`
	Timeline           []*entities.Announcement     `json:"timeline"`
}

// ResultsBuilder assembles the announcement timeline: it re-sorts the
// session's fragments (processing order is not chronological order), runs the
// segmenter, refines each group and recomputes the session-level transcript
// rollup from scratch.
type ResultsBuilder struct {
	store         *repositories.Store
	segmenter     *Segmenter
	refiner       repositories.TextRefiner
	refineTimeout time.Duration
	logger        *zap.Logger
}

// NewResultsBuilder creates a new results builder.
func NewResultsBuilder(store *repositories.Store, segmenter *Segmenter, refiner repositories.TextRefiner, refineTimeout time.Duration, logger *zap.Logger) *ResultsBuilder {
	if refineTimeout <= 0 {
		refineTimeout = 30 * time.Second
	}
	return &ResultsBuilder{
		store:         store,
		segmenter:     segmenter,
		refiner:       refiner,
		refineTimeout: refineTimeout,
		logger:        logger,
	}
}

// Build produces the timeline and upserts the transcript rollup. Refinement
// failures degrade to the raw merged text and the default summary; they never
// abort the request.
func (b *ResultsBuilder) Build(ctx context.Context, sessionID string) (*SessionResults, error) {
	fragments, err := b.store.Fragments.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Fragments may have been persisted out of arrival order by concurrent
	// workers; chronological order is re-established here, never assumed.
	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].CreatedAt.Before(fragments[j].CreatedAt)
	})

	announcements, err := b.segmenter.Segment(ctx, fragments)
	if err != nil {
		return nil, err
	}

	alerts, err := b.store.Alerts.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	wordsByFragment := make(map[string][]string)
	for _, alert := range alerts {
		wordsByFragment[alert.FragmentID] = append(wordsByFragment[alert.FragmentID], alert.Word)
	}

	var (
		refinedTexts    []string
		confidenceTotal float64
	)
	for _, announcement := range announcements {
		b.refine(ctx, announcement)
		announcement.Keywords = collectKeywords(announcement.FragmentIDs, wordsByFragment)
		refinedTexts = append(refinedTexts, announcement.RefinedText)
		confidenceTotal += announcement.AvgConfidence
	}

	sessionText := strings.Join(refinedTexts, " ")
	sessionSummary := b.summarize(ctx, sessionText)

	avgConfidence := 0.0
	if len(announcements) > 0 {
		avgConfidence = round2(confidenceTotal / float64(len(announcements)))
	}

	transcript := &entities.Transcript{
		SessionID:          sessionID,
		Summary:            sessionSummary,
		FullText:           sessionText,
		TotalAnnouncements: len(announcements),
		TotalAlerts:        len(alerts),
		AvgConfidence:      avgConfidence,
	}
	if err := b.store.Transcripts.Upsert(ctx, transcript); err != nil {
		b.logger.Error("Failed to upsert transcript", zap.Error(err))
	}

	return &SessionResults{
		SessionID:          sessionID,
		TotalAnnouncements: len(announcements),
		Summary:            sessionSummary,
		Timeline:           announcements,
	}, nil
}

// refine fills RefinedText and Summary, keeping the raw text and the default
// summary when the service misbehaves.
func (b *ResultsBuilder) refine(ctx context.Context, announcement *entities.Announcement) {
	rctx, cancel := context.WithTimeout(ctx, b.refineTimeout)
	defer cancel()

	refined, err := b.refiner.Correct(rctx, announcement.RawText)
	if err != nil || strings.TrimSpace(refined) == "" {
		if err != nil {
			b.logger.Warn("Text correction failed, keeping raw text", zap.Error(err))
		}
		refined = announcement.RawText
	}
	announcement.RefinedText = refined

	summary, err := b.refiner.Summarize(rctx, refined)
	if err != nil {
		b.logger.Warn("Summarization failed, using default summary", zap.Error(err))
		summary = entities.DefaultSummary()
	}
	announcement.Summary = summary
}

func (b *ResultsBuilder) summarize(ctx context.Context, text string) entities.AnnouncementSummary {
	if strings.TrimSpace(text) == "" {
		return entities.DefaultSummary()
	}

	rctx, cancel := context.WithTimeout(ctx, b.refineTimeout)
	defer cancel()

	summary, err := b.refiner.Summarize(rctx, text)
	if err != nil {
		b.logger.Warn("Session summary failed, using default", zap.Error(err))
		return entities.DefaultSummary()
	}
	return summary
}

func collectKeywords(fragmentIDs []string, wordsByFragment map[string][]string) []string {
	seen := make(map[string]struct{})
	var words []string
	for _, id := range fragmentIDs {
		for _, word := range wordsByFragment[id] {
			if _, ok := seen[word]; ok {
				continue
			}
			seen[word] = struct{}{}
			words = append(words, word)
		}
	}
	sort.Strings(words)
	return words
}
