package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanhakwon/metrocast/domain/entities"
	"github.com/sanhakwon/metrocast/domain/repositories"
)

// DefaultMergeMaxGap is the largest timestamp gap two fragments may have and
// still be merged on temporal proximity alone. Consecutive announcements
// arrive a handful of seconds apart; the default is tuned to the 10-second
// chunking interval and is config-tunable.
const DefaultMergeMaxGap = 12 * time.Second

// sentence-final markers; a fragment not ending in one is considered
// truncated mid-sentence.
var sentenceEndings = []string{"입니다", "입니다.", "다.", "요.", "요"}

// introductory phrases that almost always open a new announcement.
var introPhrases = []string{"이번 역은", "이번역은"}

// words characteristic of platform announcements; two fragments that both
// carry one tend to belong to the same message.
var announcementVocabulary = []string{
	"환승", "이번 역", "도착", "지연",
	"열차", "내리실 문", "출입문", "승객",
	"방면", "도착하겠습니다",
}

// mergeDecision is one rule's verdict on whether a candidate fragment
// continues the open group.
type mergeDecision int

const (
	noOpinion mergeDecision = iota
	decisionContinue
	decisionNewGroup
)

// mergeRule is a single predicate in the decision chain. Rules are evaluated
// in order; the first one with an opinion wins.
type mergeRule struct {
	name string
	eval func(ctx context.Context, tail, candidate *entities.Fragment) mergeDecision
}

// Segmenter partitions a session's chronologically ordered fragments into
// announcement groups. The decision procedure is an explicit ordered rule
// list so the priority order and the fail-open refinement fallback are a
// testable contract rather than implicit control flow.
type Segmenter struct {
	gazetteer StationGazetteer
	refiner   repositories.TextRefiner
	maxGap    time.Duration
	logger    *zap.Logger
}

// NewSegmenter wires the gazetteer and the refinement client used for the
// last-resort continuation judgment.
func NewSegmenter(gazetteer StationGazetteer, refiner repositories.TextRefiner, maxGap time.Duration, logger *zap.Logger) *Segmenter {
	if maxGap <= 0 {
		maxGap = DefaultMergeMaxGap
	}
	return &Segmenter{
		gazetteer: gazetteer,
		refiner:   refiner,
		maxGap:    maxGap,
		logger:    logger,
	}
}

// Segment groups the fragments into announcements. Input must be pre-sorted
// by creation time ascending; a detectable inversion fails with
// entities.ErrInvalidInputOrder. Given the same fragments and the same
// refinement answers the output is deterministic.
//
// The returned announcements carry the merged raw text, member ids and the
// mean confidence. Refined text, structured summary and keyword unions are
// filled in by the results assembler.
func (s *Segmenter) Segment(ctx context.Context, fragments []*entities.Fragment) ([]*entities.Announcement, error) {
	if len(fragments) == 0 {
		return nil, nil
	}
	for i := 1; i < len(fragments); i++ {
		if fragments[i].CreatedAt.Before(fragments[i-1].CreatedAt) {
			return nil, entities.ErrInvalidInputOrder
		}
	}

	rules := s.buildRules()

	groups := [][]*entities.Fragment{{fragments[0]}}
	for _, candidate := range fragments[1:] {
		current := groups[len(groups)-1]
		tail := current[len(current)-1]

		if s.continues(ctx, rules, tail, candidate) {
			groups[len(groups)-1] = append(current, candidate)
		} else {
			groups = append(groups, []*entities.Fragment{candidate})
		}
	}

	announcements := make([]*entities.Announcement, 0, len(groups))
	for i, group := range groups {
		announcements = append(announcements, buildAnnouncement(i+1, group))
	}
	return announcements, nil
}

func (s *Segmenter) continues(ctx context.Context, rules []mergeRule, tail, candidate *entities.Fragment) bool {
	for _, rule := range rules {
		switch rule.eval(ctx, tail, candidate) {
		case decisionContinue:
			return true
		case decisionNewGroup:
			return false
		}
	}
	// No rule fired: close the group.
	return false
}

// buildRules assembles the chain in priority order. The continuation memo
// lives in the closure so repeated evaluations within one run never query the
// refinement service twice for the same pair.
func (s *Segmenter) buildRules() []mergeRule {
	continuationMemo := make(map[[2]string]bool)

	return []mergeRule{
		{
			// Station agreement outranks everything, including the intro
			// pattern: a repeated "이번 역은 X역" for the same station is a
			// continuation, not a new announcement.
			name: "station-agreement",
			eval: func(_ context.Context, tail, candidate *entities.Fragment) mergeDecision {
				prev, okPrev := s.gazetteer.Lookup(tail.Text)
				curr, okCurr := s.gazetteer.Lookup(candidate.Text)
				if okPrev && okCurr && prev == curr {
					return decisionContinue
				}
				return noOpinion
			},
		},
		{
			name: "intro-pattern",
			eval: func(_ context.Context, _, candidate *entities.Fragment) mergeDecision {
				for _, phrase := range introPhrases {
					if strings.Contains(candidate.Text, phrase) {
						return decisionNewGroup
					}
				}
				return noOpinion
			},
		},
		{
			name: "temporal-proximity",
			eval: func(_ context.Context, tail, candidate *entities.Fragment) mergeDecision {
				if candidate.CreatedAt.Sub(tail.CreatedAt) <= s.maxGap {
					return decisionContinue
				}
				return noOpinion
			},
		},
		{
			// An interrupted sentence cannot end a group.
			name: "sentence-completeness",
			eval: func(_ context.Context, tail, _ *entities.Fragment) mergeDecision {
				if !endsSentence(tail.Text) {
					return decisionContinue
				}
				return noOpinion
			},
		},
		{
			name: "vocabulary-cooccurrence",
			eval: func(_ context.Context, tail, candidate *entities.Fragment) mergeDecision {
				if hasAnnouncementVocabulary(tail.Text) && hasAnnouncementVocabulary(candidate.Text) {
					return decisionContinue
				}
				return noOpinion
			},
		},
		{
			// Last resort: ask the refinement service. Errors fail open to
			// "does not continue" so a flaky service splits groups instead
			// of aborting the request.
			name: "semantic-continuation",
			eval: func(ctx context.Context, tail, candidate *entities.Fragment) mergeDecision {
				key := [2]string{tail.Text, candidate.Text}
				if cont, ok := continuationMemo[key]; ok {
					if cont {
						return decisionContinue
					}
					return noOpinion
				}

				cont, err := s.refiner.IsContinuation(ctx, tail.Text, candidate.Text)
				if err != nil {
					s.logger.Warn("Continuation judgment failed, treating as split", zap.Error(err))
					cont = false
				}
				continuationMemo[key] = cont
				if cont {
					return decisionContinue
				}
				return noOpinion
			},
		},
	}
}

func buildAnnouncement(id int, group []*entities.Fragment) *entities.Announcement {
	texts := make([]string, 0, len(group))
	fragmentIDs := make([]string, 0, len(group))
	chunkIDs := make([]string, 0, len(group))
	var confidence float64

	for _, f := range group {
		texts = append(texts, f.Text)
		fragmentIDs = append(fragmentIDs, f.ID)
		if f.ChunkID != "" {
			chunkIDs = append(chunkIDs, f.ChunkID)
		}
		confidence += f.Confidence
	}

	return &entities.Announcement{
		ID:            id,
		FragmentIDs:   fragmentIDs,
		ChunkIDs:      chunkIDs,
		RawText:       strings.Join(texts, " "),
		AvgConfidence: round2(confidence / float64(len(group))),
		StartTime:     group[0].CreatedAt,
		EndTime:       group[len(group)-1].CreatedAt,
	}
}

func endsSentence(text string) bool {
	t := strings.TrimSpace(text)
	for _, ending := range sentenceEndings {
		if strings.HasSuffix(t, ending) {
			return true
		}
	}
	return false
}

func hasAnnouncementVocabulary(text string) bool {
	for _, word := range announcementVocabulary {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
