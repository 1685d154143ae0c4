package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sanhakwon/metrocast/domain/entities"
	"github.com/sanhakwon/metrocast/domain/repositories"
)

// nonWordPattern strips everything outside the keyword alphabet: hangul
// syllables and jamo, ascii letters, digits and whitespace.
var nonWordPattern = regexp.MustCompile(`[^ㄱ-ㅎ가-힣a-z0-9\s]`)

// NormalizeText lowers, strips non-word characters and collapses whitespace.
// Both keywords and scanned text go through this before comparison.
func NormalizeText(text string) string {
	t := strings.ToLower(text)
	t = nonWordPattern.ReplaceAllString(t, " ")
	t = strings.Join(strings.Fields(t), " ")
	return t
}

// KeywordMatcher scans recognized text for a session's registered keywords
// and records alerts. Matching is substring containment over normalized text;
// no tokenization, no stemming. Alert creation is idempotent: re-scanning a
// fragment never produces duplicate alerts.
type KeywordMatcher struct {
	keywords repositories.KeywordRepository
	alerts   repositories.AlertRepository
	logger   *zap.Logger
}

// NewKeywordMatcher creates a matcher over the given stores.
func NewKeywordMatcher(keywords repositories.KeywordRepository, alerts repositories.AlertRepository, logger *zap.Logger) *KeywordMatcher {
	return &KeywordMatcher{
		keywords: keywords,
		alerts:   alerts,
		logger:   logger,
	}
}

// Match returns the subset of keywords contained in the text. Pure; no side
// effects.
func (m *KeywordMatcher) Match(keywords []*entities.Keyword, text string) []*entities.Keyword {
	normalized := NormalizeText(text)
	if normalized == "" {
		return nil
	}

	var matched []*entities.Keyword
	for _, keyword := range keywords {
		if word := NormalizeText(keyword.Word); word != "" && strings.Contains(normalized, word) {
			matched = append(matched, keyword)
		}
	}
	return matched
}

// ScanFragment matches the session's keywords against the fragment text and
// persists one alert per newly matched (keyword, fragment) pair. Only alerts
// actually created in this call are returned, so callers can publish events
// without duplicating earlier detections.
func (m *KeywordMatcher) ScanFragment(ctx context.Context, fragment *entities.Fragment) ([]*entities.Alert, error) {
	keywords, err := m.keywords.ListBySession(ctx, fragment.SessionID)
	if err != nil {
		return nil, err
	}

	var created []*entities.Alert
	for _, keyword := range m.Match(keywords, fragment.Text) {
		alert := &entities.Alert{
			SessionID:  fragment.SessionID,
			KeywordID:  keyword.ID,
			Word:       keyword.Word,
			FragmentID: fragment.ID,
		}
		inserted, err := m.alerts.CreateIfAbsent(ctx, alert)
		if err != nil {
			return created, err
		}
		if inserted {
			created = append(created, alert)
		}
	}

	if len(created) > 0 {
		m.logger.Info("Keyword alerts raised",
			zap.String("session_id", fragment.SessionID),
			zap.String("fragment_id", fragment.ID),
			zap.Int("alerts", len(created)))
	}
	return created, nil
}

// KeywordService carries the operator-facing keyword operations.
type KeywordService struct {
	store  *repositories.Store
	logger *zap.Logger
}

// NewKeywordService creates a new keyword service.
func NewKeywordService(store *repositories.Store, logger *zap.Logger) *KeywordService {
	return &KeywordService{store: store, logger: logger}
}

// Register stores the given words for a session. Words are normalized before
// storage; a word already registered is skipped without failing the batch.
func (s *KeywordService) Register(ctx context.Context, sessionID string, words []string) ([]*entities.Keyword, error) {
	if _, err := s.store.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}

	var registered []*entities.Keyword
	for _, word := range words {
		normalized := NormalizeText(word)
		if normalized == "" {
			continue
		}
		keyword := &entities.Keyword{
			SessionID: sessionID,
			Word:      normalized,
		}
		err := s.store.Keywords.Create(ctx, keyword)
		if errors.Is(err, entities.ErrDuplicateKeyword) {
			continue
		}
		if err != nil {
			return registered, err
		}
		registered = append(registered, keyword)
	}
	return registered, nil
}

// List returns the session's registered keywords.
func (s *KeywordService) List(ctx context.Context, sessionID string) ([]*entities.Keyword, error) {
	if _, err := s.store.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.Keywords.ListBySession(ctx, sessionID)
}

// Delete removes a keyword and returns its word for the response payload.
func (s *KeywordService) Delete(ctx context.Context, id string) (string, error) {
	keyword, err := s.store.Keywords.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.store.Keywords.Delete(ctx, id); err != nil {
		return "", err
	}
	return keyword.Word, nil
}
