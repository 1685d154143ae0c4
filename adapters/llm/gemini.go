package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/sanhakwon/metrocast/domain/entities"
)

const (
	defaultModel   = "gemini-2.0-flash"
	maxAttempts    = 3
	requestTimeout = 30 * time.Second
)

// GeminiRefiner implements the TextRefiner interface using Google's Gemini
// API. Every method degrades instead of failing the request chain: Summarize
// falls back to the all-"없음" summary when the response does not parse, and
// callers treat any returned error as a quality degradation, not a fatal one.
type GeminiRefiner struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewGeminiRefiner creates a new Gemini-backed refiner.
func NewGeminiRefiner(ctx context.Context, apiKey string, logger *zap.Logger) (*GeminiRefiner, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiRefiner{
		client: client,
		logger: logger,
		model:  defaultModel,
	}, nil
}

const correctPrompt = `당신은 한국 지하철 안내방송을 복원하는 전문가입니다.

아래 텍스트는 10초 단위 음성인식 결과로, 문장이 중간에 끊기거나 단어가 잘못
인식된 경우가 많습니다. 조각난 문장들을 하나의 완전한 지하철 안내방송
문장으로 재구성하세요.

규칙:
1) 끊긴 문장은 의미가 자연스럽도록 완성하기 (예: "이번 역은 구" → "이번 역은 구로역입니다.")
2) 실제 안내방송 문형을 유지하기 ("이번 역은 ___역입니다.", "내리실 문은 ___쪽입니다.")
3) 역명을 만들어내지 말고 인식 결과에서 추론 가능한 범위에서만 보정하기
4) 중복된 조각과 반복 문장은 제거하기
5) 최종 출력은 복원된 안내방송 문장만

[음성인식 조각]
%s

[복원된 안내방송]
`

// Correct implements repositories.TextRefiner
func (g *GeminiRefiner) Correct(ctx context.Context, raw string) (string, error) {
	text, err := g.generate(ctx, fmt.Sprintf(correctPrompt, raw), "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

const summarizePrompt = `당신은 한국 지하철 안내방송 요약기입니다.

출력은 반드시 아래 JSON 형식에 맞춰야 하며, 다른 텍스트를 추가하지 않습니다.

{"station": "<역 이름 또는 '없음'>", "door_direction": "<왼쪽/오른쪽/없음>", "transfer": "<환승 정보 또는 '없음'>", "notice": "<안전/주의 안내 또는 '없음'>"}

해당 정보가 문장에 없으면 "없음"을 사용합니다.

[원문]
%s

[요약(JSON)]
`

// Summarize implements repositories.TextRefiner. A response that does not
// parse against the schema degrades to the default summary instead of
// surfacing a parse error.
func (g *GeminiRefiner) Summarize(ctx context.Context, text string) (entities.AnnouncementSummary, error) {
	raw, err := g.generate(ctx, fmt.Sprintf(summarizePrompt, text), "application/json")
	if err != nil {
		return entities.DefaultSummary(), err
	}

	var summary entities.AnnouncementSummary
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &summary); err != nil {
		g.logger.Warn("Summary response did not match schema, using default",
			zap.String("response", raw),
			zap.Error(err))
		return entities.DefaultSummary(), nil
	}

	if summary.Station == "" {
		summary.Station = entities.NoInfo
	}
	if summary.DoorDirection == "" {
		summary.DoorDirection = entities.NoInfo
	}
	if summary.Transfer == "" {
		summary.Transfer = entities.NoInfo
	}
	if summary.Notice == "" {
		summary.Notice = entities.NoInfo
	}

	return summary, nil
}

const continuationPrompt = `아래 두 문장이 같은 지하철 안내방송의 연속인지 판단하세요.

규칙:
1) 앞 문장이 단어 중간에서 끊기고 다음 문장이 이어지면 True (예: "이번 역은 구" + "로역입니다.")
2) 문맥상 한 안내방송으로 자연스럽게 이어지면 True
3) 서로 다른 안내 내용이면 False
4) 결과는 True 또는 False만 출력

[문장 A]
%s

[문장 B]
%s

답변:
`

// IsContinuation implements repositories.TextRefiner. Callers read any error
// as "not a continuation".
func (g *GeminiRefiner) IsContinuation(ctx context.Context, prev, curr string) (bool, error) {
	text, err := g.generate(ctx, fmt.Sprintf(continuationPrompt, prev, curr), "")
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(text), "true"), nil
}

// generate runs one prompt through the model with bounded retries.
func (g *GeminiRefiner) generate(ctx context.Context, prompt, responseMIMEType string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	}
	if responseMIMEType != "" {
		config.ResponseMIMEType = responseMIMEType
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}

		g.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}
	if err != nil {
		return "", fmt.Errorf("refinement request failed: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("refinement returned no candidates")
	}

	var text string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("refinement returned empty text")
	}

	return text, nil
}
