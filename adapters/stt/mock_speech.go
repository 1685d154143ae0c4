package stt

import (
	"context"

	"go.uber.org/zap"

	"github.com/sanhakwon/metrocast/domain/repositories"
)

// MockSpeechToText is a placeholder recognizer for running the server without
// Google Cloud credentials.
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock recognizer
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{logger: logger}
}

// Transcribe implements repositories.SpeechToText
func (m *MockSpeechToText) Transcribe(_ context.Context, audio []byte, _ repositories.AudioConfig) (repositories.Transcription, error) {
	m.logger.Info("Mock transcription", zap.Int("audio_bytes", len(audio)))
	if len(audio) == 0 {
		return repositories.Transcription{}, nil
	}
	return repositories.Transcription{
		Text:       "이번 역은 구로역입니다. 내리실 문은 오른쪽입니다.",
		Confidence: 0.92,
	}, nil
}
