package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/sanhakwon/metrocast/domain/repositories"
)

// GoogleSpeechToText implements SpeechToText for Google Cloud. Chunks are
// short fixed-duration recordings, so the synchronous Recognize call is
// enough; no streaming session is held open.
type GoogleSpeechToText struct {
	client *speech.Client
	logger *zap.Logger
}

// NewGoogleSpeechToText creates the underlying Cloud Speech client.
func NewGoogleSpeechToText(ctx context.Context, logger *zap.Logger) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &GoogleSpeechToText{client: client, logger: logger}, nil
}

// Transcribe implements repositories.SpeechToText. The result's confidence is
// averaged over the recognized segments and defaults to 0 when the service
// reports none.
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, audio []byte, config repositories.AudioConfig) (repositories.Transcription, error) {
	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return repositories.Transcription{}, err
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(config.SampleRate),
			LanguageCode:    config.Language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return repositories.Transcription{}, fmt.Errorf("recognize request failed: %w", err)
	}

	var (
		parts       []string
		confidence  float64
		confidences int
	)
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		best := result.Alternatives[0]
		parts = append(parts, best.Transcript)
		if best.Confidence > 0 {
			confidence += float64(best.Confidence)
			confidences++
		}
	}
	if confidences > 0 {
		confidence /= float64(confidences)
	}

	transcription := repositories.Transcription{
		Text:       strings.TrimSpace(strings.Join(parts, " ")),
		Confidence: confidence,
	}

	g.logger.Debug("Chunk transcribed",
		zap.Int("audio_bytes", len(audio)),
		zap.Int("segments", len(resp.Results)),
		zap.Float64("confidence", transcription.Confidence))

	return transcription, nil
}

// Close releases the Cloud Speech client.
func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
