package repositories

import "context"

// Transcription is the result of recognizing one chunk of audio.
// Confidence defaults to 0 when the service does not report one.
type Transcription struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// AudioConfig represents audio configuration for speech recognition.
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// SpeechToText abstracts the external transcription service: audio bytes in,
// text and confidence out. Source separation and the recognition model behind
// it are not this system's concern.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, config AudioConfig) (Transcription, error)
}
