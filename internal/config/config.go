// Package config reads service configuration from the environment. Threshold
// constants of the merge procedure are deliberately configuration, not fixed
// behavior.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config carries everything the server wires at startup.
type Config struct {
	Port string

	MongoURI      string
	MongoDatabase string

	GeminiAPIKey string

	AudioDir string

	Workers   int
	QueueSize int

	SessionTTL        time.Duration
	MergeMaxGap       time.Duration
	SimilarityCutoff  float64
	TranscribeTimeout time.Duration
	RefineTimeout     time.Duration

	SampleRate int
	Encoding   string
	Language   string
}

// Load reads .env if present, then the environment, applying defaults.
func Load(logger *zap.Logger) Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", zap.Error(err))
	}

	return Config{
		Port:          getString("PORT", "8080"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getString("MONGODB_DATABASE", "metrocast"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		AudioDir:      getString("AUDIO_DIR", "media/audio"),

		Workers:   getInt("CHUNK_WORKERS", 4),
		QueueSize: getInt("CHUNK_QUEUE_SIZE", 128),

		SessionTTL:        getDuration("SESSION_TTL", time.Hour),
		MergeMaxGap:       getDuration("MERGE_MAX_GAP", 12*time.Second),
		SimilarityCutoff:  getFloat("STATION_SIMILARITY_CUTOFF", 0.6),
		TranscribeTimeout: getDuration("TRANSCRIBE_TIMEOUT", 60*time.Second),
		RefineTimeout:     getDuration("REFINE_TIMEOUT", 30*time.Second),

		SampleRate: getInt("AUDIO_SAMPLE_RATE", 16000),
		Encoding:   getString("AUDIO_ENCODING", "LINEAR16"),
		Language:   getString("AUDIO_LANGUAGE", "ko-KR"),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
