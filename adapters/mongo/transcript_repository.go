package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sanhakwon/metrocast/domain/entities"
	"github.com/sanhakwon/metrocast/domain/repositories"
)

type TranscriptRepository struct {
	collection *mongo.Collection
}

// NewTranscriptRepository creates a new MongoDB transcript repository
func NewTranscriptRepository(db *mongo.Database) repositories.TranscriptRepository {
	return &TranscriptRepository{
		collection: db.Collection("transcripts"),
	}
}

type transcriptDoc struct {
	ID                 primitive.ObjectID           `bson:"_id,omitempty"`
	SessionID          string                       `bson:"session_id"`
	Summary            entities.AnnouncementSummary `bson:"summary"`
	FullText           string                       `bson:"full_text"`
	TotalAnnouncements int                          `bson:"total_announcements"`
	TotalAlerts        int                          `bson:"total_alerts"`
	AvgConfidence      float64                      `bson:"confidence_avg"`
	CreatedAt          time.Time                    `bson:"created_at"`
}

// Upsert implements repositories.TranscriptRepository. The rollup is replaced
// wholesale on every results run.
func (r *TranscriptRepository) Upsert(ctx context.Context, transcript *entities.Transcript) error {
	if transcript == nil {
		return errors.New("transcript cannot be nil")
	}
	if transcript.CreatedAt.IsZero() {
		transcript.CreatedAt = time.Now()
	}

	update := bson.M{"$set": bson.M{
		"session_id":          transcript.SessionID,
		"summary":             transcript.Summary,
		"full_text":           transcript.FullText,
		"total_announcements": transcript.TotalAnnouncements,
		"total_alerts":        transcript.TotalAlerts,
		"confidence_avg":      transcript.AvgConfidence,
		"created_at":          transcript.CreatedAt,
	}}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"session_id": transcript.SessionID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert transcript: %w", err)
	}
	return nil
}

// GetBySession implements repositories.TranscriptRepository
func (r *TranscriptRepository) GetBySession(ctx context.Context, sessionID string) (*entities.Transcript, error) {
	var doc transcriptDoc
	err := r.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transcript for session %s: %w", sessionID, err)
	}

	return &entities.Transcript{
		ID:                 doc.ID.Hex(),
		SessionID:          doc.SessionID,
		Summary:            doc.Summary,
		FullText:           doc.FullText,
		TotalAnnouncements: doc.TotalAnnouncements,
		TotalAlerts:        doc.TotalAlerts,
		AvgConfidence:      doc.AvgConfidence,
		CreatedAt:          doc.CreatedAt,
	}, nil
}

// DeleteBySession implements repositories.TranscriptRepository
func (r *TranscriptRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete transcript for session %s: %w", sessionID, err)
	}
	return nil
}
