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

type AlertRepository struct {
	collection *mongo.Collection
}

// NewAlertRepository creates a new MongoDB alert repository
func NewAlertRepository(db *mongo.Database) repositories.AlertRepository {
	return &AlertRepository{
		collection: db.Collection("alerts"),
	}
}

type alertDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	SessionID  string             `bson:"session_id"`
	KeywordID  string             `bson:"keyword_id"`
	Word       string             `bson:"word"`
	FragmentID string             `bson:"fragment_id"`
	DetectedAt time.Time          `bson:"detected_at"`
}

func (d *alertDoc) toEntity() *entities.Alert {
	return &entities.Alert{
		ID:         d.ID.Hex(),
		SessionID:  d.SessionID,
		KeywordID:  d.KeywordID,
		Word:       d.Word,
		FragmentID: d.FragmentID,
		DetectedAt: d.DetectedAt,
	}
}

// CreateIfAbsent implements repositories.AlertRepository. The unique index on
// (keyword_id, fragment_id) turns a duplicate insert into a no-op, which is
// what makes alerting idempotent under re-scans and retries.
func (r *AlertRepository) CreateIfAbsent(ctx context.Context, alert *entities.Alert) (bool, error) {
	if alert == nil {
		return false, errors.New("alert cannot be nil")
	}
	if alert.DetectedAt.IsZero() {
		alert.DetectedAt = time.Now()
	}

	doc := bson.M{
		"session_id":  alert.SessionID,
		"keyword_id":  alert.KeywordID,
		"word":        alert.Word,
		"fragment_id": alert.FragmentID,
		"detected_at": alert.DetectedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create alert: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		alert.ID = oid.Hex()
	}

	return true, nil
}

// ListBySession implements repositories.AlertRepository
func (r *AlertRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.Alert, error) {
	opts := options.Find().SetSort(bson.D{{Key: "detected_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts for session %s: %w", sessionID, err)
	}
	defer cursor.Close(ctx)

	var alerts []*entities.Alert
	for cursor.Next(ctx) {
		var doc alertDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode alert: %w", err)
		}
		alerts = append(alerts, doc.toEntity())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("alert cursor error: %w", err)
	}

	return alerts, nil
}

// DeleteBySession implements repositories.AlertRepository
func (r *AlertRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete alerts for session %s: %w", sessionID, err)
	}
	return nil
}
