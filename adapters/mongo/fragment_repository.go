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

type FragmentRepository struct {
	collection *mongo.Collection
}

// NewFragmentRepository creates a new MongoDB fragment repository
func NewFragmentRepository(db *mongo.Database) repositories.FragmentRepository {
	return &FragmentRepository{
		collection: db.Collection("fragments"),
	}
}

type fragmentDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	SessionID  string             `bson:"session_id"`
	ChunkID    string             `bson:"chunk_id"`
	Text       string             `bson:"text"`
	Confidence float64            `bson:"confidence"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func (d *fragmentDoc) toEntity() *entities.Fragment {
	return &entities.Fragment{
		ID:         d.ID.Hex(),
		SessionID:  d.SessionID,
		ChunkID:    d.ChunkID,
		Text:       d.Text,
		Confidence: d.Confidence,
		CreatedAt:  d.CreatedAt,
	}
}

// Create implements repositories.FragmentRepository
func (r *FragmentRepository) Create(ctx context.Context, fragment *entities.Fragment) error {
	if fragment == nil {
		return errors.New("fragment cannot be nil")
	}
	if fragment.CreatedAt.IsZero() {
		fragment.CreatedAt = time.Now()
	}

	doc := bson.M{
		"session_id": fragment.SessionID,
		"chunk_id":   fragment.ChunkID,
		"text":       fragment.Text,
		"confidence": fragment.Confidence,
		"created_at": fragment.CreatedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create fragment: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		fragment.ID = oid.Hex()
	}

	return nil
}

// ListBySession implements repositories.FragmentRepository. Fragments come
// back ordered by creation time ascending, which is what the segmenter
// requires.
func (r *FragmentRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.Fragment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list fragments for session %s: %w", sessionID, err)
	}
	defer cursor.Close(ctx)

	var fragments []*entities.Fragment
	for cursor.Next(ctx) {
		var doc fragmentDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode fragment: %w", err)
		}
		fragments = append(fragments, doc.toEntity())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("fragment cursor error: %w", err)
	}

	return fragments, nil
}

// DeleteBySession implements repositories.FragmentRepository
func (r *FragmentRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete fragments for session %s: %w", sessionID, err)
	}
	return nil
}
