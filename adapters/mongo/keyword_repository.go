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

type KeywordRepository struct {
	collection *mongo.Collection
}

// NewKeywordRepository creates a new MongoDB keyword repository
func NewKeywordRepository(db *mongo.Database) repositories.KeywordRepository {
	return &KeywordRepository{
		collection: db.Collection("keywords"),
	}
}

type keywordDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SessionID string             `bson:"session_id"`
	Word      string             `bson:"word"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *keywordDoc) toEntity() *entities.Keyword {
	return &entities.Keyword{
		ID:        d.ID.Hex(),
		SessionID: d.SessionID,
		Word:      d.Word,
		CreatedAt: d.CreatedAt,
	}
}

// Create implements repositories.KeywordRepository. The unique index on
// (session_id, word) enforces the invariant; a duplicate key surfaces as
// entities.ErrDuplicateKeyword.
func (r *KeywordRepository) Create(ctx context.Context, keyword *entities.Keyword) error {
	if keyword == nil {
		return errors.New("keyword cannot be nil")
	}
	if keyword.CreatedAt.IsZero() {
		keyword.CreatedAt = time.Now()
	}

	doc := bson.M{
		"session_id": keyword.SessionID,
		"word":       keyword.Word,
		"created_at": keyword.CreatedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entities.ErrDuplicateKeyword
		}
		return fmt.Errorf("failed to create keyword: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		keyword.ID = oid.Hex()
	}

	return nil
}

// GetByID implements repositories.KeywordRepository
func (r *KeywordRepository) GetByID(ctx context.Context, id string) (*entities.Keyword, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, entities.ErrNotFound
	}

	var doc keywordDoc
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get keyword %s: %w", id, err)
	}

	return doc.toEntity(), nil
}

// ListBySession implements repositories.KeywordRepository
func (r *KeywordRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.Keyword, error) {
	opts := options.Find().SetSort(bson.D{{Key: "word", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords for session %s: %w", sessionID, err)
	}
	defer cursor.Close(ctx)

	var keywords []*entities.Keyword
	for cursor.Next(ctx) {
		var doc keywordDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode keyword: %w", err)
		}
		keywords = append(keywords, doc.toEntity())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("keyword cursor error: %w", err)
	}

	return keywords, nil
}

// Delete implements repositories.KeywordRepository
func (r *KeywordRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return entities.ErrNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete keyword: %w", err)
	}
	if result.DeletedCount == 0 {
		return entities.ErrNotFound
	}
	return nil
}

// DeleteBySession implements repositories.KeywordRepository
func (r *KeywordRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete keywords for session %s: %w", sessionID, err)
	}
	return nil
}
