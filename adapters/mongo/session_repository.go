package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sanhakwon/metrocast/domain/entities"
	"github.com/sanhakwon/metrocast/domain/repositories"
)

type SessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a new MongoDB session repository
func NewSessionRepository(db *mongo.Database) repositories.SessionRepository {
	return &SessionRepository{
		collection: db.Collection("sessions"),
	}
}

type sessionDoc struct {
	ID          primitive.ObjectID     `bson:"_id,omitempty"`
	Status      entities.SessionStatus `bson:"status"`
	Progress    float64                `bson:"progress"`
	ChunksTotal int64                  `bson:"chunks_total"`
	ChunksDone  int64                  `bson:"chunks_done"`
	CreatedAt   time.Time              `bson:"created_at"`
	ExpiresAt   time.Time              `bson:"expires_at"`
	EndedAt     *time.Time             `bson:"ended_at,omitempty"`
}

func (d *sessionDoc) toEntity() *entities.Session {
	return &entities.Session{
		ID:          d.ID.Hex(),
		Status:      d.Status,
		Progress:    d.Progress,
		ChunksTotal: d.ChunksTotal,
		ChunksDone:  d.ChunksDone,
		CreatedAt:   d.CreatedAt,
		ExpiresAt:   d.ExpiresAt,
		EndedAt:     d.EndedAt,
	}
}

// Create implements repositories.SessionRepository
func (r *SessionRepository) Create(ctx context.Context, session *entities.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = session.CreatedAt.Add(entities.DefaultSessionTTL)
	}
	if session.Status == "" {
		session.Status = entities.SessionStatusRecording
	}

	doc := bson.M{
		"status":       session.Status,
		"progress":     session.Progress,
		"chunks_total": session.ChunksTotal,
		"chunks_done":  session.ChunksDone,
		"created_at":   session.CreatedAt,
		"expires_at":   session.ExpiresAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		session.ID = oid.Hex()
	}

	return nil
}

// GetByID implements repositories.SessionRepository
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, entities.ErrNotFound
	}

	var doc sessionDoc
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}

	return doc.toEntity(), nil
}

// SetStatus implements repositories.SessionRepository. Terminal sessions are
// left untouched.
func (r *SessionRepository) SetStatus(ctx context.Context, id string, status entities.SessionStatus) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return entities.ErrNotFound
	}

	filter := bson.M{
		"_id": oid,
		"status": bson.M{"$in": bson.A{
			entities.SessionStatusRecording,
			entities.SessionStatusProcessing,
		}},
	}

	_, err = r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("failed to set session status: %w", err)
	}
	return nil
}

// RaiseProgress implements repositories.SessionRepository using $max so a
// stale writer can never move progress backwards.
func (r *SessionRepository) RaiseProgress(ctx context.Context, id string, progress float64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return entities.ErrNotFound
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$max": bson.M{"progress": progress}},
	)
	if err != nil {
		return fmt.Errorf("failed to raise session progress: %w", err)
	}
	return nil
}

// CompleteOnce implements repositories.SessionRepository. The filter only
// matches non-terminal sessions, so exactly one concurrent caller observes
// the flip.
func (r *SessionRepository) CompleteOnce(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, entities.ErrNotFound
	}

	now := time.Now()
	filter := bson.M{
		"_id": oid,
		"status": bson.M{"$in": bson.A{
			entities.SessionStatusRecording,
			entities.SessionStatusProcessing,
		}},
	}
	update := bson.M{"$set": bson.M{
		"status":   entities.SessionStatusComplete,
		"ended_at": now,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to complete session: %w", err)
	}

	return result.ModifiedCount == 1, nil
}

// Delete implements repositories.SessionRepository
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return entities.ErrNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return entities.ErrNotFound
	}
	return nil
}
