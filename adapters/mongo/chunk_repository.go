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

type ChunkRepository struct {
	chunks   *mongo.Collection
	sessions *mongo.Collection
}

// NewChunkRepository creates a new MongoDB chunk repository
func NewChunkRepository(db *mongo.Database) repositories.ChunkRepository {
	return &ChunkRepository{
		chunks:   db.Collection("chunks"),
		sessions: db.Collection("sessions"),
	}
}

type chunkDoc struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	SessionID     string               `bson:"session_id"`
	StorageHandle string               `bson:"storage_handle"`
	Status        entities.ChunkStatus `bson:"status"`
	CreatedAt     time.Time            `bson:"created_at"`
}

func (d *chunkDoc) toEntity() *entities.Chunk {
	return &entities.Chunk{
		ID:            d.ID.Hex(),
		SessionID:     d.SessionID,
		StorageHandle: d.StorageHandle,
		Status:        d.Status,
		CreatedAt:     d.CreatedAt,
	}
}

// Create inserts the chunk and moves the owning session's total counter in
// the same call path. The $inc keeps the counter pair safe under concurrent
// uploads.
func (r *ChunkRepository) Create(ctx context.Context, chunk *entities.Chunk) error {
	if chunk == nil {
		return errors.New("chunk cannot be nil")
	}

	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}
	if chunk.Status == "" {
		chunk.Status = entities.ChunkStatusPending
	}

	doc := bson.M{
		"session_id":     chunk.SessionID,
		"storage_handle": chunk.StorageHandle,
		"status":         chunk.Status,
		"created_at":     chunk.CreatedAt,
	}

	result, err := r.chunks.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create chunk: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		chunk.ID = oid.Hex()
	}

	sessionOID, err := primitive.ObjectIDFromHex(chunk.SessionID)
	if err != nil {
		return entities.ErrNotFound
	}
	_, err = r.sessions.UpdateOne(ctx,
		bson.M{"_id": sessionOID},
		bson.M{"$inc": bson.M{"chunks_total": 1}},
	)
	if err != nil {
		return fmt.Errorf("failed to increment session chunk total: %w", err)
	}

	return nil
}

// GetByID implements repositories.ChunkRepository
func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*entities.Chunk, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, entities.ErrNotFound
	}

	var doc chunkDoc
	err = r.chunks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chunk %s: %w", id, err)
	}

	return doc.toEntity(), nil
}

// SetStatus implements repositories.ChunkRepository. COMPLETE chunks are
// never moved back.
func (r *ChunkRepository) SetStatus(ctx context.Context, id string, status entities.ChunkStatus) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return entities.ErrNotFound
	}

	filter := bson.M{"_id": oid, "status": bson.M{"$ne": entities.ChunkStatusComplete}}
	_, err = r.chunks.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("failed to set chunk status: %w", err)
	}
	return nil
}

// MarkComplete implements repositories.ChunkRepository. The guarded chunk
// update decides whether this caller owns the transition; only the owner
// increments the done counter, so retries never double-count.
func (r *ChunkRepository) MarkComplete(ctx context.Context, id string) (int64, int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, 0, entities.ErrNotFound
	}

	var doc chunkDoc
	err = r.chunks.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, 0, entities.ErrNotFound
		}
		return 0, 0, fmt.Errorf("failed to get chunk %s: %w", id, err)
	}

	sessionOID, err := primitive.ObjectIDFromHex(doc.SessionID)
	if err != nil {
		return 0, 0, entities.ErrNotFound
	}

	transition, err := r.chunks.UpdateOne(ctx,
		bson.M{"_id": oid, "status": bson.M{"$ne": entities.ChunkStatusComplete}},
		bson.M{"$set": bson.M{"status": entities.ChunkStatusComplete}},
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to mark chunk complete: %w", err)
	}

	var session sessionDoc
	if transition.ModifiedCount == 1 {
		after := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err = r.sessions.FindOneAndUpdate(ctx,
			bson.M{"_id": sessionOID},
			bson.M{"$inc": bson.M{"chunks_done": 1}},
			after,
		).Decode(&session)
	} else {
		err = r.sessions.FindOne(ctx, bson.M{"_id": sessionOID}).Decode(&session)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, 0, entities.ErrNotFound
		}
		return 0, 0, fmt.Errorf("failed to update session counters: %w", err)
	}

	return session.ChunksDone, session.ChunksTotal, nil
}

// Counts implements repositories.ChunkRepository
func (r *ChunkRepository) Counts(ctx context.Context, sessionID string) (int64, int64, error) {
	oid, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return 0, 0, entities.ErrNotFound
	}

	var session sessionDoc
	err = r.sessions.FindOne(ctx, bson.M{"_id": oid}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, 0, entities.ErrNotFound
		}
		return 0, 0, fmt.Errorf("failed to read session counters: %w", err)
	}

	return session.ChunksDone, session.ChunksTotal, nil
}

// ListBySession implements repositories.ChunkRepository
func (r *ChunkRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.Chunk, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.chunks.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks for session %s: %w", sessionID, err)
	}
	defer cursor.Close(ctx)

	var chunks []*entities.Chunk
	for cursor.Next(ctx) {
		var doc chunkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode chunk: %w", err)
		}
		chunks = append(chunks, doc.toEntity())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("chunk cursor error: %w", err)
	}

	return chunks, nil
}

// DeleteBySession implements repositories.ChunkRepository
func (r *ChunkRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.chunks.DeleteMany(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete chunks for session %s: %w", sessionID, err)
	}
	return nil
}
