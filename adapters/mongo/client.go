package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/sanhakwon/metrocast/domain/repositories"
)

// Client wraps the MongoDB client and database
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient creates a new MongoDB client connection
func NewClient(uri, dbName string, logger *zap.Logger) (*Client, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017" // Default for development
	}
	if dbName == "" {
		dbName = "metrocast" // Default database name
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Successfully connected to MongoDB",
		zap.String("database", dbName),
		zap.String("uri", uri))

	return &Client{
		Client:   client,
		Database: client.Database(dbName),
		logger:   logger,
	}, nil
}

// NewStore builds the repository bundle on top of this client and ensures
// the unique indexes the domain invariants rely on.
func (c *Client) NewStore(ctx context.Context) (*repositories.Store, error) {
	if err := c.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	return &repositories.Store{
		Sessions:    NewSessionRepository(c.Database),
		Chunks:      NewChunkRepository(c.Database),
		Fragments:   NewFragmentRepository(c.Database),
		Keywords:    NewKeywordRepository(c.Database),
		Alerts:      NewAlertRepository(c.Database),
		Transcripts: NewTranscriptRepository(c.Database),
	}, nil
}

// ensureIndexes creates the indexes backing the (session, word) and
// (keyword, fragment) uniqueness invariants plus the common lookup paths.
func (c *Client) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	indexes := map[string][]mongo.IndexModel{
		"keywords": {
			{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "word", Value: 1}}, Options: unique},
		},
		"alerts": {
			{Keys: bson.D{{Key: "keyword_id", Value: 1}, {Key: "fragment_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "session_id", Value: 1}}},
		},
		"chunks": {
			{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		"fragments": {
			{Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		"transcripts": {
			{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for collection, models := range indexes {
		if _, err := c.Database.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", collection, err)
		}
	}

	return nil
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from MongoDB")
	return nil
}
