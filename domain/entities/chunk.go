package entities

import "time"

// ChunkStatus represents the processing state of one audio chunk.
// Transitions are monotonic; ERROR is terminal and the core never retries it.
type ChunkStatus string

const (
	ChunkStatusPending    ChunkStatus = "PENDING"
	ChunkStatusProcessing ChunkStatus = "PROCESSING"
	ChunkStatusComplete   ChunkStatus = "COMPLETE"
	ChunkStatusError      ChunkStatus = "ERROR"
)

// Chunk is one fixed-duration unit of recorded audio submitted for
// transcription. StorageHandle is opaque to the core; the audio store decides
// what it means.
type Chunk struct {
	ID            string      `json:"id" bson:"_id,omitempty"`
	SessionID     string      `json:"session_id" bson:"session_id"`
	StorageHandle string      `json:"storage_handle" bson:"storage_handle"`
	Status        ChunkStatus `json:"status" bson:"status"`
	CreatedAt     time.Time   `json:"created_at" bson:"created_at"`
}

// Fragment is the recognition result produced for one chunk. It is immutable
// once written. The chunk back-reference is weak: the chunk may be deleted
// while the fragment survives.
type Fragment struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	SessionID  string    `json:"session_id" bson:"session_id"`
	ChunkID    string    `json:"chunk_id" bson:"chunk_id"`
	Text       string    `json:"text" bson:"text"`
	Confidence float64   `json:"confidence" bson:"confidence"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
