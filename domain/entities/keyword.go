package entities

import "time"

// Keyword is an operator-registered word watched for inside a session's
// recognized text. (session, word) is unique; the word is stored normalized.
type Keyword struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	SessionID string    `json:"session_id" bson:"session_id"`
	Word      string    `json:"word" bson:"word"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Alert records one detection of a keyword inside a fragment. At most one
// alert exists per (keyword, fragment) pair; re-scanning the same fragment is
// a no-op.
type Alert struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	SessionID  string    `json:"session_id" bson:"session_id"`
	KeywordID  string    `json:"keyword_id" bson:"keyword_id"`
	Word       string    `json:"word" bson:"word"`
	FragmentID string    `json:"fragment_id" bson:"fragment_id"`
	DetectedAt time.Time `json:"detected_at" bson:"detected_at"`
}
