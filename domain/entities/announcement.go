package entities

import "time"

// NoInfo is the placeholder the refinement service uses for absent fields in
// a structured summary.
const NoInfo = "없음"

// AnnouncementSummary is the fixed-schema structured summary of one
// announcement. A refinement response that does not parse against this schema
// degrades to DefaultSummary instead of surfacing an error.
type AnnouncementSummary struct {
	Station       string `json:"station" bson:"station"`
	DoorDirection string `json:"door_direction" bson:"door_direction"`
	Transfer      string `json:"transfer" bson:"transfer"`
	Notice        string `json:"notice" bson:"notice"`
}

// DefaultSummary returns the all-"없음" summary used when refinement fails.
func DefaultSummary() AnnouncementSummary {
	return AnnouncementSummary{
		Station:       NoInfo,
		DoorDirection: NoInfo,
		Transfer:      NoInfo,
		Notice:        NoInfo,
	}
}

// Announcement is the merged, logically-complete unit composed of one or more
// chronologically adjacent fragments judged to be one spoken message. It is
// produced at query time by the segmenter and not persisted on its own.
type Announcement struct {
	ID            int                 `json:"announcement_id"`
	FragmentIDs   []string            `json:"fragment_ids"`
	ChunkIDs      []string            `json:"chunk_ids"`
	RawText       string              `json:"raw_text"`
	RefinedText   string              `json:"full_text"`
	Summary       AnnouncementSummary `json:"summary"`
	Keywords      []string            `json:"keywords_detected"`
	AvgConfidence float64             `json:"confidence_avg"`
	StartTime     time.Time           `json:"start_time"`
	EndTime       time.Time           `json:"end_time"`
}

// Transcript is the session-level rollup. It is recomputed from scratch each
// time results are requested, never maintained incrementally.
type Transcript struct {
	ID                 string              `json:"id" bson:"_id,omitempty"`
	SessionID          string              `json:"session_id" bson:"session_id"`
	Summary            AnnouncementSummary `json:"summary" bson:"summary"`
	FullText           string              `json:"full_text" bson:"full_text"`
	TotalAnnouncements int                 `json:"total_announcements" bson:"total_announcements"`
	TotalAlerts        int                 `json:"total_alerts" bson:"total_alerts"`
	AvgConfidence      float64             `json:"confidence_avg" bson:"confidence_avg"`
	CreatedAt          time.Time           `json:"created_at" bson:"created_at"`
}
