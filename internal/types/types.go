package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Article is the news content a video is made from
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	SourceName  string `json:"source_name"`
	PublishedAt string `json:"published_at"`
}

// CaptionToken is a word with its offsets inside the narration audio
type CaptionToken struct {
	Text       string  `json:"text"`
	FromMs     int64   `json:"fromMs"`
	ToMs       int64   `json:"toMs"`
	Confidence float64 `json:"confidence,omitempty"`
}

// SceneDescriptor is one visual query returned by the scene model
type SceneDescriptor struct {
	Text     string `json:"text"`
	Priority int    `json:"priority"`
	Weight   int    `json:"weight"`
}

// SceneAllocation places a downloaded stock clip on the narration timeline
type SceneAllocation struct {
	Text               string `json:"text"`
	Priority           int    `json:"priority"`
	Weight             int    `json:"weight"`
	Path               string `json:"path"`
	StartMs            int64  `json:"startMs"`
	EndMs              int64  `json:"endMs"`
	TimestampMs        int64  `json:"timestampMs"`
	TargetMs           int64  `json:"targetMs"`
	OriginalDurationMs int64  `json:"originalDuration"`
}

// DurationMs is the screen time given to the scene
func (s SceneAllocation) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// VideoRecord is the row persisted for every finished video
type VideoRecord struct {
	GlobalID    string    `json:"global_id"`
	FilePath    string    `json:"file_path"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	SourceURL   string    `json:"source_url"`
	SourceName  string    `json:"source_name"`
	PublishedAt string    `json:"published_at"`
	DriveURL    string    `json:"drive_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
