package queue

import (
	"time"

	"github.com/codebuildervaibhav/news-shorts/internal/pipeline"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

// Job represents one video generation run
type Job struct {
	ID        string
	Prompt    string
	Article   types.Article
	Status    string
	Stage     pipeline.Stage
	WorkDir   string
	Error     error
	Result    *pipeline.Result
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob creates a new job with default values
func NewJob(id, prompt string, article types.Article) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		Prompt:    prompt,
		Article:   article,
		Status:    types.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStatus is a point-in-time copy of a job safe to hand out to handlers
type JobStatus struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorType string    `json:"error_type,omitempty"`
	WorkDir   string    `json:"work_dir,omitempty"`
	VideoPath string    `json:"video_path,omitempty"`
	VideoID   string    `json:"video_id,omitempty"`
	DriveURL  string    `json:"drive_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether the job reached a terminal state
func (s JobStatus) Done() bool {
	return s.Status == types.StatusCompleted || s.Status == types.StatusFailed
}
