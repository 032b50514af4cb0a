package model

import "time"

// Job status
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether a job can no longer change state.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// StemArtifact describes one separated source file stored on disk.
type StemArtifact struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Path     string `json:"-"`
}

// Job represents one separation request tracked from submission to its
// terminal state. Stems is populated only once the job completes.
type Job struct {
	ID        string                  `json:"id"`
	Filename  string                  `json:"filename"`
	Status    JobStatus               `json:"status"`
	Progress  int                     `json:"progress"`
	Error     *string                 `json:"error,omitempty"`
	Stems     map[string]StemArtifact `json:"stems,omitempty"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// SubmitResponse is returned immediately after a separation job is accepted.
type SubmitResponse struct {
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}

// StemInfo is the caller-facing view of one stem artifact.
type StemInfo struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// JobStatusResponse is the polling response for a job.
type JobStatusResponse struct {
	JobID     string              `json:"job_id"`
	Status    JobStatus           `json:"status"`
	Progress  int                 `json:"progress"`
	Filename  string              `json:"filename"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	Stems     map[string]StemInfo `json:"stems,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

// JobSummary is the abbreviated listing entry used by the diagnostics endpoint.
type JobSummary struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// JobListResponse wraps the diagnostics listing.
type JobListResponse struct {
	Count int          `json:"count"`
	Jobs  []JobSummary `json:"jobs"`
}
