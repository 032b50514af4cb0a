package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/simpledj/api/internal/model"
	"github.com/simpledj/api/internal/storage"
	"github.com/simpledj/api/internal/store"
)

const TaskTypeSeparate = "separate:process"

var (
	ErrPayloadTooLarge = errors.New("payload exceeds size limit")
	ErrNotReady        = errors.New("job not completed")
	ErrStemNotFound    = errors.New("stem not found")
)

// Enqueuer hands tasks to the background worker pool. *asynq.Client
// satisfies it.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// SeparateTaskPayload is the task body handed to the separation worker. The
// job id is the only handle; all state flows through the job store.
type SeparateTaskPayload struct {
	JobID     string `json:"jobId"`
	InputPath string `json:"inputPath"`
	Filename  string `json:"filename"`
}

// SeparationService accepts separation requests, spools their input and
// schedules background execution. Submission never blocks on separation.
type SeparationService struct {
	jobs           *store.JobStore
	artifacts      *storage.Store
	enqueuer       Enqueuer
	maxUploadBytes int64
}

func NewSeparationService(jobs *store.JobStore, artifacts *storage.Store, enqueuer Enqueuer, maxUploadMB int) *SeparationService {
	return &SeparationService{
		jobs:           jobs,
		artifacts:      artifacts,
		enqueuer:       enqueuer,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// MaxUploadBytes returns the configured payload limit.
func (s *SeparationService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Submit validates the payload, persists it, creates a pending job record
// and enqueues background execution. The returned job id is available for
// polling immediately.
func (s *SeparationService) Submit(ctx context.Context, filename string, file io.Reader, size int64) (*model.SubmitResponse, error) {
	if size > s.maxUploadBytes {
		return nil, ErrPayloadTooLarge
	}

	jobID := uuid.New().String()

	inputPath, err := s.artifacts.SpoolInput(jobID, filename, file)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	if _, err := s.jobs.Create(jobID, filename); err != nil {
		_ = s.artifacts.RemoveJob(jobID)
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	payload, err := json.Marshal(SeparateTaskPayload{
		JobID:     jobID,
		InputPath: inputPath,
		Filename:  filename,
	})
	if err != nil {
		s.discard(jobID)
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	// No automatic retries: a failed job stays failed and must be
	// resubmitted as a new job.
	task := asynq.NewTask(TaskTypeSeparate, payload)
	if _, err := s.enqueuer.Enqueue(task, asynq.Queue("separate"), asynq.MaxRetry(0)); err != nil {
		s.discard(jobID)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.SubmitResponse{
		JobID:   jobID,
		Status:  model.JobStatusPending,
		Message: "Separation job started. Poll /job/{job_id} for status.",
	}, nil
}

// Status returns the polling view of a job. Stems appear only once the job
// completed; the error message only when it failed.
func (s *SeparationService) Status(jobID string) (*model.JobStatusResponse, error) {
	job, err := s.jobs.Get(jobID)
	if err != nil {
		return nil, err
	}

	resp := &model.JobStatusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		Filename:  job.Filename,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}

	if job.Status == model.JobStatusCompleted {
		resp.Stems = make(map[string]model.StemInfo, len(job.Stems))
		for name, artifact := range job.Stems {
			resp.Stems[name] = model.StemInfo{
				Filename:    artifact.Filename,
				Size:        artifact.Size,
				DownloadURL: fmt.Sprintf("/job/%s/stems/%s", job.ID, name),
			}
		}
	}
	if job.Status == model.JobStatusFailed {
		resp.Error = job.Error
	}

	return resp, nil
}

// StemFile resolves a stem download to its on-disk path.
func (s *SeparationService) StemFile(jobID, stemName string) (path, filename string, err error) {
	job, err := s.jobs.Get(jobID)
	if err != nil {
		return "", "", err
	}
	if job.Status != model.JobStatusCompleted {
		return "", "", ErrNotReady
	}

	artifact, ok := job.Stems[stemName]
	if !ok {
		return "", "", ErrStemNotFound
	}
	if _, err := os.Stat(artifact.Path); err != nil {
		return "", "", ErrStemNotFound
	}
	return artifact.Path, artifact.Filename, nil
}

// List returns the diagnostics listing of all current jobs.
func (s *SeparationService) List() *model.JobListResponse {
	jobs := s.jobs.List()
	resp := &model.JobListResponse{
		Count: len(jobs),
		Jobs:  make([]model.JobSummary, 0, len(jobs)),
	}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, model.JobSummary{
			JobID:     job.ID,
			Status:    job.Status,
			Filename:  job.Filename,
			CreatedAt: job.CreatedAt,
		})
	}
	return resp
}

// Delete removes a job record and its artifacts.
func (s *SeparationService) Delete(jobID string) error {
	if _, err := s.jobs.Get(jobID); err != nil {
		return err
	}
	s.discard(jobID)
	return nil
}

// JobCount reports live records, for the health endpoint.
func (s *SeparationService) JobCount() int {
	return s.jobs.Count()
}

func (s *SeparationService) discard(jobID string) {
	_ = s.artifacts.RemoveJob(jobID)
	s.jobs.Delete(jobID)
}
