package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/simpledj/api/internal/audio"
	"github.com/simpledj/api/internal/model"
	"github.com/simpledj/api/internal/separation"
	"github.com/simpledj/api/internal/service"
	"github.com/simpledj/api/internal/storage"
	"github.com/simpledj/api/internal/store"
)

// SeparationWorker runs the separation pipeline for one job: decode, chunked
// separation, stem encoding, record bookkeeping. Failures are isolated to
// the job's record and never propagate to other jobs.
type SeparationWorker struct {
	jobs           *store.JobStore
	artifacts      *storage.Store
	models         *separation.Loader
	segmentSeconds float64
	overlapSeconds float64
	log            *zap.SugaredLogger
}

func NewSeparationWorker(jobs *store.JobStore, artifacts *storage.Store, models *separation.Loader, segmentSeconds, overlapSeconds float64, log *zap.SugaredLogger) *SeparationWorker {
	return &SeparationWorker{
		jobs:           jobs,
		artifacts:      artifacts,
		models:         models,
		segmentSeconds: segmentSeconds,
		overlapSeconds: overlapSeconds,
		log:            log,
	}
}

// ProcessTask handles separation task processing
func (w *SeparationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.SeparateTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	return w.Process(ctx, &payload)
}

// Process runs the job state machine: PROCESSING at dequeue, COMPLETED with
// registered stems on success, FAILED with the captured message otherwise.
// The spooled input is removed once execution finishes either way.
func (w *SeparationWorker) Process(ctx context.Context, p *service.SeparateTaskPayload) error {
	defer func() {
		if err := os.Remove(p.InputPath); err != nil && !os.IsNotExist(err) {
			w.log.Warnw("failed to remove input file", "job_id", p.JobID, "error", err)
		}
	}()

	w.log.Infow("starting separation job", "job_id", p.JobID, "filename", p.Filename)
	w.update(p.JobID, store.JobUpdate{Status: statusPtr(model.JobStatusProcessing), Progress: intPtr(10)})

	m, err := w.models.Get(ctx)
	if err != nil {
		return w.failJob(p.JobID, fmt.Sprintf("Separation model unavailable: %v", err))
	}

	w.update(p.JobID, store.JobUpdate{Progress: intPtr(30)})

	wf, err := audio.DecodeFile(p.InputPath)
	if err != nil {
		return w.failJob(p.JobID, fmt.Sprintf("Failed to decode audio: %v", err))
	}
	wf = wf.Resample(m.SampleRate())

	engine := separation.NewEngine(m, w.segmentSeconds, w.overlapSeconds, w.log)
	stems, err := engine.Separate(ctx, wf)
	if err != nil {
		return w.failJob(p.JobID, fmt.Sprintf("Separation failed: %v", err))
	}

	w.update(p.JobID, store.JobUpdate{Progress: intPtr(90)})

	artifacts := make(map[string]model.StemArtifact, len(stems))
	for name, stem := range stems {
		filename := storage.StemFilename(p.Filename, name)
		path := w.artifacts.StemPath(p.JobID, filename)
		if err := audio.EncodeWAV(path, stem); err != nil {
			return w.failJob(p.JobID, fmt.Sprintf("Failed to write stem %s: %v", name, err))
		}
		info, err := os.Stat(path)
		if err != nil {
			continue // only register stems that exist on storage
		}
		artifacts[name] = model.StemArtifact{
			Filename: filename,
			Size:     info.Size(),
			Path:     path,
		}
	}

	w.update(p.JobID, store.JobUpdate{
		Status:   statusPtr(model.JobStatusCompleted),
		Progress: intPtr(100),
		Stems:    artifacts,
	})

	w.log.Infow("separation job completed", "job_id", p.JobID, "stems", len(artifacts))
	return nil
}

// failJob records the terminal failure and returns it so the task is not
// treated as succeeded. The record may already be reaped; that is fine.
func (w *SeparationWorker) failJob(jobID, msg string) error {
	w.log.Warnw("separation job failed", "job_id", jobID, "error", msg)
	w.update(jobID, store.JobUpdate{
		Status: statusPtr(model.JobStatusFailed),
		Error:  &msg,
	})
	return fmt.Errorf("job %s: %s", jobID, msg)
}

func (w *SeparationWorker) update(jobID string, u store.JobUpdate) {
	if !w.jobs.Update(jobID, u) {
		// Reaped mid-flight; keep going so the deferred input cleanup runs.
		w.log.Debugw("job record gone, skipping update", "job_id", jobID)
	}
}

func statusPtr(s model.JobStatus) *model.JobStatus {
	return &s
}

func intPtr(v int) *int {
	return &v
}
