package reaper

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/simpledj/api/internal/storage"
	"github.com/simpledj/api/internal/store"
)

// Reaper periodically deletes job records and artifact directories older
// than the retention TTL. Age is the only criterion: pending, processing and
// terminal jobs are all reclaimed once they expire, polled or not.
type Reaper struct {
	jobs      *store.JobStore
	artifacts *storage.Store
	ttl       time.Duration
	interval  time.Duration
	log       *zap.SugaredLogger
}

func New(jobs *store.JobStore, artifacts *storage.Store, ttl, interval time.Duration, log *zap.SugaredLogger) *Reaper {
	return &Reaper{
		jobs:      jobs,
		artifacts: artifacts,
		ttl:       ttl,
		interval:  interval,
		log:       log,
	}
}

// Run sweeps on a jittered interval until the context is cancelled. Started
// at process init, stopped at shutdown.
func (r *Reaper) Run(ctx context.Context) {
	ticker := jitterbug.New(r.interval, &jitterbug.Norm{Stdev: r.interval / 20})
	defer ticker.Stop()

	r.log.Infow("reaper started", "ttl", r.ttl, "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(time.Now())
		}
	}
}

// Sweep deletes every job whose created timestamp is older than the TTL.
// Artifact removal is best effort; an I/O failure is logged and never stops
// the sweep from reaching the remaining candidates.
func (r *Reaper) Sweep(now time.Time) int {
	reaped := 0
	for _, job := range r.jobs.List() {
		if now.Sub(job.CreatedAt) <= r.ttl {
			continue
		}
		if err := r.artifacts.RemoveJob(job.ID); err != nil {
			r.log.Warnw("failed to remove job artifacts", "job_id", job.ID, "error", err)
		}
		r.jobs.Delete(job.ID)
		reaped++
	}
	if reaped > 0 {
		r.log.Infow("reaped expired jobs", "count", reaped)
	}
	return reaped
}
