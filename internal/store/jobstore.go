package store

import (
	"errors"
	"sync"
	"time"

	"github.com/simpledj/api/internal/model"
)

var (
	ErrNotFound = errors.New("job not found")
	ErrExists   = errors.New("job already exists")
)

// statusRank orders the lifecycle so updates can never move a job backward.
var statusRank = map[model.JobStatus]int{
	model.JobStatusPending:    0,
	model.JobStatusProcessing: 1,
	model.JobStatusCompleted:  2,
	model.JobStatusFailed:     2,
}

// JobUpdate carries the fields an update merges into an existing record.
// Nil fields are left untouched.
type JobUpdate struct {
	Status   *model.JobStatus
	Progress *int
	Error    *string
	Stems    map[string]model.StemArtifact
}

// JobStore is the process-lifetime registry of separation jobs. All mutation
// goes through one mutex so progress updates from workers never interleave
// with a concurrent delete from the reaper. Reads hand out defensive copies.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*model.Job)}
}

// Create inserts a new pending record. Returns ErrExists when the id is
// already taken.
func (s *JobStore) Create(id, filename string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; ok {
		return nil, ErrExists
	}

	now := time.Now().UTC()
	job := &model.Job{
		ID:        id,
		Filename:  filename,
		Status:    model.JobStatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[id] = job
	return copyJob(job), nil
}

// Update merges the given fields into the record and refreshes its updated
// timestamp. Status can only move forward and progress never decreases, so
// pollers observe a monotonic lifecycle. Updating a deleted job is a no-op
// returning false; it never resurrects the record.
func (s *JobStore) Update(id string, u JobUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	if job.Status.IsTerminal() {
		// Terminal records are frozen; late updates from a still-running
		// pipeline change nothing.
		return true
	}

	if u.Status != nil && statusRank[*u.Status] >= statusRank[job.Status] {
		job.Status = *u.Status
	}
	if u.Progress != nil && *u.Progress > job.Progress {
		job.Progress = *u.Progress
	}
	if u.Error != nil {
		msg := *u.Error
		job.Error = &msg
	}
	// Stems only exist on completed jobs.
	if u.Stems != nil && job.Status == model.JobStatusCompleted {
		stems := make(map[string]model.StemArtifact, len(u.Stems))
		for name, artifact := range u.Stems {
			stems[name] = artifact
		}
		job.Stems = stems
	}
	job.UpdatedAt = time.Now().UTC()
	return true
}

// Get returns an immutable snapshot of a record.
func (s *JobStore) Get(id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyJob(job), nil
}

// Delete removes a record. Deleting an absent id is not an error.
func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// List returns snapshots of every current record.
func (s *JobStore) List() []*model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, copyJob(job))
	}
	return out
}

// Count returns the number of live records.
func (s *JobStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func copyJob(job *model.Job) *model.Job {
	cp := *job
	if job.Error != nil {
		msg := *job.Error
		cp.Error = &msg
	}
	if job.Stems != nil {
		cp.Stems = make(map[string]model.StemArtifact, len(job.Stems))
		for name, artifact := range job.Stems {
			cp.Stems[name] = artifact
		}
	}
	return &cp
}
