package reaper

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simpledj/api/internal/model"
	"github.com/simpledj/api/internal/storage"
	"github.com/simpledj/api/internal/store"
)

func newTestReaper(t *testing.T, ttl time.Duration) (*Reaper, *store.JobStore, *storage.Store) {
	t.Helper()

	jobs := store.NewJobStore()
	artifacts, err := storage.New(t.TempDir())
	require.NoError(t, err)

	return New(jobs, artifacts, ttl, time.Minute, zap.NewNop().Sugar()), jobs, artifacts
}

func TestSweepRemovesOnlyExpiredJobs(t *testing.T) {
	r, jobs, _ := newTestReaper(t, 50*time.Millisecond)

	_, err := jobs.Create("old", "old.wav")
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = jobs.Create("fresh", "fresh.wav")
	require.NoError(t, err)

	reaped := r.Sweep(time.Now().UTC())
	assert.Equal(t, 1, reaped)

	_, err = jobs.Get("old")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = jobs.Get("fresh")
	assert.NoError(t, err)
}

func TestSweepIgnoresStatus(t *testing.T) {
	r, jobs, _ := newTestReaper(t, 30*time.Minute)

	for _, id := range []string{"pending", "processing", "completed", "failed"} {
		_, err := jobs.Create(id, id+".wav")
		require.NoError(t, err)
	}
	jobs.Update("processing", store.JobUpdate{Status: statusPtr(model.JobStatusProcessing)})
	jobs.Update("completed", store.JobUpdate{Status: statusPtr(model.JobStatusCompleted)})
	jobs.Update("failed", store.JobUpdate{Status: statusPtr(model.JobStatusFailed)})

	reaped := r.Sweep(time.Now().UTC().Add(time.Hour))
	assert.Equal(t, 4, reaped)
	assert.Equal(t, 0, jobs.Count())
}

func TestSweepDeletesArtifacts(t *testing.T) {
	r, jobs, artifacts := newTestReaper(t, 30*time.Minute)

	_, err := jobs.Create("job-1", "track.wav")
	require.NoError(t, err)
	path, err := artifacts.SpoolInput("job-1", "track.wav", strings.NewReader("payload"))
	require.NoError(t, err)

	r.Sweep(time.Now().UTC().Add(time.Hour))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(artifacts.JobDir("job-1"))
	assert.True(t, os.IsNotExist(err))
}

func TestReapedJobCannotBeResurrected(t *testing.T) {
	r, jobs, _ := newTestReaper(t, 30*time.Minute)

	_, err := jobs.Create("job-1", "track.wav")
	require.NoError(t, err)
	r.Sweep(time.Now().UTC().Add(time.Hour))

	// A worker finishing after the sweep must not bring the record back.
	ok := jobs.Update("job-1", store.JobUpdate{Status: statusPtr(model.JobStatusCompleted), Progress: intPtr(100)})
	assert.False(t, ok)
	_, err = jobs.Get("job-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSweepEmptyStore(t *testing.T) {
	r, _, _ := newTestReaper(t, 30*time.Minute)
	assert.Equal(t, 0, r.Sweep(time.Now()))
}

func statusPtr(s model.JobStatus) *model.JobStatus {
	return &s
}

func intPtr(v int) *int {
	return &v
}
