package worker

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simpledj/api/internal/audio"
	"github.com/simpledj/api/internal/model"
	"github.com/simpledj/api/internal/separation"
	"github.com/simpledj/api/internal/service"
	"github.com/simpledj/api/internal/storage"
	"github.com/simpledj/api/internal/store"
)

type fakeModel struct {
	sources    []string
	sampleRate int
}

func (m *fakeModel) Sources() []string { return m.sources }
func (m *fakeModel) SampleRate() int   { return m.sampleRate }

func (m *fakeModel) Process(_ context.Context, chunk [][]float64) (map[string][][]float64, error) {
	out := make(map[string][][]float64, len(m.sources))
	for _, name := range m.sources {
		stem := make([][]float64, len(chunk))
		for c := range chunk {
			stem[c] = append([]float64(nil), chunk[c]...)
		}
		out[name] = stem
	}
	return out, nil
}

func writeTestInput(t *testing.T, artifacts *storage.Store, jobID string) string {
	t.Helper()

	const sampleRate = 8000
	wf := audio.New(sampleRate, 2, sampleRate/2)
	for c := range wf.Samples {
		for i := range wf.Samples[c] {
			wf.Samples[c][i] = 0.25 * math.Sin(2*math.Pi*440*float64(i)/sampleRate)
		}
	}

	dir := artifacts.JobDir(jobID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "input.wav")
	require.NoError(t, audio.EncodeWAV(path, wf))
	return path
}

func newTestWorker(t *testing.T, factory separation.Factory) (*SeparationWorker, *store.JobStore, *storage.Store) {
	t.Helper()

	jobs := store.NewJobStore()
	artifacts, err := storage.New(t.TempDir())
	require.NoError(t, err)

	w := NewSeparationWorker(jobs, artifacts, separation.NewLoader(factory), 10.0, 1.0, zap.NewNop().Sugar())
	return w, jobs, artifacts
}

func TestProcessCompletesJob(t *testing.T) {
	sources := []string{"drums", "bass", "other", "vocals"}
	w, jobs, artifacts := newTestWorker(t, func(context.Context) (separation.Model, error) {
		return &fakeModel{sources: sources, sampleRate: 8000}, nil
	})

	_, err := jobs.Create("job-1", "track.wav")
	require.NoError(t, err)
	input := writeTestInput(t, artifacts, "job-1")

	err = w.Process(context.Background(), &service.SeparateTaskPayload{
		JobID:     "job-1",
		InputPath: input,
		Filename:  "track.wav",
	})
	require.NoError(t, err)

	got, err := jobs.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Nil(t, got.Error)
	require.Len(t, got.Stems, 4)

	for _, name := range sources {
		stem, ok := got.Stems[name]
		require.True(t, ok, "missing stem %s", name)
		assert.Equal(t, "track_"+name+".wav", stem.Filename)
		assert.Positive(t, stem.Size)

		info, err := os.Stat(stem.Path)
		require.NoError(t, err)
		assert.Equal(t, stem.Size, info.Size())
	}

	// The spooled input is gone once the job finishes.
	_, err = os.Stat(input)
	assert.True(t, os.IsNotExist(err))
}

func TestProcessFailsWhenModelUnavailable(t *testing.T) {
	w, jobs, artifacts := newTestWorker(t, func(context.Context) (separation.Model, error) {
		return nil, errors.New("inference service unreachable")
	})

	_, err := jobs.Create("job-1", "track.wav")
	require.NoError(t, err)
	input := writeTestInput(t, artifacts, "job-1")

	err = w.Process(context.Background(), &service.SeparateTaskPayload{
		JobID:     "job-1",
		InputPath: input,
		Filename:  "track.wav",
	})
	require.Error(t, err)

	got, err := jobs.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "model unavailable")
	assert.Empty(t, got.Stems)

	_, err = os.Stat(input)
	assert.True(t, os.IsNotExist(err))
}

func TestProcessFailsOnUndecodableInput(t *testing.T) {
	w, jobs, artifacts := newTestWorker(t, func(context.Context) (separation.Model, error) {
		return &fakeModel{sources: []string{"vocals"}, sampleRate: 8000}, nil
	})

	_, err := jobs.Create("job-1", "track.wav")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(artifacts.JobDir("job-1"), 0o755))
	input := filepath.Join(artifacts.JobDir("job-1"), "input.wav")
	require.NoError(t, os.WriteFile(input, []byte("not a wav file"), 0o644))

	err = w.Process(context.Background(), &service.SeparateTaskPayload{
		JobID:     "job-1",
		InputPath: input,
		Filename:  "track.wav",
	})
	require.Error(t, err)

	got, err := jobs.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, *got.Error, "decode")
}

func TestProcessToleratesReapedRecord(t *testing.T) {
	w, jobs, artifacts := newTestWorker(t, func(context.Context) (separation.Model, error) {
		return &fakeModel{sources: []string{"vocals"}, sampleRate: 8000}, nil
	})

	_, err := jobs.Create("job-1", "track.wav")
	require.NoError(t, err)
	input := writeTestInput(t, artifacts, "job-1")

	// Reaper claims the record before the worker dequeues the task.
	jobs.Delete("job-1")

	err = w.Process(context.Background(), &service.SeparateTaskPayload{
		JobID:     "job-1",
		InputPath: input,
		Filename:  "track.wav",
	})
	require.NoError(t, err)

	// The record stays gone and the input is still cleaned up.
	_, err = jobs.Get("job-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = os.Stat(input)
	assert.True(t, os.IsNotExist(err))
}
