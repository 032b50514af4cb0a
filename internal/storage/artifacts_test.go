package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStemFilename(t *testing.T) {
	assert.Equal(t, "track_drums.wav", StemFilename("track.wav", "drums"))
	assert.Equal(t, "track_vocals.wav", StemFilename("track.mp3", "vocals"))
	assert.Equal(t, "my song_bass.wav", StemFilename("/tmp/uploads/my song.wav", "bass"))
	assert.Equal(t, "noext_other.wav", StemFilename("noext", "other"))
}

func TestSpoolInputKeepsExtension(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := s.SpoolInput("job-1", "track.mp3", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.JobDir("job-1"), "input.mp3"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestSpoolInputDefaultsToWav(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := s.SpoolInput("job-1", "track", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, ".wav", filepath.Ext(path))
}

func TestRemoveJob(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := s.SpoolInput("job-1", "track.wav", strings.NewReader("payload"))
	require.NoError(t, err)

	require.NoError(t, s.RemoveJob("job-1"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Removing a job with no artifacts is not an error.
	assert.NoError(t, s.RemoveJob("never-existed"))
}

func TestStemPathLivesInJobDir(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)

	got := s.StemPath("job-1", "track_drums.wav")
	assert.Equal(t, filepath.Join(root, "job-1", "track_drums.wav"), got)
}
