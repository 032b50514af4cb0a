package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store owns the on-disk artifact layout: every job gets its own directory
// under the results root, holding the spooled input while the job runs and
// the stem files once it completes.
type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results dir: %w", err)
	}
	return &Store{root: root}, nil
}

// JobDir returns the directory that holds a job's artifacts.
func (s *Store) JobDir(jobID string) string {
	return filepath.Join(s.root, jobID)
}

// SpoolInput writes the uploaded payload into the job directory so the
// background worker can read it. The file keeps the upload's extension, which
// the decoder dispatches on.
func (s *Store) SpoolInput(jobID, filename string, r io.Reader) (string, error) {
	dir := s.JobDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create job dir: %w", err)
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".wav"
	}
	path := filepath.Join(dir, "input"+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to spool input: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write input: %w", err)
	}
	return path, nil
}

// StemFilename derives a stem's deterministic filename from the original
// upload name and the source name, e.g. track.mp3 + drums -> track_drums.wav.
func StemFilename(originalFilename, source string) string {
	base := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
	return fmt.Sprintf("%s_%s.wav", base, source)
}

// StemPath returns where a stem file lives inside a job's directory.
func (s *Store) StemPath(jobID, filename string) string {
	return filepath.Join(s.JobDir(jobID), filename)
}

// RemoveJob deletes a job's artifact directory. Best effort: a missing
// directory is not an error.
func (s *Store) RemoveJob(jobID string) error {
	return os.RemoveAll(s.JobDir(jobID))
}
