package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobDirPrefix prefixes every job directory name under the work dir
const JobDirPrefix = "job_"

// Artifact names inside a job directory
const (
	InputMIDIName      = "input.mid"
	InstrumentMIDIName = "instrument.mid"
	WaveformName       = "output.wav"
	CompressedName     = "output.mp3"
)

// Workspace allocates per-job directories under a root directory
type Workspace struct {
	root string
}

// NewWorkspace creates a workspace rooted at dir
func NewWorkspace(dir string) *Workspace {
	return &Workspace{root: dir}
}

// Root returns the directory job directories are created in
func (w *Workspace) Root() string {
	return w.root
}

// Job is a single render's working directory
type Job struct {
	ID  string
	Dir string
}

// Path returns the location of a named artifact in the job directory
func (j *Job) Path(name string) string {
	return filepath.Join(j.Dir, name)
}

// NewJob creates a fresh, uniquely named job directory
func (w *Workspace) NewJob() (*Job, error) {
	id := uuid.New().String()
	dir := filepath.Join(w.root, JobDirPrefix+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}
	return &Job{ID: id, Dir: dir}, nil
}

// IsJobDir reports whether a directory entry name looks like a job directory
func IsJobDir(name string) bool {
	id, ok := strings.CutPrefix(name, JobDirPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// Sweep removes job directories whose modification time is older than
// maxAge and returns how many were removed. Entries that are not job
// directories are left alone.
func (w *Workspace) Sweep(maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return 0, fmt.Errorf("failed to list work dir: %w", err)
	}

	removed := 0
	cutoff := now.Add(-maxAge)
	for _, entry := range entries {
		if !entry.IsDir() || !IsJobDir(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(w.root, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}

	return removed, nil
}
