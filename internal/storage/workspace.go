package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Denis-Joly/QuickScript/internal/domain"
)

// Workspace manages all filesystem scratch space: per-job work dirs,
// uploaded source files, and canonical/derived result artifacts.
type Workspace struct {
	root string
}

// NewWorkspace creates the scratch layout under root.
func NewWorkspace(root string) (*Workspace, error) {
	for _, dir := range []string{root, filepath.Join(root, "jobs"), filepath.Join(root, "uploads"), filepath.Join(root, "results")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating scratch dir %s: %w", dir, err)
		}
	}
	return &Workspace{root: root}, nil
}

// Root returns the scratch root directory.
func (w *Workspace) Root() string {
	return w.root
}

// UploadsDir returns the directory holding uploaded source files.
func (w *Workspace) UploadsDir() string {
	return filepath.Join(w.root, "uploads")
}

// JobDir creates (if needed) and returns the scratch dir owned by one job.
func (w *Workspace) JobDir(id string) (string, error) {
	dir := filepath.Join(w.root, "jobs", id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating job dir: %w", err)
	}
	return dir, nil
}

// RemoveJobDir deletes a job's scratch dir and verifies it is gone.
func (w *Workspace) RemoveJobDir(id string) error {
	dir := filepath.Join(w.root, "jobs", id)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing job dir: %w", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		return fmt.Errorf("job dir still exists: %s", dir)
	}
	return nil
}

// SaveUpload copies an uploaded file into the uploads area under a
// collision-free name and returns its path.
func (w *Workspace) SaveUpload(name string, r io.Reader) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		base = "upload"
	}
	path := filepath.Join(w.UploadsDir(), uuid.NewString()+"_"+base)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("saving upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("finalising upload: %w", err)
	}
	return path, nil
}

// ResultPath returns where a job's artifact for the given format lives.
// Results are kept outside the job dir so they survive scratch cleanup.
func (w *Workspace) ResultPath(id string, format domain.Format) string {
	return filepath.Join(w.root, "results", id+"."+string(format))
}

// RemoveResults deletes the canonical artifact and any cached exports.
func (w *Workspace) RemoveResults(id string) error {
	var firstErr error
	for _, f := range []domain.Format{domain.FormatMarkdown, domain.FormatText, domain.FormatPDF} {
		if err := os.Remove(w.ResultPath(id, f)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Sweep removes scratch entries older than maxAge and reports how many
// were deleted. Results are left alone; they are removed with their job.
func (w *Workspace) Sweep(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, dir := range []string{filepath.Join(w.root, "jobs"), w.UploadsDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, fmt.Errorf("reading scratch dir: %w", err)
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
