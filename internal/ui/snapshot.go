package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SnapshotSink keeps a copy of the job page up to date on disk, rewriting
// the file after every projection.
type SnapshotSink struct {
	*DocumentSink
	path string
}

func NewSnapshotSink(html, path string) (*SnapshotSink, error) {
	doc, err := NewDocumentSinkFromHTML(html)
	if err != nil {
		return nil, err
	}
	return &SnapshotSink{DocumentSink: doc, path: path}, nil
}

func (s *SnapshotSink) Path() string {
	return s.path
}

func (s *SnapshotSink) Flush() {
	if err := s.write(); err != nil {
		log.Warnf("⚠️ Failed to write page snapshot: %v", err)
	}
}

func (s *SnapshotSink) write() error {
	html, err := s.HTML()
	if err != nil {
		return fmt.Errorf("render %s: %w", s.path, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.path)
}

var ErrUnsafeJobID = errors.New("job id is not usable as a file name")

// SnapshotPath is where the page of jobID is kept inside dir. Ids that would
// leave dir are rejected.
func SnapshotPath(dir, jobID string) (string, error) {
	if jobID == "" || strings.ContainsAny(jobID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeJobID, jobID)
	}
	return filepath.Join(dir, fmt.Sprintf("job-%s.html", jobID)), nil
}
