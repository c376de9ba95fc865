package ui

import (
	"os"
	"path/filepath"
	"testing"

	"producttracker/watcher/internal/domain"
	"producttracker/watcher/internal/poller"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotSink(t *testing.T) {
	path, err := SnapshotPath(t.TempDir(), "7")
	require.NoError(t, err)
	assert.Equal(t, "job-7.html", filepath.Base(path))

	sink, err := NewSnapshotSink(jobPage, path)
	require.NoError(t, err)

	poller.UpdateProgress(sink, &domain.JobStatusResponse{CurrentPage: 3, TotalPages: 10, ProductCount: intPtr(45)})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `style="background: red; width: 30%"`)
	assert.Contains(t, string(data), `data-product-count="">45<`)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSnapshotPath_RejectsSeparators(t *testing.T) {
	dir := t.TempDir()

	for _, id := range []string{"../x", "a/b", `..\x`, ""} {
		_, err := SnapshotPath(dir, id)
		assert.ErrorIs(t, err, ErrUnsafeJobID, "id %q", id)
	}

	path, err := SnapshotPath(dir, "..")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
}
