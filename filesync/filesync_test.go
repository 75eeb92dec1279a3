package filesync

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncFile(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	file := filepath.Join(dir, "sync-file.txt")
	createTestFile(t, file, "content")

	stateFile := filepath.Join(dir, "state")

	t.Run("it should always sync when checksum is disabled", func(t *testing.T) {
		calls := 0
		fs := NewFileSync(false, stateFile)

		for range 2 {
			skipped, err := fs.SyncFile(file, "/remote/sync-file.txt", func() error { calls++; return nil })
			assert.NoError(err)
			assert.False(skipped)
		}

		assert.Equal(2, calls)
	})

	t.Run("it should skip a file that has already been synced", func(t *testing.T) {
		calls := 0
		fs := NewFileSync(true, stateFile)

		skipped, err := fs.SyncFile(file, "/remote/sync-file.txt", func() error { calls++; return nil })
		assert.NoError(err)
		assert.False(skipped)

		skipped, err = fs.SyncFile(file, "/remote/sync-file.txt", func() error { calls++; return nil })
		assert.NoError(err)
		assert.True(skipped)

		assert.Equal(1, calls)
	})

	t.Run("it should not save state when the sync fails", func(t *testing.T) {
		fs := NewFileSync(true, filepath.Join(dir, "failed-state"))
		syncErr := errors.New("boom")

		_, err := fs.SyncFile(file, "/remote/failed.txt", func() error { return syncErr })
		assert.ErrorIs(err, syncErr)

		transferred, err := NewChecksum(file, filepath.Join(dir, "failed-state")).IsFileTransferred("/remote/failed.txt")
		assert.NoError(err)
		assert.False(transferred)
	})
}
