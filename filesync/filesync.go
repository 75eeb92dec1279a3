package filesync

import (
	"fmt"
	"log/slog"
)

type FileSync struct {
	SaveChecksum bool
	checksumFile string
}

func NewFileSync(saveChecksum bool, checksumFile string) *FileSync {
	return &FileSync{
		SaveChecksum: saveChecksum,
		checksumFile: checksumFile,
	}
}

// SyncFile runs syncFunc unless the file content has already been written to remotePath.
// It reports whether syncFunc was skipped.
func (fs *FileSync) SyncFile(filename, remotePath string, syncFunc func() error) (bool, error) {
	if !fs.SaveChecksum {
		return false, syncFunc()
	}

	fileChecksum := NewChecksum(filename, fs.checksumFile)

	transferred, err := fileChecksum.IsFileTransferred(remotePath)
	if err != nil {
		return false, fmt.Errorf("fail to check if %s has been transferred, error: %v", filename, err)
	}

	if transferred {
		slog.Debug("[filesync] the file has already been transferred", slog.Any("filename", filename), slog.Any("remote", remotePath))
		return true, nil
	}

	if err := syncFunc(); err != nil {
		return false, err
	}

	if err := fileChecksum.SaveState(remotePath); err != nil {
		return false, fmt.Errorf("fail to save the checksum state file for %s, error: %v", filename, err)
	}

	return false, nil
}
