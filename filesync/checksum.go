package filesync

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const ChecksumStateFile = "checksum.syncto"

// Checksum records which local file contents have already been written to which remote path.
// Each line of the state file is "<sha256> <remote path>".
type Checksum struct {
	filePath  string
	stateFile string
	mu        *sync.Mutex
}

var stateLocks sync.Map

func lockFor(stateFile string) *sync.Mutex {
	mu, _ := stateLocks.LoadOrStore(filepath.Clean(stateFile), &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// NewChecksum tracks filePath in stateFile. An empty stateFile stores the
// state next to the file itself.
func NewChecksum(filePath, stateFile string) *Checksum {
	if stateFile == "" {
		stateFile = filepath.Join(filepath.Dir(filePath), ChecksumStateFile)
	}

	return &Checksum{
		filePath:  filePath,
		stateFile: stateFile,
		mu:        lockFor(stateFile),
	}
}

func (c *Checksum) computeChecksum() (string, error) {
	hasher := sha256.New()

	file, err := os.Open(c.filePath)

	if err != nil {
		return "", fmt.Errorf("fail to open file %s to compute checksum, error: %v", c.filePath, err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Error("fail to close file", slog.Any("filename", file.Name()), slog.Any("error", closeErr))
		}
	}()

	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("fail to copy content to hasher, error: %v", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (c *Checksum) entry(remotePath string) (string, error) {
	checksum, err := c.computeChecksum()
	if err != nil {
		return "", err
	}

	return checksum + " " + remotePath, nil
}

func (c *Checksum) IsFileTransferred(remotePath string) (bool, error) {
	entry, err := c.entry(remotePath)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stateFile, err := os.Open(c.stateFile)

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("fail to open checksum file: %v", err)
	}

	defer func() {
		if closeErr := stateFile.Close(); closeErr != nil {
			slog.Error("fail to close the checksum state file while checking if file has been transferred", slog.Any("error", closeErr))
		}
	}()

	scanner := bufio.NewScanner(stateFile)

	for scanner.Scan() {
		if entry == strings.TrimSpace(scanner.Text()) {
			return true, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("fail to scan file, error: %v", err)
	}

	return false, nil
}

func (c *Checksum) SaveState(remotePath string) error {
	entry, err := c.entry(remotePath)
	if err != nil {
		return fmt.Errorf("fail to get checksum while saving, error: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.stateFile), 0755); err != nil {
		return fmt.Errorf("fail to create state file directory, error: %v", err)
	}

	file, err := os.OpenFile(c.stateFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)

	if err != nil {
		return fmt.Errorf("fail to open state file while saving, error: %v", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("fail to close state file while saving", slog.Any("error", err))
		}
	}()

	if _, err = file.WriteString(entry + "\n"); err != nil {
		return fmt.Errorf("fail to write checksum while saving, error: %v", err)
	}

	return nil
}
