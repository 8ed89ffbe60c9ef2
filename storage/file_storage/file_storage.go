package file_storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/fslock"

	"github.com/lidofinance/govtx/storage"
)

var _ storage.Storage = (*FileStorage)(nil)

const (
	defaultLockFile = "/tmp/govtx_journal_lock"
	maxLineSize     = 4 << 20
)

// FileStorage is an append-only journal kept in a JSON lines file.
// The lock file serializes writers of different processes.
type FileStorage struct {
	mu       sync.Mutex
	lockFile *fslock.Lock
	dataFile *os.File
}

func countLines(r io.Reader) (uint64, error) {
	var count uint64
	scanner := newScanner(r)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

// NewFileStorage opens the journal file, lockFilename is optional
func NewFileStorage(filename string, lockFilename ...string) (*FileStorage, error) {
	var (
		fs  FileStorage
		err error
	)
	if len(lockFilename) > 0 {
		fs.lockFile = fslock.New(lockFilename[0])
	} else {
		fs.lockFile = fslock.New(defaultLockFile)
	}

	if fs.dataFile, err = os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644); err != nil {
		return nil, fmt.Errorf("failed to open a journal file: %w", err)
	}
	return &fs, nil
}

// Send appends messages and fills in their ids and offsets
func (fs *FileStorage) Send(msgs ...storage.Message) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.lockFile.Lock(); err != nil {
		return fmt.Errorf("failed to lock a journal file: %w", err)
	}
	defer fs.lockFile.Unlock()

	// other processes may have appended since the last write
	if _, err := fs.dataFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to the start of a journal file: %w", err)
	}
	offset, err := countLines(fs.dataFile)
	if err != nil {
		return fmt.Errorf("failed to count journal records: %w", err)
	}

	for i := range msgs {
		msgs[i].ID = uuid.New().String()
		msgs[i].Offset = offset

		data, err := json.Marshal(msgs[i])
		if err != nil {
			return fmt.Errorf("failed to marshal a message %s: %w", msgs[i].ID, err)
		}
		if _, err = fmt.Fprintln(fs.dataFile, string(data)); err != nil {
			return fmt.Errorf("failed to write a message to a journal file: %w", err)
		}
		offset++
	}
	return nil
}

// GetMessages returns journal records starting with the given offset
func (fs *FileStorage) GetMessages(offset uint64) ([]storage.Message, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.dataFile.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to the start of a journal file: %w", err)
	}

	var msgs []storage.Message
	scanner := newScanner(fs.dataFile)
	for scanner.Scan() {
		if offset > 0 {
			offset--
			continue
		}

		var msg storage.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal a message %s: %w", scanner.Text(), err)
		}
		msgs = append(msgs, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read a journal file: %w", err)
	}
	return msgs, nil
}

func (fs *FileStorage) Close() error {
	return fs.dataFile.Close()
}
