package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LockFileName is created in the data directory by the process that owns
// the archive and rank files.
const LockFileName = "termtrend.lock"

// ErrLocked means another process holds the data directory.
var ErrLocked = errors.New("data directory is locked by another process")

// FileLock is an exclusive lock on one file. On unix it is a flock(2) that
// the kernel drops when the process exits; elsewhere it is the exclusive
// creation of the file, removed again by Unlock.
type FileLock struct {
	path string
	file *os.File
}

func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// TryLock acquires the lock without blocking. It returns ErrLocked when
// another process holds it.
func (l *FileLock) TryLock() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	file, err := acquire(l.path)
	if err != nil {
		return err
	}
	l.file = file
	return nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	err := release(l.file)
	l.file = nil
	return err
}

func (l *FileLock) Path() string { return l.path }
