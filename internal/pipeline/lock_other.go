//go:build !unix

package pipeline

import (
	"errors"
	"fmt"
	"os"
)

// Without flock the file itself is the lock. A process that dies while
// holding it leaves the file behind and it has to be removed by hand.
func acquire(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("creating lock file: %w", err)
	}
	return file, nil
}

func release(file *os.File) error {
	closeErr := file.Close()
	if err := os.Remove(file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return closeErr
}
