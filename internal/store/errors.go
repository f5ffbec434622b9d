package store

import (
	"errors"
	"strings"
	"syscall"
)

// ErrNoSnapshot is returned when a label has no stored snapshot.
var ErrNoSnapshot = errors.New("no snapshot for label")

// ErrStorageFull indicates the snapshot could not be persisted because
// the disk or database is out of space. Callers surface it as a warning
// next to the in-memory result; a collection run is not failed by it.
var ErrStorageFull = errors.New("snapshot storage full")

// classifyWriteError maps out-of-space failures from the filesystem or
// sqlite onto ErrStorageFull so callers can test with errors.Is. Other
// errors pass through unchanged.
func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ENOSPC) {
		return errors.Join(ErrStorageFull, err)
	}
	// modernc sqlite reports SQLITE_FULL by message only.
	if strings.Contains(err.Error(), "database or disk is full") {
		return errors.Join(ErrStorageFull, err)
	}
	return err
}
