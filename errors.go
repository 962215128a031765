package numtrie

import (
	"errors"
	"fmt"
)

var (
	// ErrSealed is returned when writing to a sealed store.
	ErrSealed = errors.New("store is sealed")

	// ErrNotSealed is returned when searching or snapshotting an
	// unsealed store.
	ErrNotSealed = errors.New("store is not sealed")

	// ErrSnapshotCorrupt indicates a snapshot failed its integrity checks.
	ErrSnapshotCorrupt = errors.New("corrupt snapshot")
)

// ErrSnapshotVersion indicates a snapshot written by an unsupported
// format version.
type ErrSnapshotVersion struct {
	Version uint16
}

func (e *ErrSnapshotVersion) Error() string {
	return fmt.Sprintf("unsupported snapshot version: %d", e.Version)
}

// ErrUnknownCompression indicates a snapshot with a compression scheme
// this build does not know.
type ErrUnknownCompression struct {
	Scheme byte
}

func (e *ErrUnknownCompression) Error() string {
	return fmt.Sprintf("unknown compression scheme: %d", e.Scheme)
}

// ErrDocCountMismatch indicates a bulk insert with misaligned id and
// value slices.
type ErrDocCountMismatch struct {
	Docs   int
	Values int
}

func (e *ErrDocCountMismatch) Error() string {
	return fmt.Sprintf("doc count mismatch: %d ids, %d values", e.Docs, e.Values)
}
