// Package medium defines the storage capability a filesystem image lives on
// and a handful of implementations: regular files, in-memory buffers, windows
// into a larger medium and a logging decorator. Every operation covers an
// exact byte range; a short read or write is an error, never a partial
// success.
package medium

import (
	"fmt"

	. "github.com/weberc2/diskfs/pkg/types"
)

type ReadAll interface {
	ReadAll(offset Byte, p []byte) error
}

type WriteAll interface {
	WriteAll(offset Byte, p []byte) error
}

// Medium is a byte-addressable store. Calls are complete, ordered and
// positioned; implementations need not buffer.
type Medium interface {
	ReadAll
	WriteAll
}

// Op names the failed medium operation in an IOError.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// IOError reports a failed medium operation. It unwraps to the underlying
// cause, and to ShortIOErr when fewer than `Len` bytes were transferred.
type IOError struct {
	Op     Op
	Offset Byte
	Len    int
	Err    error
}

func (err *IOError) Error() string {
	return fmt.Sprintf(
		"%s of `%d` bytes at offset `%d`: %v",
		err.Op,
		err.Len,
		err.Offset,
		err.Err,
	)
}

func (err *IOError) Unwrap() error { return err.Err }

func shortIO(op Op, offset Byte, length int, n int) *IOError {
	return &IOError{
		Op:     op,
		Offset: offset,
		Len:    length,
		Err: fmt.Errorf(
			"transferred `%d` of `%d` bytes: %w",
			n,
			length,
			ShortIOErr,
		),
	}
}
