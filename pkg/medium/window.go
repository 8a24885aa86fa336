package medium

import (
	"fmt"

	. "github.com/weberc2/diskfs/pkg/types"
)

// Window exposes `size` bytes of an inner medium starting at `offset`. It is
// used to embed a filesystem image at a partition offset inside a larger
// disk.
type Window struct {
	inner  Medium
	offset Byte
	size   Byte
}

var _ Medium = (*Window)(nil)

func NewWindow(inner Medium, offset, size Byte) *Window {
	return &Window{inner: inner, offset: offset, size: size}
}

func (w *Window) ReadAll(offset Byte, p []byte) error {
	if !w.contains(offset, len(p)) {
		return shortIO(OpRead, offset, len(p), 0)
	}
	if err := w.inner.ReadAll(offset+w.offset, p); err != nil {
		return fmt.Errorf(
			"reading additional offset `%d` from base offset `%d` (total "+
				"offset `%d` bytes): %w",
			offset,
			w.offset,
			offset+w.offset,
			err,
		)
	}
	return nil
}

func (w *Window) WriteAll(offset Byte, p []byte) error {
	if !w.contains(offset, len(p)) {
		return shortIO(OpWrite, offset, len(p), 0)
	}
	if err := w.inner.WriteAll(offset+w.offset, p); err != nil {
		return fmt.Errorf(
			"writing additional offset `%d` from base offset `%d` (total "+
				"offset `%d` bytes): %w",
			offset,
			w.offset,
			offset+w.offset,
			err,
		)
	}
	return nil
}

func (w *Window) Size() Byte { return w.size }

func (w *Window) contains(offset Byte, length int) bool {
	return offset >= 0 && offset+Byte(length) <= w.size
}
