package medium

import . "github.com/weberc2/diskfs/pkg/types"

// Buffer is a fixed-size in-memory medium. It never grows; accesses past the
// end fail with a short I/O error.
type Buffer struct {
	data []byte
}

var _ Medium = (*Buffer)(nil)

func NewBuffer(data []byte) *Buffer { return &Buffer{data: data} }

func (b *Buffer) ReadAll(offset Byte, p []byte) error {
	if offset < 0 || offset > Byte(len(b.data)) {
		return shortIO(OpRead, offset, len(p), 0)
	}
	if n := copy(p, b.data[offset:]); n < len(p) {
		return shortIO(OpRead, offset, len(p), n)
	}
	return nil
}

func (b *Buffer) WriteAll(offset Byte, p []byte) error {
	if offset < 0 || offset > Byte(len(b.data)) {
		return shortIO(OpWrite, offset, len(p), 0)
	}
	if n := copy(b.data[offset:], p); n < len(p) {
		return shortIO(OpWrite, offset, len(p), n)
	}
	return nil
}

func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) Size() Byte { return Byte(len(b.data)) }
