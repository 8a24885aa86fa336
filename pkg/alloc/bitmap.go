package alloc

import (
	"fmt"
	"math/bits"

	"github.com/weberc2/diskfs/pkg/math"
)

const bitsPerByte = 8

// Bitmap is a fixed-length sequence of bits where a high bit marks an
// allocated entity. Bit `i` lives in byte `i/8` at position `i%8`, least
// significant bit first.
type Bitmap struct {
	bytes []byte
	count uint64
}

// New returns an all-free bitmap of `count` bits.
func New(count uint64) Bitmap {
	return Bitmap{
		bytes: make([]byte, math.DivRoundUp(count, bitsPerByte)),
		count: count,
	}
}

// FromBytes builds a bitmap of `count` bits from raw packed bytes. Bytes past
// `ceil(count/8)` are ignored and padding bits in the final byte are cleared.
func FromBytes(count uint64, raw []byte) Bitmap {
	bm := New(count)
	copy(bm.bytes, raw)
	if rem := count % bitsPerByte; rem != 0 {
		bm.bytes[len(bm.bytes)-1] &= byte(1<<rem) - 1
	}
	return bm
}

// Len returns the logical number of bits.
func (bm Bitmap) Len() uint64 { return bm.count }

// Bytes returns the packed backing bytes, `ceil(Len()/8)` long.
func (bm Bitmap) Bytes() []byte { return bm.bytes }

func (bm Bitmap) Get(i uint64) bool {
	bm.mustContain(i)
	return bm.bytes[i/bitsPerByte]&(1<<(i%bitsPerByte)) != 0
}

// Set marks `i` allocated. Setting a bit past `Len()` is a caller bug and
// panics.
func (bm Bitmap) Set(i uint64) {
	bm.mustContain(i)
	bm.bytes[i/bitsPerByte] |= 1 << (i % bitsPerByte)
}

// Clear marks `i` free. Like Set, it panics when `i` is out of range.
func (bm Bitmap) Clear(i uint64) {
	bm.mustContain(i)
	bm.bytes[i/bitsPerByte] &^= 1 << (i % bitsPerByte)
}

// FindFirstFree returns the lowest clear bit, or false if every bit is set.
func (bm Bitmap) FindFirstFree() (uint64, bool) {
	for byt, value := range bm.bytes {
		if value == 0xff {
			continue
		}
		for bit := uint64(0); bit < bitsPerByte; bit++ {
			if value&(1<<bit) == 0 {
				i := uint64(byt)*bitsPerByte + bit
				if i >= bm.count {
					return 0, false
				}
				return i, true
			}
		}
	}
	return 0, false
}

func (bm Bitmap) IsFull() bool {
	_, found := bm.FindFirstFree()
	return !found
}

// CountSet returns the number of allocated bits.
func (bm Bitmap) CountSet() uint64 {
	var n int
	full := bm.count / bitsPerByte
	for _, b := range bm.bytes[:full] {
		n += bits.OnesCount8(b)
	}
	if tail := bm.count % bitsPerByte; tail != 0 {
		n += bits.OnesCount8(bm.bytes[full] & (1<<tail - 1))
	}
	return uint64(n)
}

// Alloc finds the first free bit, sets it, and returns its index.
func (bm Bitmap) Alloc() (uint64, bool) {
	i, ok := bm.FindFirstFree()
	if !ok {
		return 0, false
	}
	bm.Set(i)
	return i, true
}

// Free is an alias for Clear so that Bitmap satisfies Allocator.
func (bm Bitmap) Free(i uint64) { bm.Clear(i) }

// Reserve is an alias for Set so that Bitmap satisfies Allocator.
func (bm Bitmap) Reserve(i uint64) { bm.Set(i) }

// Equal reports whether both bitmaps have the same length and bits.
func (bm Bitmap) Equal(other Bitmap) bool {
	if bm.count != other.count {
		return false
	}
	for i := range bm.bytes {
		if bm.bytes[i] != other.bytes[i] {
			return false
		}
	}
	return true
}

func (bm Bitmap) mustContain(i uint64) {
	if i >= bm.count {
		panic(fmt.Sprintf(
			"bitmap index `%d` out of range for bitmap of `%d` bits",
			i,
			bm.count,
		))
	}
}
