package fs

import (
	"bytes"
	"testing"

	"github.com/weberc2/diskfs/pkg/alloc"
	"github.com/weberc2/diskfs/pkg/medium"
	. "github.com/weberc2/diskfs/pkg/types"
)

func patterned(bits uint64) alloc.Bitmap {
	bm := alloc.New(bits)
	for i := uint64(0); i < bits; i++ {
		if i%3 == 0 || i%7 == 1 {
			bm.Set(i)
		}
	}
	bm.Set(bits - 1)
	return bm
}

// fill writes 0xff across the whole medium so that padding which is not
// rewritten shows up.
func fill(size Byte) *medium.Buffer {
	data := make([]byte, size)
	for i := range data {
		data[i] = 0xff
	}
	return medium.NewBuffer(data)
}

func TestBitmapRoundTrip(t *testing.T) {
	for _, testCase := range []struct {
		name          string
		fsSize        Byte
		blockSize     Byte
		bytesPerInode Byte
	}{
		// inode bits: 2048 = 8*256 (aligned); block bits: 8192 (aligned)
		{"aligned", 2 * MiB, 256, 1 * KiB},
		// inode bits: 2049; block bits: 8196
		{"unaligned", 2049 * KiB, 256, 1 * KiB},
		// inode bits: 100; block bits: 400
		{"partial single block", 400 * 256, 256, 1 * KiB},
		// inode bits: 3000 over two 256-byte blocks
		{"partial last block", 3000 * KiB, 256, 1 * KiB},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			sb, err := NewSuperblock(
				testCase.fsSize,
				testCase.blockSize,
				testCase.bytesPerInode,
			)
			if err != nil {
				t.Fatalf("NewSuperblock(): unexpected err: %v", err)
			}
			m := fill(sb.Size())

			inodes := InodeBitmap{patterned(uint64(sb.TotalInodes))}
			if err := inodes.Persist(m, &sb); err != nil {
				t.Fatalf("InodeBitmap.Persist(): unexpected err: %v", err)
			}
			blocks := BlockBitmap{patterned(uint64(sb.TotalBlocks))}
			if err := blocks.Persist(m, &sb); err != nil {
				t.Fatalf("BlockBitmap.Persist(): unexpected err: %v", err)
			}

			foundInodes, err := FetchInodeBitmap(m, &sb)
			if err != nil {
				t.Fatalf("FetchInodeBitmap(): unexpected err: %v", err)
			}
			if !foundInodes.Equal(inodes.Bitmap) {
				t.Fatalf(
					"FetchInodeBitmap(): wanted `%x`; found `%x`",
					inodes.Bytes(),
					foundInodes.Bytes(),
				)
			}

			foundBlocks, err := FetchBlockBitmap(m, &sb)
			if err != nil {
				t.Fatalf("FetchBlockBitmap(): unexpected err: %v", err)
			}
			if !foundBlocks.Equal(blocks.Bitmap) {
				t.Fatalf(
					"FetchBlockBitmap(): wanted `%x`; found `%x`",
					blocks.Bytes(),
					foundBlocks.Bytes(),
				)
			}
		})
	}
}

func TestBitmapPersistPadsLastBlock(t *testing.T) {
	sb, err := NewSuperblock(400*256, 256, 1*KiB)
	if err != nil {
		t.Fatalf("NewSuperblock(): unexpected err: %v", err)
	}
	m := fill(sb.Size())
	bm := InodeBitmap{patterned(uint64(sb.TotalInodes))}
	if err := bm.Persist(m, &sb); err != nil {
		t.Fatalf("Persist(): unexpected err: %v", err)
	}

	start := sb.BlockOffset(sb.InodeBitmapStart())
	raw := m.Bytes()[start : start+sb.BlockSize()]
	used := len(bm.Bytes())
	if !bytes.Equal(raw[:used], bm.Bytes()) {
		t.Fatalf("bitmap bytes: wanted `%x`; found `%x`", bm.Bytes(), raw[:used])
	}
	if !bytes.Equal(raw[used:], make([]byte, len(raw)-used)) {
		t.Fatalf("padding: wanted zeros; found `%x`", raw[used:])
	}
}

func TestFetchBitmapIgnoresPadding(t *testing.T) {
	sb, err := NewSuperblock(400*256, 256, 1*KiB)
	if err != nil {
		t.Fatalf("NewSuperblock(): unexpected err: %v", err)
	}
	m := medium.NewBuffer(make([]byte, sb.Size()))
	wanted := InodeBitmap{alloc.New(uint64(sb.TotalInodes))}
	wanted.Set(0)
	wanted.Set(99)
	if err := wanted.Persist(m, &sb); err != nil {
		t.Fatalf("Persist(): unexpected err: %v", err)
	}

	// 100 bits occupy 13 bytes; scribble over bits 100..103 and the padding
	start := sb.BlockOffset(sb.InodeBitmapStart())
	m.Bytes()[start+12] |= 0xf0
	for i := start + 13; i < start+sb.BlockSize(); i++ {
		m.Bytes()[i] = 0xff
	}

	found, err := FetchInodeBitmap(m, &sb)
	if err != nil {
		t.Fatalf("FetchInodeBitmap(): unexpected err: %v", err)
	}
	if !found.Equal(wanted.Bitmap) {
		t.Fatalf("FetchInodeBitmap(): wanted `%x`; found `%x`", wanted.Bytes(), found.Bytes())
	}
	if found.CountSet() != 2 {
		t.Fatalf("CountSet(): wanted `2`; found `%d`", found.CountSet())
	}
}
