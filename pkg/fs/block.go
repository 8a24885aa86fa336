package fs

import (
	"fmt"

	"github.com/weberc2/diskfs/pkg/medium"
	. "github.com/weberc2/diskfs/pkg/types"
)

// BlockType tags what a block holds. It is never persisted.
type BlockType uint8

const (
	BlockTypeSuperblock BlockType = iota
	BlockTypeInodeBitmap
	BlockTypeBlockBitmap
	BlockTypeInodeTable
	BlockTypeUserData

	// Never produced: every inode maps its data through direct slots and
	// children are found through their parent pointer.
	BlockTypeIndirectPointers
	BlockTypeChildrenList
	BlockTypeOther
)

func (bt BlockType) String() string {
	switch bt {
	case BlockTypeSuperblock:
		return "Superblock"
	case BlockTypeInodeBitmap:
		return "InodeBitmap"
	case BlockTypeBlockBitmap:
		return "BlockBitmap"
	case BlockTypeInodeTable:
		return "InodeTable"
	case BlockTypeUserData:
		return "UserData"
	case BlockTypeIndirectPointers:
		return "IndirectPointers"
	case BlockTypeChildrenList:
		return "ChildrenList"
	case BlockTypeOther:
		return "Other"
	default:
		return fmt.Sprintf("BlockType(%d)", uint8(bt))
	}
}

// BlockBuf is the in-memory contents of one on-disk block. `Data` may be
// shorter than the block size, in which case the remainder is written as
// zeros.
type BlockBuf struct {
	Number Block
	Type   BlockType
	Data   []byte
}

func (b *BlockBuf) Persist(m medium.WriteAll, sb *Superblock) error {
	blockSize := sb.BlockSize()
	if Byte(len(b.Data)) > blockSize {
		return fmt.Errorf(
			"persisting %s block `%d`: data is `%d` bytes but blocks are "+
				"`%d` bytes: %w",
			b.Type,
			b.Number,
			len(b.Data),
			blockSize,
			InvalidGeometryErr,
		)
	}

	data := b.Data
	if Byte(len(data)) < blockSize {
		data = make([]byte, blockSize)
		copy(data, b.Data)
	}
	if err := m.WriteAll(sb.BlockOffset(b.Number), data); err != nil {
		return fmt.Errorf("persisting %s block `%d`: %w", b.Type, b.Number, err)
	}
	return nil
}

// ReadBlockBuf reads the whole of block `number`.
func ReadBlockBuf(
	m medium.ReadAll,
	sb *Superblock,
	number Block,
	typ BlockType,
) (BlockBuf, error) {
	b := BlockBuf{Number: number, Type: typ, Data: make([]byte, sb.BlockSize())}
	if err := m.ReadAll(sb.BlockOffset(number), b.Data); err != nil {
		return BlockBuf{}, fmt.Errorf(
			"reading %s block `%d`: %w",
			typ,
			number,
			err,
		)
	}
	return b, nil
}
