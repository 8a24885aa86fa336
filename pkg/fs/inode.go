package fs

import (
	"fmt"

	"github.com/weberc2/diskfs/pkg/medium"
	. "github.com/weberc2/diskfs/pkg/types"
)

const (
	MaxNameLen Byte = 64

	// DirectBlocksPerInode is the number of data block pointers in an inode.
	// There is no indirection so this also bounds file size.
	DirectBlocksPerInode = 32
)

// Inode is the fixed-size record describing one file or directory.
type Inode struct {
	Ino        Ino
	Parent     Ino
	Name       string
	DataBlocks [DirectBlocksPerInode]Block

	// SlotBitmap has bit `i` set iff `DataBlocks[i]` holds an owned block.
	SlotBitmap uint32
	FileType   FileType
	FileSize   uint32
}

// NewInode returns a zeroed inode at the lowest free ino in `inodeBitmap`.
// The bitmap itself is not modified.
func NewInode(
	parent Ino,
	name string,
	fileType FileType,
	sb *Superblock,
	inodeBitmap InodeBitmap,
) (Inode, error) {
	if Byte(len(name)) > MaxNameLen {
		return Inode{}, fmt.Errorf(
			"creating inode `%s`: `%d` bytes exceeds `%d`: %w",
			name,
			len(name),
			MaxNameLen,
			NameTooLongErr,
		)
	}
	if err := fileType.Validate(); err != nil {
		return Inode{}, fmt.Errorf("creating inode `%s`: %w", name, err)
	}

	ino, ok := inodeBitmap.FindFirstFree()
	if !ok {
		return Inode{}, fmt.Errorf(
			"creating inode `%s`: all `%d` inodes are in use: %w",
			name,
			sb.TotalInodes,
			NoFreeInodesErr,
		)
	}

	return Inode{
		Ino:      Ino(ino),
		Parent:   parent,
		Name:     name,
		FileType: fileType,
	}, nil
}

func (inode Inode) IsDir() bool { return inode.FileType == FileTypeDir }

func (inode Inode) SlotInUse(slot int) bool {
	return inode.SlotBitmap&(1<<slot) != 0
}

// SetSlot points direct slot `slot` at `block` and marks it owned.
func (inode *Inode) SetSlot(slot int, block Block) {
	inode.DataBlocks[slot] = block
	inode.SlotBitmap |= 1 << slot
}

func (inode *Inode) ClearSlot(slot int) {
	inode.DataBlocks[slot] = BlockNil
	inode.SlotBitmap &^= 1 << slot
}

// OwnedBlocks returns the blocks held by in-use slots in slot order.
func (inode Inode) OwnedBlocks() []Block {
	var blocks []Block
	for slot := 0; slot < DirectBlocksPerInode; slot++ {
		if inode.SlotInUse(slot) {
			blocks = append(blocks, inode.DataBlocks[slot])
		}
	}
	return blocks
}

func (inode *Inode) Persist(m medium.WriteAll, sb *Superblock) error {
	if err := checkIno(sb, inode.Ino); err != nil {
		return fmt.Errorf("persisting inode: %w", err)
	}
	var buf [InodeSize]byte
	EncodeInode(inode, &buf)
	if err := m.WriteAll(sb.InodeOffset(inode.Ino), buf[:]); err != nil {
		return fmt.Errorf("persisting inode `%d`: %w", inode.Ino, err)
	}
	return nil
}

// LoadInode reads the record for `ino`. It does not consult the inode
// bitmap, so reading a free slot returns whatever the table holds; a record
// whose stored ino disagrees with its position is reported as corrupt.
func LoadInode(m medium.ReadAll, ino Ino, sb *Superblock) (Inode, error) {
	if err := checkIno(sb, ino); err != nil {
		return Inode{}, fmt.Errorf("loading inode: %w", err)
	}
	var buf [InodeSize]byte
	if err := m.ReadAll(sb.InodeOffset(ino), buf[:]); err != nil {
		return Inode{}, fmt.Errorf("loading inode `%d`: %w", ino, err)
	}
	var inode Inode
	if err := DecodeInode(&inode, &buf); err != nil {
		return Inode{}, fmt.Errorf("loading inode `%d`: %w", ino, err)
	}
	if inode.Ino != ino {
		return Inode{}, fmt.Errorf(
			"loading inode `%d`: record holds ino `%d`: %w",
			ino,
			inode.Ino,
			CorruptLayoutErr,
		)
	}
	return inode, nil
}

// zeroInode overwrites the record for `ino` with zeros.
func zeroInode(m medium.WriteAll, ino Ino, sb *Superblock) error {
	if err := checkIno(sb, ino); err != nil {
		return fmt.Errorf("zeroing inode: %w", err)
	}
	var buf [InodeSize]byte
	if err := m.WriteAll(sb.InodeOffset(ino), buf[:]); err != nil {
		return fmt.Errorf("zeroing inode `%d`: %w", ino, err)
	}
	return nil
}

func checkIno(sb *Superblock, ino Ino) error {
	if uint32(ino) >= uint32(sb.TotalInodes) {
		return fmt.Errorf(
			"ino `%d` out of range `[0, %d)`: %w",
			ino,
			sb.TotalInodes,
			NotFoundErr,
		)
	}
	return nil
}
