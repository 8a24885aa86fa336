package fs

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/weberc2/diskfs/pkg/medium"
	. "github.com/weberc2/diskfs/pkg/types"
)

// Metadata owns the medium together with the superblock and both bitmaps.
// Every read and write of the filesystem goes through it. It is not safe for
// concurrent use.
type Metadata struct {
	medium      medium.Medium
	superblock  Superblock
	inodeBitmap InodeBitmap
	blockBitmap BlockBitmap
}

// CreateMetadata lays out a new filesystem on `m`: superblock, empty inode
// bitmap, zeroed inode table and a block bitmap with every metadata block
// reserved.
func CreateMetadata(
	m medium.Medium,
	fsSize Byte,
	blockSize Byte,
	bytesPerInode Byte,
) (*Metadata, error) {
	sb, err := NewSuperblock(fsSize, blockSize, bytesPerInode)
	if err != nil {
		return nil, fmt.Errorf("creating metadata: %w", err)
	}

	// fail before writing anything if the medium is too small
	var last [1]byte
	if err := m.ReadAll(sb.Size()-1, last[:]); err != nil {
		return nil, fmt.Errorf(
			"creating metadata: medium cannot hold `%d` bytes: %w: %w",
			sb.Size(),
			InvalidGeometryErr,
			err,
		)
	}

	md := &Metadata{
		medium:      m,
		superblock:  sb,
		inodeBitmap: NewInodeBitmap(&sb),
		blockBitmap: NewBlockBitmap(&sb),
	}
	for b := Block(0); b < sb.FirstDataBlock(); b++ {
		md.blockBitmap.Reserve(uint64(b))
	}

	if err := md.zeroInodeTable(); err != nil {
		return nil, fmt.Errorf("creating metadata: %w", err)
	}
	if err := md.PersistInodeBitmap(); err != nil {
		return nil, fmt.Errorf("creating metadata: %w", err)
	}
	if err := md.PersistBlockBitmap(); err != nil {
		return nil, fmt.Errorf("creating metadata: %w", err)
	}
	if err := md.PersistSuperblock(); err != nil {
		return nil, fmt.Errorf("creating metadata: %w", err)
	}

	log.WithFields(log.Fields{
		"blockSize":      sb.BlockSize(),
		"totalBlocks":    sb.TotalBlocks,
		"totalInodes":    sb.TotalInodes,
		"firstDataBlock": sb.FirstDataBlock(),
	}).Debug("created filesystem metadata")
	return md, nil
}

// FetchMetadata reads the superblock, then the inode bitmap, then the block
// bitmap.
func FetchMetadata(m medium.Medium) (*Metadata, error) {
	sb, err := ReadSuperblock(m)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}
	inodeBitmap, err := FetchInodeBitmap(m, &sb)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}
	blockBitmap, err := FetchBlockBitmap(m, &sb)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}
	return &Metadata{
		medium:      m,
		superblock:  sb,
		inodeBitmap: inodeBitmap,
		blockBitmap: blockBitmap,
	}, nil
}

func (md *Metadata) zeroInodeTable() error {
	zeros := make([]byte, md.superblock.BlockSize())
	start := Block(md.superblock.InodeStartBlock)
	for b := start; b < md.superblock.FirstDataBlock(); b++ {
		block := BlockBuf{Number: b, Type: BlockTypeInodeTable, Data: zeros}
		if err := block.Persist(md.medium, &md.superblock); err != nil {
			return fmt.Errorf("zeroing inode table: %w", err)
		}
	}
	return nil
}

// Superblock returns a copy of the current superblock.
func (md *Metadata) Superblock() Superblock { return md.superblock }

func (md *Metadata) Medium() medium.Medium { return md.medium }

func (md *Metadata) InodeBitmap() InodeBitmap { return md.inodeBitmap }

func (md *Metadata) BlockBitmap() BlockBitmap { return md.blockBitmap }

func (md *Metadata) IsInodeBitmapFull() bool { return md.inodeBitmap.IsFull() }

func (md *Metadata) InodeFindFirstFree() (Ino, bool) {
	ino, ok := md.inodeBitmap.FindFirstFree()
	return Ino(ino), ok
}

// SetInodeInBitmap marks `ino` in use in memory only.
func (md *Metadata) SetInodeInBitmap(ino Ino) {
	md.inodeBitmap.Set(uint64(ino))
}

// ClearInodeInBitmap marks `ino` free in memory only.
func (md *Metadata) ClearInodeInBitmap(ino Ino) {
	md.inodeBitmap.Clear(uint64(ino))
}

func (md *Metadata) InodeInUse(ino Ino) bool {
	return uint32(ino) < uint32(md.superblock.TotalInodes) &&
		md.inodeBitmap.Get(uint64(ino))
}

func (md *Metadata) PersistInode(inode *Inode) error {
	return inode.Persist(md.medium, &md.superblock)
}

func (md *Metadata) PersistInodeBitmap() error {
	return md.inodeBitmap.Persist(md.medium, &md.superblock)
}

func (md *Metadata) PersistBlockBitmap() error {
	return md.blockBitmap.Persist(md.medium, &md.superblock)
}

// PersistSuperblock recomputes the free counters from the bitmaps and writes
// the superblock.
func (md *Metadata) PersistSuperblock() error {
	md.superblock.FreeInodes = md.superblock.TotalInodes -
		uint16(md.inodeBitmap.CountSet())
	md.superblock.FreeBlocks = md.superblock.TotalBlocks -
		uint16(md.blockBitmap.CountSet())
	return md.superblock.Persist(md.medium)
}

// LoadInode loads an in-use inode. Free or out-of-range inos are reported as
// NotFoundErr.
func (md *Metadata) LoadInode(ino Ino) (Inode, error) {
	if !md.InodeInUse(ino) {
		return Inode{}, fmt.Errorf("loading inode `%d`: %w", ino, NotFoundErr)
	}
	return LoadInode(md.medium, ino, &md.superblock)
}

// AllocateInode creates and persists a new inode. The record is written
// before the bitmap so a partially completed allocation never marks an
// unwritten record as in use.
func (md *Metadata) AllocateInode(
	parent Ino,
	name string,
	fileType FileType,
) (Inode, error) {
	inode, err := NewInode(parent, name, fileType, &md.superblock, md.inodeBitmap)
	if err != nil {
		return Inode{}, fmt.Errorf("allocating inode: %w", err)
	}
	if err := md.PersistInode(&inode); err != nil {
		return Inode{}, fmt.Errorf("allocating inode `%d`: %w", inode.Ino, err)
	}
	md.SetInodeInBitmap(inode.Ino)
	if err := md.PersistInodeBitmap(); err != nil {
		return Inode{}, fmt.Errorf("allocating inode `%d`: %w", inode.Ino, err)
	}
	if err := md.PersistSuperblock(); err != nil {
		return Inode{}, fmt.Errorf("allocating inode `%d`: %w", inode.Ino, err)
	}

	log.WithFields(log.Fields{
		"ino":      inode.Ino,
		"parent":   parent,
		"name":     name,
		"fileType": fileType,
	}).Debug("allocated inode")
	return inode, nil
}

// FreeInode releases the inode's data blocks and its inode table slot. The
// bitmap bit is cleared and persisted before the record is zeroed.
func (md *Metadata) FreeInode(inode *Inode) error {
	if !md.InodeInUse(inode.Ino) {
		return fmt.Errorf("freeing inode `%d`: %w", inode.Ino, NotFoundErr)
	}

	for _, block := range inode.OwnedBlocks() {
		md.releaseBlock(block)
	}
	md.ClearInodeInBitmap(inode.Ino)
	if err := md.PersistInodeBitmap(); err != nil {
		return fmt.Errorf("freeing inode `%d`: %w", inode.Ino, err)
	}
	if err := zeroInode(md.medium, inode.Ino, &md.superblock); err != nil {
		return fmt.Errorf("freeing inode `%d`: %w", inode.Ino, err)
	}
	if err := md.PersistBlockBitmap(); err != nil {
		return fmt.Errorf("freeing inode `%d`: %w", inode.Ino, err)
	}
	if err := md.PersistSuperblock(); err != nil {
		return fmt.Errorf("freeing inode `%d`: %w", inode.Ino, err)
	}

	log.WithFields(log.Fields{
		"ino":    inode.Ino,
		"blocks": len(inode.OwnedBlocks()),
	}).Debug("freed inode")
	return nil
}

// AllocateBlock reserves the lowest free data block.
func (md *Metadata) AllocateBlock() (Block, error) {
	b, ok := md.blockBitmap.Alloc()
	if !ok {
		return BlockNil, fmt.Errorf(
			"allocating block: all `%d` blocks are in use: %w",
			md.superblock.TotalBlocks,
			NoFreeBlocksErr,
		)
	}
	if err := md.PersistBlockBitmap(); err != nil {
		return BlockNil, fmt.Errorf("allocating block `%d`: %w", b, err)
	}
	if err := md.PersistSuperblock(); err != nil {
		return BlockNil, fmt.Errorf("allocating block `%d`: %w", b, err)
	}
	log.WithField("block", b).Debug("allocated block")
	return Block(b), nil
}

// FreeBlock releases a data block. Freeing a metadata block is a caller bug
// and panics.
func (md *Metadata) FreeBlock(b Block) error {
	md.releaseBlock(b)
	if err := md.PersistBlockBitmap(); err != nil {
		return fmt.Errorf("freeing block `%d`: %w", b, err)
	}
	if err := md.PersistSuperblock(); err != nil {
		return fmt.Errorf("freeing block `%d`: %w", b, err)
	}
	return nil
}

func (md *Metadata) releaseBlock(b Block) {
	if b < md.superblock.FirstDataBlock() {
		panic(fmt.Sprintf(
			"freeing metadata block `%d` (first data block is `%d`)",
			b,
			md.superblock.FirstDataBlock(),
		))
	}
	md.blockBitmap.Free(uint64(b))
}

// ReadBlock reads `len(p)` bytes from the start of data block `b`.
func (md *Metadata) ReadBlock(b Block, p []byte) error {
	if err := md.checkDataBlock(b, len(p)); err != nil {
		return fmt.Errorf("reading block: %w", err)
	}
	if err := md.medium.ReadAll(md.superblock.BlockOffset(b), p); err != nil {
		return fmt.Errorf("reading block `%d`: %w", b, err)
	}
	return nil
}

// WriteBlock writes `p` to the start of data block `b`.
func (md *Metadata) WriteBlock(b Block, p []byte) error {
	if err := md.checkDataBlock(b, len(p)); err != nil {
		return fmt.Errorf("writing block: %w", err)
	}
	if err := md.medium.WriteAll(md.superblock.BlockOffset(b), p); err != nil {
		return fmt.Errorf("writing block `%d`: %w", b, err)
	}
	return nil
}

func (md *Metadata) checkDataBlock(b Block, length int) error {
	if b < md.superblock.FirstDataBlock() || b >= Block(md.superblock.TotalBlocks) {
		return fmt.Errorf(
			"block `%d` is not a data block `[%d, %d)`: %w",
			b,
			md.superblock.FirstDataBlock(),
			md.superblock.TotalBlocks,
			NotFoundErr,
		)
	}
	if Byte(length) > md.superblock.BlockSize() {
		return fmt.Errorf(
			"`%d` bytes exceeds block size `%d`: %w",
			length,
			md.superblock.BlockSize(),
			InvalidGeometryErr,
		)
	}
	return nil
}

// ScanInodes calls `fn` for every in-use inode in ascending ino order and
// stops at the first error.
func (md *Metadata) ScanInodes(fn func(*Inode) error) error {
	for ino := uint32(0); ino < uint32(md.superblock.TotalInodes); ino++ {
		if !md.inodeBitmap.Get(uint64(ino)) {
			continue
		}
		inode, err := LoadInode(md.medium, Ino(ino), &md.superblock)
		if err != nil {
			return fmt.Errorf("scanning inodes: %w", err)
		}
		if err := fn(&inode); err != nil {
			return err
		}
	}
	return nil
}
