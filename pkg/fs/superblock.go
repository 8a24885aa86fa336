package fs

import (
	"fmt"

	"github.com/weberc2/diskfs/pkg/math"
	"github.com/weberc2/diskfs/pkg/medium"
	. "github.com/weberc2/diskfs/pkg/types"
)

const (
	SuperblockOffset Byte  = 0
	SuperblockSize   Byte  = 256
	InodeSize        Byte  = 256
	InodeSizeLog     uint8 = 8
	MinBlockSize     Byte  = 256
	MaxBlockSize     Byte  = 32 * 1024

	maxU16 = 1<<16 - 1
	maxU8  = 1<<8 - 1
)

// Superblock describes the geometry of a filesystem. It lives at the start of
// block 0 and is followed by the inode bitmap, the block bitmap, the inode
// table and finally the data blocks.
type Superblock struct {
	Version               Version
	TotalInodes           uint16
	TotalBlocks           uint16
	FreeInodes            uint16
	FreeBlocks            uint16
	InodeSizeLog          uint8
	BlockSizeLog          uint8
	InodeBitmapBlockCount uint8
	BlockBitmapBlockCount uint8
	InodeStartBlock       uint16
	TotalInodeBlocks      uint16
}

// NewSuperblock derives the geometry of a filesystem of `fsSize` bytes with
// one inode per `bytesPerInode` bytes.
func NewSuperblock(fsSize, blockSize, bytesPerInode Byte) (Superblock, error) {
	invalid := func(format string, v ...interface{}) error {
		return fmt.Errorf(
			"deriving geometry for `%d` bytes, block size `%d`, `%d` bytes "+
				"per inode: %s: %w",
			fsSize,
			blockSize,
			bytesPerInode,
			fmt.Sprintf(format, v...),
			InvalidGeometryErr,
		)
	}

	if !math.IsPowerOfTwo(blockSize) ||
		blockSize < MinBlockSize ||
		blockSize > MaxBlockSize {
		return Superblock{}, invalid(
			"block size must be a power of two between `%d` and `%d`",
			MinBlockSize,
			MaxBlockSize,
		)
	}
	if fsSize <= 0 || bytesPerInode <= 0 {
		return Superblock{}, invalid("sizes must be positive")
	}

	totalInodes := fsSize / bytesPerInode
	totalBlocks := fsSize / blockSize
	if totalInodes < 1 {
		return Superblock{}, invalid("no room for the root inode")
	}
	if totalInodes > maxU16 || totalBlocks > maxU16 {
		return Superblock{}, invalid(
			"`%d` inodes and `%d` blocks exceed the maximum of `%d`",
			totalInodes,
			totalBlocks,
			maxU16,
		)
	}

	inodeBitmapBlocks := bitmapBlockCount(totalInodes, blockSize)
	blockBitmapBlocks := bitmapBlockCount(totalBlocks, blockSize)
	if inodeBitmapBlocks > maxU8 || blockBitmapBlocks > maxU8 {
		return Superblock{}, invalid("bitmaps exceed `%d` blocks", maxU8)
	}

	inodeStart := 1 + inodeBitmapBlocks + blockBitmapBlocks
	inodeBlocks := math.DivRoundUp(totalInodes*InodeSize, blockSize)
	if inodeStart+inodeBlocks > totalBlocks {
		return Superblock{}, invalid(
			"metadata needs `%d` blocks but only `%d` are available",
			inodeStart+inodeBlocks,
			totalBlocks,
		)
	}

	return Superblock{
		Version:               LatestVersion,
		TotalInodes:           uint16(totalInodes),
		TotalBlocks:           uint16(totalBlocks),
		FreeInodes:            uint16(totalInodes),
		FreeBlocks:            uint16(totalBlocks),
		InodeSizeLog:          InodeSizeLog,
		BlockSizeLog:          math.Log2(blockSize),
		InodeBitmapBlockCount: uint8(inodeBitmapBlocks),
		BlockBitmapBlockCount: uint8(blockBitmapBlocks),
		InodeStartBlock:       uint16(inodeStart),
		TotalInodeBlocks:      uint16(inodeBlocks),
	}, nil
}

func bitmapBlockCount(bits, blockSize Byte) Byte {
	return math.Max(1, math.DivRoundUp(math.DivRoundUp(bits, 8), blockSize))
}

func (sb *Superblock) BlockSize() Byte { return Byte(1) << sb.BlockSizeLog }

func (sb *Superblock) InodeBitmapStart() Block { return 1 }

func (sb *Superblock) BlockBitmapStart() Block {
	return sb.InodeBitmapStart() + Block(sb.InodeBitmapBlockCount)
}

// FirstDataBlock is the first block following the inode table.
func (sb *Superblock) FirstDataBlock() Block {
	return Block(sb.InodeStartBlock) + Block(sb.TotalInodeBlocks)
}

func (sb *Superblock) BlockOffset(block Block) Byte {
	return Byte(block) * sb.BlockSize()
}

func (sb *Superblock) InodeOffset(ino Ino) Byte {
	return sb.BlockOffset(Block(sb.InodeStartBlock)) + Byte(ino)*InodeSize
}

// Size is the number of bytes covered by the filesystem's blocks.
func (sb *Superblock) Size() Byte {
	return Byte(sb.TotalBlocks) * sb.BlockSize()
}

func (sb *Superblock) Persist(m medium.WriteAll) error {
	var buf [SuperblockSize]byte
	EncodeSuperblock(sb, &buf)
	if err := m.WriteAll(SuperblockOffset, buf[:]); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}

func ReadSuperblock(m medium.ReadAll) (Superblock, error) {
	var buf [SuperblockSize]byte
	if err := m.ReadAll(SuperblockOffset, buf[:]); err != nil {
		return Superblock{}, fmt.Errorf("reading superblock: %w", err)
	}
	var sb Superblock
	if err := DecodeSuperblock(&sb, &buf); err != nil {
		return Superblock{}, fmt.Errorf("reading superblock: %w", err)
	}
	return sb, nil
}

// Validate checks the invariants that every decoded superblock must satisfy.
func (sb *Superblock) Validate() error {
	corrupt := func(format string, v ...interface{}) error {
		return fmt.Errorf(
			"validating superblock: %s: %w",
			fmt.Sprintf(format, v...),
			CorruptLayoutErr,
		)
	}

	if !sb.Version.Supported() {
		return fmt.Errorf(
			"validating superblock: version `%s`: %w: %w",
			sb.Version,
			UnsupportedVersionErr,
			CorruptLayoutErr,
		)
	}
	if sb.InodeSizeLog != InodeSizeLog {
		return corrupt("inode size log `%d`", sb.InodeSizeLog)
	}
	if blockSize := sb.BlockSize(); sb.BlockSizeLog > 15 ||
		blockSize < MinBlockSize {
		return corrupt("block size log `%d`", sb.BlockSizeLog)
	}
	if sb.InodeBitmapBlockCount < 1 || sb.BlockBitmapBlockCount < 1 {
		return corrupt(
			"bitmap block counts `%d` and `%d`",
			sb.InodeBitmapBlockCount,
			sb.BlockBitmapBlockCount,
		)
	}
	if wanted := 1 + uint16(sb.InodeBitmapBlockCount) +
		uint16(sb.BlockBitmapBlockCount); sb.InodeStartBlock != wanted {
		return corrupt(
			"inode start block `%d`; wanted `%d`",
			sb.InodeStartBlock,
			wanted,
		)
	}
	if sb.TotalInodes < 1 {
		return corrupt("no inodes")
	}
	if Byte(sb.TotalInodeBlocks)*sb.BlockSize() <
		Byte(sb.TotalInodes)*InodeSize {
		return corrupt(
			"`%d` inode blocks cannot hold `%d` inodes",
			sb.TotalInodeBlocks,
			sb.TotalInodes,
		)
	}
	if firstData := uint32(sb.InodeStartBlock) +
		uint32(sb.TotalInodeBlocks); firstData > uint32(sb.TotalBlocks) {
		return corrupt(
			"first data block `%d` is past the last block `%d`",
			firstData,
			sb.TotalBlocks,
		)
	}
	if sb.FreeInodes > sb.TotalInodes || sb.FreeBlocks > sb.TotalBlocks {
		return corrupt(
			"free counters `%d`/`%d` exceed totals `%d`/`%d`",
			sb.FreeInodes,
			sb.FreeBlocks,
			sb.TotalInodes,
			sb.TotalBlocks,
		)
	}
	return nil
}
