package fs

import (
	"encoding/binary"

	. "github.com/weberc2/diskfs/pkg/types"
)

type superblockField uint8

const (
	superblockFieldVersion superblockField = iota
	superblockFieldTotalInodes
	superblockFieldTotalBlocks
	superblockFieldFreeInodes
	superblockFieldFreeBlocks
	superblockFieldInodeSizeLog
	superblockFieldBlockSizeLog
	superblockFieldInodeBitmapBlockCount
	superblockFieldBlockBitmapBlockCount
	superblockFieldInodeStartBlock
	superblockFieldTotalInodeBlocks
	superblockFieldCount
)

var (
	superblockFieldSizes = [superblockFieldCount]Byte{
		superblockFieldVersion:               3,
		superblockFieldTotalInodes:           2,
		superblockFieldTotalBlocks:           2,
		superblockFieldFreeInodes:            2,
		superblockFieldFreeBlocks:            2,
		superblockFieldInodeSizeLog:          1,
		superblockFieldBlockSizeLog:          1,
		superblockFieldInodeBitmapBlockCount: 1,
		superblockFieldBlockBitmapBlockCount: 1,
		superblockFieldInodeStartBlock:       2,
		superblockFieldTotalInodeBlocks:      2,
	}
	superblockFieldOffsets [superblockFieldCount]Byte
)

type inodeField uint8

const (
	inodeFieldIno inodeField = iota
	inodeFieldParent
	inodeFieldName
	inodeFieldDataBlocks
	inodeFieldSlotBitmap
	inodeFieldFileType
	inodeFieldFileSize
	inodeFieldCount
)

var (
	inodeFieldSizes = [inodeFieldCount]Byte{
		inodeFieldIno:        2,
		inodeFieldParent:     2,
		inodeFieldName:       MaxNameLen,
		inodeFieldDataBlocks: DirectBlocksPerInode * 2,
		inodeFieldSlotBitmap: 4,
		inodeFieldFileType:   1,
		inodeFieldFileSize:   4,
	}
	inodeFieldOffsets [inodeFieldCount]Byte
)

func init() {
	var offset Byte
	for field, size := range superblockFieldSizes {
		superblockFieldOffsets[field] = offset
		offset += size
	}
	if offset > SuperblockSize {
		panic("superblock fields exceed the superblock record size")
	}

	offset = 0
	for field, size := range inodeFieldSizes {
		inodeFieldOffsets[field] = offset
		offset += size
	}
	if offset > InodeSize {
		panic("inode fields exceed the inode record size")
	}
}

// EncodeSuperblock writes `sb` into `p`. Bytes past the last field are
// zeroed.
func EncodeSuperblock(sb *Superblock, p *[SuperblockSize]byte) {
	*p = [SuperblockSize]byte{}
	copy(p[superblockFieldOffsets[superblockFieldVersion]:], sb.Version[:])
	putSuperblockU16(p, superblockFieldTotalInodes, sb.TotalInodes)
	putSuperblockU16(p, superblockFieldTotalBlocks, sb.TotalBlocks)
	putSuperblockU16(p, superblockFieldFreeInodes, sb.FreeInodes)
	putSuperblockU16(p, superblockFieldFreeBlocks, sb.FreeBlocks)
	p[superblockFieldOffsets[superblockFieldInodeSizeLog]] = sb.InodeSizeLog
	p[superblockFieldOffsets[superblockFieldBlockSizeLog]] = sb.BlockSizeLog
	p[superblockFieldOffsets[superblockFieldInodeBitmapBlockCount]] =
		sb.InodeBitmapBlockCount
	p[superblockFieldOffsets[superblockFieldBlockBitmapBlockCount]] =
		sb.BlockBitmapBlockCount
	putSuperblockU16(p, superblockFieldInodeStartBlock, sb.InodeStartBlock)
	putSuperblockU16(p, superblockFieldTotalInodeBlocks, sb.TotalInodeBlocks)
}

// EncodeInode writes `inode` into `buf`. Names longer than MaxNameLen are
// truncated; callers are expected to have rejected them already.
func EncodeInode(inode *Inode, buf *[InodeSize]byte) {
	*buf = [InodeSize]byte{}
	p := buf[:]
	encodeU16(p, inodeFieldIno, uint16(inode.Ino))
	encodeU16(p, inodeFieldParent, uint16(inode.Parent))

	nameOffset := inodeFieldOffsets[inodeFieldName]
	copy(p[nameOffset:nameOffset+MaxNameLen], inode.Name)

	dataBlocksOffset := inodeFieldOffsets[inodeFieldDataBlocks]
	for i, block := range inode.DataBlocks {
		putU16(p[dataBlocksOffset+Byte(i)*2:], uint16(block))
	}

	encodeU32(p, inodeFieldSlotBitmap, inode.SlotBitmap)
	p[inodeFieldOffsets[inodeFieldFileType]] = byte(inode.FileType)
	encodeU32(p, inodeFieldFileSize, inode.FileSize)
}

func putSuperblockU16(
	p *[SuperblockSize]byte,
	field superblockField,
	u uint16,
) {
	putU16(p[superblockFieldOffsets[field]:], u)
}

func encodeU16(p []byte, field inodeField, u uint16) {
	putU16(p[inodeFieldOffsets[field]:], u)
}

func encodeU32(p []byte, field inodeField, u uint32) {
	putU32(p[inodeFieldOffsets[field]:], u)
}

func putU16(p []byte, u uint16) {
	binary.LittleEndian.PutUint16(p, u)
}

func putU32(p []byte, u uint32) {
	binary.LittleEndian.PutUint32(p, u)
}
