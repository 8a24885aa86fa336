package fs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	. "github.com/weberc2/diskfs/pkg/types"
)

// DecodeSuperblock populates `sb` from `p` and validates the result.
func DecodeSuperblock(sb *Superblock, p *[SuperblockSize]byte) error {
	*sb = Superblock{
		TotalInodes:           getSuperblockU16(p, superblockFieldTotalInodes),
		TotalBlocks:           getSuperblockU16(p, superblockFieldTotalBlocks),
		FreeInodes:            getSuperblockU16(p, superblockFieldFreeInodes),
		FreeBlocks:            getSuperblockU16(p, superblockFieldFreeBlocks),
		InodeSizeLog:          p[superblockFieldOffsets[superblockFieldInodeSizeLog]],
		BlockSizeLog:          p[superblockFieldOffsets[superblockFieldBlockSizeLog]],
		InodeBitmapBlockCount: p[superblockFieldOffsets[superblockFieldInodeBitmapBlockCount]],
		BlockBitmapBlockCount: p[superblockFieldOffsets[superblockFieldBlockBitmapBlockCount]],
		InodeStartBlock:       getSuperblockU16(p, superblockFieldInodeStartBlock),
		TotalInodeBlocks:      getSuperblockU16(p, superblockFieldTotalInodeBlocks),
	}
	copy(sb.Version[:], p[superblockFieldOffsets[superblockFieldVersion]:])
	if err := sb.Validate(); err != nil {
		return fmt.Errorf("decoding superblock: %w", err)
	}
	return nil
}

// DecodeInode populates `inode` from `buf`.
func DecodeInode(inode *Inode, buf *[InodeSize]byte) error {
	p := buf[:]
	nameOffset := inodeFieldOffsets[inodeFieldName]
	name := p[nameOffset : nameOffset+MaxNameLen]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}

	*inode = Inode{
		Ino:        Ino(decodeU16(p, inodeFieldIno)),
		Parent:     Ino(decodeU16(p, inodeFieldParent)),
		Name:       string(name),
		SlotBitmap: decodeU32(p, inodeFieldSlotBitmap),
		FileType:   FileType(p[inodeFieldOffsets[inodeFieldFileType]]),
		FileSize:   decodeU32(p, inodeFieldFileSize),
	}

	dataBlocksOffset := inodeFieldOffsets[inodeFieldDataBlocks]
	for i := range inode.DataBlocks {
		inode.DataBlocks[i] = Block(getU16(p[dataBlocksOffset+Byte(i)*2:]))
	}

	if err := inode.FileType.Validate(); err != nil {
		return fmt.Errorf(
			"decoding inode `%d`: %v: %w",
			inode.Ino,
			err,
			CorruptLayoutErr,
		)
	}
	return nil
}

func getSuperblockU16(p *[SuperblockSize]byte, field superblockField) uint16 {
	return getU16(p[superblockFieldOffsets[field]:])
}

func decodeU16(p []byte, field inodeField) uint16 {
	return getU16(p[inodeFieldOffsets[field]:])
}

func decodeU32(p []byte, field inodeField) uint32 {
	return getU32(p[inodeFieldOffsets[field]:])
}

func getU16(p []byte) uint16 { return binary.LittleEndian.Uint16(p) }

func getU32(p []byte) uint32 { return binary.LittleEndian.Uint32(p) }
