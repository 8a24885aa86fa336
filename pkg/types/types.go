package types

import "fmt"

// Byte is a count of bytes or a byte offset into a medium.
type Byte int64

// Block is an on-disk block number. Block 0 is always the superblock.
type Block uint16

// Ino is an inode number: an index into both the inode table and the inode
// bitmap. Ino 0 is the root directory.
type Ino uint16

const (
	InoRoot Ino = 0

	// BlockNil marks an unused direct pointer slot. Block 0 holds the
	// superblock so it can never be owned by an inode.
	BlockNil Block = 0
)

type FileType uint8

const (
	FileTypeFile FileType = iota
	FileTypeDir
)

func (ft FileType) String() string {
	switch ft {
	case FileTypeFile:
		return "File"
	case FileTypeDir:
		return "Dir"
	default:
		return fmt.Sprintf("FileType(%d)", uint8(ft))
	}
}

func (ft FileType) MarshalJSON() ([]byte, error) {
	s := ft.String()
	out := make([]byte, len(s)+2)
	out[0] = '"'
	out[len(out)-1] = '"'
	copy(out[1:], s)
	return out, nil
}

func (ft FileType) Validate() error {
	if ft > FileTypeDir {
		return fmt.Errorf(
			"validating file type `%d`: %w",
			ft,
			InvalidFileTypeErr,
		)
	}
	return nil
}
