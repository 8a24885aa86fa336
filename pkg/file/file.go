package file

import (
	"fmt"
	"io"

	"github.com/weberc2/diskfs/pkg/fs"
	"github.com/weberc2/diskfs/pkg/math"
	. "github.com/weberc2/diskfs/pkg/types"
)

// File is a regular file inode. Its content lives in the inode's direct
// blocks; slots that were never written read as zeros.
type File struct {
	md    *fs.Metadata
	inode fs.Inode
}

func Open(md *fs.Metadata, ino Ino) (File, error) {
	inode, err := md.LoadInode(ino)
	if err != nil {
		return File{}, fmt.Errorf(
			"opening inode `%d` as regular file: %w",
			ino,
			err,
		)
	}
	if inode.FileType != FileTypeFile {
		return File{}, fmt.Errorf(
			"opening inode `%d` as regular file: %w",
			ino,
			NotARegularFileErr,
		)
	}
	return File{md: md, inode: inode}, nil
}

// MaxSize is the largest file the direct pointer table can address.
func MaxSize(sb *fs.Superblock) Byte {
	return fs.DirectBlocksPerInode * sb.BlockSize()
}

func (f *File) Ino() Ino { return f.inode.Ino }

func (f *File) Inode() fs.Inode { return f.inode }

func (f *File) Size() Byte { return Byte(f.inode.FileSize) }

// Read reads up to `len(p)` bytes starting at `offset`. It returns io.EOF
// when fewer bytes remain.
func (f *File) Read(offset Byte, p []byte) (Byte, error) {
	if offset < 0 {
		return 0, fmt.Errorf(
			"reading file `%d` at `%d`: %w",
			f.inode.Ino,
			offset,
			InvalidOffsetErr,
		)
	}
	size := f.Size()
	if offset >= size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	n := math.Min(Byte(len(p)), size-offset)
	sb := f.md.Superblock()
	blockSize := sb.BlockSize()
	buf := make([]byte, blockSize)
	for done := Byte(0); done < n; {
		pos := offset + done
		slot := int(pos / blockSize)
		start := pos % blockSize
		chunk := math.Min(blockSize-start, n-done)

		if f.inode.SlotInUse(slot) {
			if err := f.md.ReadBlock(f.inode.DataBlocks[slot], buf); err != nil {
				return done, fmt.Errorf(
					"reading data from file `%d`: %w",
					f.inode.Ino,
					err,
				)
			}
			copy(p[done:done+chunk], buf[start:start+chunk])
		} else {
			zero(p[done : done+chunk])
		}
		done += chunk
	}

	if n < Byte(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

// ReadAll returns the whole content of the file.
func (f *File) ReadAll() ([]byte, error) {
	p := make([]byte, f.Size())
	if _, err := f.Read(0, p); err != nil && err != io.EOF {
		return nil, err
	}
	return p, nil
}

// Write writes `p` at `offset`, allocating blocks as needed and growing the
// file. Writes past MaxSize fail with FileTooLargeErr before anything is
// written.
func (f *File) Write(offset Byte, p []byte) (Byte, error) {
	sb := f.md.Superblock()
	end := offset + Byte(len(p))
	if offset < 0 || end > MaxSize(&sb) {
		return 0, fmt.Errorf(
			"writing `%d` bytes at `%d` to file `%d`: max size is `%d`: %w",
			len(p),
			offset,
			f.inode.Ino,
			MaxSize(&sb),
			FileTooLargeErr,
		)
	}

	blockSize := sb.BlockSize()
	buf := make([]byte, blockSize)
	var done Byte
	for done < Byte(len(p)) {
		pos := offset + done
		slot := int(pos / blockSize)
		start := pos % blockSize
		chunk := math.Min(blockSize-start, Byte(len(p))-done)

		if err := f.loadSlot(slot, buf); err != nil {
			return done, f.abortWrite(offset+done, err)
		}
		copy(buf[start:start+chunk], p[done:done+chunk])
		if err := f.md.WriteBlock(f.inode.DataBlocks[slot], buf); err != nil {
			return done, f.abortWrite(offset+done, err)
		}
		done += chunk
	}

	if end > f.Size() {
		f.inode.FileSize = uint32(end)
	}
	if err := f.md.PersistInode(&f.inode); err != nil {
		return done, fmt.Errorf("writing to file `%d`: %w", f.inode.Ino, err)
	}
	return done, nil
}

// loadSlot reads the block behind `slot` into `buf`, allocating a zeroed
// block when the slot is unused.
func (f *File) loadSlot(slot int, buf []byte) error {
	if f.inode.SlotInUse(slot) {
		return f.md.ReadBlock(f.inode.DataBlocks[slot], buf)
	}
	b, err := f.md.AllocateBlock()
	if err != nil {
		return err
	}
	f.inode.SetSlot(slot, b)
	zero(buf)
	return nil
}

// abortWrite persists any blocks allocated so far so they stay owned by the
// inode rather than leaking, then reports `err`.
func (f *File) abortWrite(pos Byte, err error) error {
	if pos > f.Size() {
		f.inode.FileSize = uint32(pos)
	}
	if perr := f.md.PersistInode(&f.inode); perr != nil {
		return fmt.Errorf(
			"writing to file `%d` at `%d`: %w (persisting inode: %v)",
			f.inode.Ino,
			pos,
			err,
			perr,
		)
	}
	return fmt.Errorf("writing to file `%d` at `%d`: %w", f.inode.Ino, pos, err)
}

// Truncate sets the file size, releasing blocks which lie wholly past the
// new end and zeroing the remainder of the last block.
func (f *File) Truncate(size Byte) error {
	sb := f.md.Superblock()
	if size < 0 || size > MaxSize(&sb) {
		return fmt.Errorf(
			"truncating file `%d` to `%d`: %w",
			f.inode.Ino,
			size,
			FileTooLargeErr,
		)
	}

	blockSize := sb.BlockSize()
	keep := int(math.DivRoundUp(size, blockSize))
	for slot := keep; slot < fs.DirectBlocksPerInode; slot++ {
		if !f.inode.SlotInUse(slot) {
			continue
		}
		b := f.inode.DataBlocks[slot]
		f.inode.ClearSlot(slot)
		if err := f.md.FreeBlock(b); err != nil {
			return fmt.Errorf("truncating file `%d`: %w", f.inode.Ino, err)
		}
	}

	if tail := size % blockSize; tail != 0 && f.inode.SlotInUse(keep-1) {
		buf := make([]byte, blockSize)
		b := f.inode.DataBlocks[keep-1]
		if err := f.md.ReadBlock(b, buf); err != nil {
			return fmt.Errorf("truncating file `%d`: %w", f.inode.Ino, err)
		}
		zero(buf[tail:])
		if err := f.md.WriteBlock(b, buf); err != nil {
			return fmt.Errorf("truncating file `%d`: %w", f.inode.Ino, err)
		}
	}

	f.inode.FileSize = uint32(size)
	if err := f.md.PersistInode(&f.inode); err != nil {
		return fmt.Errorf("truncating file `%d`: %w", f.inode.Ino, err)
	}
	return nil
}

// Replace overwrites the whole content of the file with `p`.
func (f *File) Replace(p []byte) error {
	sb := f.md.Superblock()
	if Byte(len(p)) > MaxSize(&sb) {
		return fmt.Errorf(
			"replacing content of file `%d` with `%d` bytes: %w",
			f.inode.Ino,
			len(p),
			FileTooLargeErr,
		)
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Write(0, p); err != nil {
		return err
	}
	return nil
}

func zero(p []byte) {
	for i := range p {
		p[i] = 0
	}
}
