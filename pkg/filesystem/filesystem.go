// Package filesystem is the entry point for working with a disk image: it
// creates or loads the metadata, maintains the directory index and resolves
// paths relative to a current working directory.
package filesystem

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/weberc2/diskfs/pkg/directory"
	"github.com/weberc2/diskfs/pkg/fs"
	"github.com/weberc2/diskfs/pkg/medium"
	. "github.com/weberc2/diskfs/pkg/types"
)

type FileInfo = directory.FileInfo

type FileSystem struct {
	md    *fs.Metadata
	index *directory.Index
	cwd   Ino
}

// New lays out a fresh filesystem on `m` and creates the root directory.
func New(
	m medium.Medium,
	totalSize Byte,
	blockSize Byte,
	bytesPerInode Byte,
) (*FileSystem, error) {
	md, err := fs.CreateMetadata(m, totalSize, blockSize, bytesPerInode)
	if err != nil {
		return nil, fmt.Errorf("creating filesystem: %w", err)
	}
	index := directory.NewIndex()
	if _, err := directory.CreateRoot(md, index); err != nil {
		return nil, fmt.Errorf("creating filesystem: %w", err)
	}
	log.WithFields(log.Fields{
		"size":          totalSize,
		"blockSize":     blockSize,
		"bytesPerInode": bytesPerInode,
	}).Info("created filesystem")
	return &FileSystem{md: md, index: index, cwd: InoRoot}, nil
}

// Load opens an existing filesystem on `m`.
func Load(m medium.Medium) (*FileSystem, error) {
	md, err := fs.FetchMetadata(m)
	if err != nil {
		return nil, fmt.Errorf("loading filesystem: %w", err)
	}
	if _, err := directory.Open(md, nil, InoRoot); err != nil {
		return nil, fmt.Errorf("loading filesystem: root: %w", err)
	}
	index, err := directory.BuildIndex(md)
	if err != nil {
		return nil, fmt.Errorf("loading filesystem: %w", err)
	}
	sb := md.Superblock()
	log.WithFields(log.Fields{
		"version":    sb.Version.String(),
		"inodesUsed": sb.TotalInodes - sb.FreeInodes,
		"blocksUsed": sb.TotalBlocks - sb.FreeBlocks,
	}).Debug("loaded filesystem")
	return &FileSystem{md: md, index: index, cwd: InoRoot}, nil
}

// Close syncs and closes the medium if it supports either.
func (fsys *FileSystem) Close() error {
	m := fsys.md.Medium()
	if syncer, ok := m.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return fmt.Errorf("closing filesystem: syncing medium: %w", err)
		}
	}
	if closer, ok := m.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("closing filesystem: closing medium: %w", err)
		}
	}
	return nil
}

func (fsys *FileSystem) Metadata() *fs.Metadata { return fsys.md }

func (fsys *FileSystem) Superblock() fs.Superblock {
	return fsys.md.Superblock()
}

func (fsys *FileSystem) dir(ino Ino) (directory.Directory, error) {
	return directory.Open(fsys.md, fsys.index, ino)
}

// Root returns the root directory.
func (fsys *FileSystem) Root() (directory.Directory, error) {
	return fsys.dir(InoRoot)
}
