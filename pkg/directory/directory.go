package directory

import (
	"fmt"

	"github.com/weberc2/diskfs/pkg/fs"
	. "github.com/weberc2/diskfs/pkg/types"
)

// RootName is the name stored in the root directory's inode.
const RootName = "/"

// Directory is a directory inode together with the metadata and index it
// was loaded from. It holds no state of its own beyond the inode.
type Directory struct {
	md    *fs.Metadata
	index *Index
	inode fs.Inode
}

// CreateRoot allocates the root directory. It must be the first inode
// allocated on a new filesystem.
func CreateRoot(md *fs.Metadata, index *Index) (Directory, error) {
	inode, err := md.AllocateInode(InoRoot, RootName, FileTypeDir)
	if err != nil {
		return Directory{}, fmt.Errorf("creating root directory: %w", err)
	}
	if inode.Ino != InoRoot {
		return Directory{}, fmt.Errorf(
			"creating root directory: allocated ino `%d`: %w",
			inode.Ino,
			CorruptLayoutErr,
		)
	}
	return Directory{md: md, index: index, inode: inode}, nil
}

func Open(md *fs.Metadata, index *Index, ino Ino) (Directory, error) {
	inode, err := md.LoadInode(ino)
	if err != nil {
		return Directory{}, fmt.Errorf("opening directory `%d`: %w", ino, err)
	}
	if !inode.IsDir() {
		return Directory{}, fmt.Errorf(
			"opening directory `%d`: %w",
			ino,
			NotADirErr,
		)
	}
	return Directory{md: md, index: index, inode: inode}, nil
}

func (d *Directory) Ino() Ino { return d.inode.Ino }

func (d *Directory) Name() string { return d.inode.Name }

func (d *Directory) Parent() Ino { return d.inode.Parent }

func (d *Directory) Inode() fs.Inode { return d.inode }

func (d *Directory) Info() FileInfo { return infoFromInode(&d.inode) }

func (d *Directory) IsRoot() bool { return d.inode.Ino == InoRoot }

func (d *Directory) Lookup(name string) (FileInfo, error) {
	info, found := d.index.Lookup(d.inode.Ino, name)
	if !found {
		return FileInfo{}, fmt.Errorf(
			"looking up `%s` in dir `%d`: %w",
			name,
			d.inode.Ino,
			NotFoundErr,
		)
	}
	return info, nil
}

// List returns the directory's children ordered by name.
func (d *Directory) List() []FileInfo {
	return d.index.Children(d.inode.Ino)
}

func (d *Directory) IsEmpty() bool {
	return !d.index.HasChildren(d.inode.Ino)
}

// CreateChild allocates a new entry named `name` in the directory.
func (d *Directory) CreateChild(name string, fileType FileType) (fs.Inode, error) {
	if err := ValidateName(name); err != nil {
		return fs.Inode{}, fmt.Errorf(
			"creating `%s` in dir `%d`: %w",
			name,
			d.inode.Ino,
			err,
		)
	}
	if _, found := d.index.Lookup(d.inode.Ino, name); found {
		return fs.Inode{}, fmt.Errorf(
			"creating `%s` in dir `%d`: %w",
			name,
			d.inode.Ino,
			AlreadyExistsErr,
		)
	}

	inode, err := d.md.AllocateInode(d.inode.Ino, name, fileType)
	if err != nil {
		return fs.Inode{}, fmt.Errorf(
			"creating `%s` in dir `%d`: %w",
			name,
			d.inode.Ino,
			err,
		)
	}
	d.index.Insert(infoFromInode(&inode))
	return inode, nil
}

func (d *Directory) Mkdir(name string) (Directory, error) {
	inode, err := d.CreateChild(name, FileTypeDir)
	if err != nil {
		return Directory{}, err
	}
	return Directory{md: d.md, index: d.index, inode: inode}, nil
}

// Remove deletes the child named `name`. Regular files give up their data
// blocks; directories must be empty.
func (d *Directory) Remove(name string) error {
	info, err := d.Lookup(name)
	if err != nil {
		return fmt.Errorf("removing: %w", err)
	}
	if info.IsDir() && d.index.HasChildren(info.Ino) {
		return fmt.Errorf(
			"removing `%s` from dir `%d`: %w",
			name,
			d.inode.Ino,
			DirNotEmptyErr,
		)
	}

	inode, err := d.md.LoadInode(info.Ino)
	if err != nil {
		return fmt.Errorf(
			"removing `%s` from dir `%d`: %w",
			name,
			d.inode.Ino,
			err,
		)
	}
	if err := d.md.FreeInode(&inode); err != nil {
		return fmt.Errorf(
			"removing `%s` from dir `%d`: %w",
			name,
			d.inode.Ino,
			err,
		)
	}
	d.index.Delete(d.inode.Ino, name)
	return nil
}
