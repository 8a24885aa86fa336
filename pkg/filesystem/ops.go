package filesystem

import (
	"errors"
	"fmt"

	"github.com/weberc2/diskfs/pkg/file"
	. "github.com/weberc2/diskfs/pkg/types"
)

// Cwd returns the absolute path of the working directory.
func (fsys *FileSystem) Cwd() (string, error) { return fsys.PathOf(fsys.cwd) }

func (fsys *FileSystem) CwdIno() Ino { return fsys.cwd }

// Chdir changes the working directory. `..` is supported.
func (fsys *FileSystem) Chdir(path string) error {
	info, err := fsys.resolve(path)
	if err != nil {
		return fmt.Errorf("changing directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("changing directory to `%s`: %w", path, NotADirErr)
	}
	fsys.cwd = info.Ino
	return nil
}

func (fsys *FileSystem) Mkdir(path string) (FileInfo, error) {
	return fsys.create(path, FileTypeDir)
}

// MkdirAll creates `path` and any missing parents.
func (fsys *FileSystem) MkdirAll(path string) (FileInfo, error) {
	current := "."
	if len(path) > 0 && path[0] == '/' {
		current = ""
	}
	var info FileInfo
	for _, chunk := range split(path) {
		current += "/" + chunk
		found, err := fsys.resolve(current)
		switch {
		case err == nil:
			if !found.IsDir() {
				return FileInfo{}, fmt.Errorf(
					"making directories `%s`: `%s`: %w",
					path,
					current,
					NotADirErr,
				)
			}
			info = found
		case errors.Is(err, NotFoundErr):
			if info, err = fsys.Mkdir(current); err != nil {
				return FileInfo{}, err
			}
		default:
			return FileInfo{}, fmt.Errorf("making directories: %w", err)
		}
	}
	if info.Name == "" {
		return fsys.resolve(path)
	}
	return info, nil
}

// Create makes a new empty file. It fails if `path` already exists.
func (fsys *FileSystem) Create(path string) (FileInfo, error) {
	return fsys.create(path, FileTypeFile)
}

// Touch creates an empty file unless a regular file already exists at
// `path`.
func (fsys *FileSystem) Touch(path string) (FileInfo, error) {
	info, err := fsys.resolve(path)
	if err == nil {
		if info.IsDir() {
			return FileInfo{}, fmt.Errorf("touching `%s`: %w", path, AlreadyExistsErr)
		}
		return info, nil
	}
	if !errors.Is(err, NotFoundErr) {
		return FileInfo{}, fmt.Errorf("touching: %w", err)
	}
	return fsys.Create(path)
}

func (fsys *FileSystem) create(path string, fileType FileType) (FileInfo, error) {
	d, name, err := fsys.resolveParent(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("creating %s: %w", fileType, err)
	}
	inode, err := d.CreateChild(name, fileType)
	if err != nil {
		return FileInfo{}, fmt.Errorf("creating %s `%s`: %w", fileType, path, err)
	}
	return FileInfo{
		Ino:      inode.Ino,
		Parent:   inode.Parent,
		Name:     inode.Name,
		FileType: inode.FileType,
	}, nil
}

// List returns the children of the directory at `path`, ordered by name.
func (fsys *FileSystem) List(path string) ([]FileInfo, error) {
	info, err := fsys.resolve(path)
	if err != nil {
		return nil, fmt.Errorf("listing: %w", err)
	}
	d, err := fsys.dir(info.Ino)
	if err != nil {
		return nil, fmt.Errorf("listing `%s`: %w", path, err)
	}
	return d.List(), nil
}

// Remove deletes the file or empty directory at `path`. The root and the
// working directory cannot be removed.
func (fsys *FileSystem) Remove(path string) error {
	info, err := fsys.resolve(path)
	if err != nil {
		return fmt.Errorf("removing: %w", err)
	}
	if info.Ino == InoRoot {
		return fmt.Errorf("removing `%s`: root: %w", path, InvalidNameErr)
	}
	if info.Ino == fsys.cwd {
		return fmt.Errorf(
			"removing `%s`: working directory: %w",
			path,
			InvalidNameErr,
		)
	}
	d, err := fsys.dir(info.Parent)
	if err != nil {
		return fmt.Errorf("removing `%s`: %w", path, err)
	}
	if err := d.Remove(info.Name); err != nil {
		return fmt.Errorf("removing `%s`: %w", path, err)
	}
	return nil
}

func (fsys *FileSystem) open(path string) (file.File, error) {
	info, err := fsys.resolve(path)
	if err != nil {
		return file.File{}, err
	}
	return file.Open(fsys.md, info.Ino)
}

// WriteFile replaces the content of the file at `path`, creating it first
// if necessary.
func (fsys *FileSystem) WriteFile(path string, data []byte) error {
	if _, err := fsys.Touch(path); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	f, err := fsys.open(path)
	if err != nil {
		return fmt.Errorf("writing file `%s`: %w", path, err)
	}
	if err := f.Replace(data); err != nil {
		return fmt.Errorf("writing file `%s`: %w", path, err)
	}
	return nil
}

// AppendFile appends `data` to the file at `path`, creating it first if
// necessary.
func (fsys *FileSystem) AppendFile(path string, data []byte) error {
	if _, err := fsys.Touch(path); err != nil {
		return fmt.Errorf("appending to file: %w", err)
	}
	f, err := fsys.open(path)
	if err != nil {
		return fmt.Errorf("appending to file `%s`: %w", path, err)
	}
	if _, err := f.Write(f.Size(), data); err != nil {
		return fmt.Errorf("appending to file `%s`: %w", path, err)
	}
	return nil
}

func (fsys *FileSystem) ReadFile(path string) ([]byte, error) {
	f, err := fsys.open(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	data, err := f.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading file `%s`: %w", path, err)
	}
	return data, nil
}

// ReadFileIno reads the whole content of the regular file `ino`.
func (fsys *FileSystem) ReadFileIno(ino Ino) ([]byte, error) {
	f, err := file.Open(fsys.md, ino)
	if err != nil {
		return nil, err
	}
	return f.ReadAll()
}

// Stat describes a single entry.
type Stat struct {
	FileInfo
	Path   string  `json:"path"`
	Size   Byte    `json:"size"`
	Blocks []Block `json:"blocks"`
}

func (fsys *FileSystem) Stat(path string) (Stat, error) {
	info, err := fsys.resolve(path)
	if err != nil {
		return Stat{}, fmt.Errorf("stat: %w", err)
	}
	return fsys.StatIno(info.Ino)
}

func (fsys *FileSystem) StatIno(ino Ino) (Stat, error) {
	inode, err := fsys.md.LoadInode(ino)
	if err != nil {
		return Stat{}, fmt.Errorf("stat `%d`: %w", ino, err)
	}
	path, err := fsys.PathOf(ino)
	if err != nil {
		return Stat{}, fmt.Errorf("stat `%d`: %w", ino, err)
	}
	blocks := inode.OwnedBlocks()
	if blocks == nil {
		blocks = []Block{}
	}
	return Stat{
		FileInfo: FileInfo{
			Ino:      inode.Ino,
			Parent:   inode.Parent,
			Name:     inode.Name,
			FileType: inode.FileType,
		},
		Path:   path,
		Size:   Byte(inode.FileSize),
		Blocks: blocks,
	}, nil
}

// Children lists the directory `ino`.
func (fsys *FileSystem) Children(ino Ino) ([]FileInfo, error) {
	d, err := fsys.dir(ino)
	if err != nil {
		return nil, err
	}
	return d.List(), nil
}
