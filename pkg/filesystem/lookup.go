package filesystem

import (
	"fmt"
	"strings"

	"github.com/weberc2/diskfs/pkg/directory"
	. "github.com/weberc2/diskfs/pkg/types"
)

// split breaks `path` into its non-empty components.
func split(path string) []string {
	var chunks []string
	for _, chunk := range strings.Split(path, "/") {
		if chunk != "" && chunk != "." {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// resolve walks `path` from the root when it is absolute and from the
// working directory otherwise. `..` at the root stays at the root.
func (fsys *FileSystem) resolve(path string) (FileInfo, error) {
	if path == "" {
		return FileInfo{}, fmt.Errorf(
			"resolving path ``: %w",
			InvalidNameErr,
		)
	}

	start := fsys.cwd
	if path[0] == '/' {
		start = InoRoot
	}
	current, err := fsys.dir(start)
	if err != nil {
		return FileInfo{}, fmt.Errorf("resolving path `%s`: %w", path, err)
	}
	info := current.Info()

	for _, chunk := range split(path) {
		if !info.IsDir() {
			return FileInfo{}, fmt.Errorf(
				"resolving path `%s`: `%s` is a file: %w",
				path,
				info.Name,
				NotADirErr,
			)
		}
		if chunk == ".." {
			if info, err = fsys.parent(info); err != nil {
				return FileInfo{}, fmt.Errorf(
					"resolving path `%s`: %w",
					path,
					err,
				)
			}
			continue
		}
		child, found := fsys.index.Lookup(info.Ino, chunk)
		if !found {
			return FileInfo{}, fmt.Errorf(
				"resolving path `%s`: `%s`: %w",
				path,
				chunk,
				NotFoundErr,
			)
		}
		info = child
	}
	return info, nil
}

func (fsys *FileSystem) parent(info FileInfo) (FileInfo, error) {
	if info.Ino == InoRoot {
		return info, nil
	}
	d, err := fsys.dir(info.Parent)
	if err != nil {
		return FileInfo{}, err
	}
	return d.Info(), nil
}

// resolveParent resolves every component of `path` but the last and returns
// the containing directory along with the final name.
func (fsys *FileSystem) resolveParent(
	path string,
) (directory.Directory, string, error) {
	trimmed := strings.TrimRight(path, "/")
	i := strings.LastIndexByte(trimmed, '/')
	dirPath, name := trimmed[:i+1], trimmed[i+1:]
	if dirPath == "" {
		dirPath = "."
	}
	if name == "" || name == "." || name == ".." {
		return directory.Directory{}, "", fmt.Errorf(
			"resolving parent of `%s`: %w",
			path,
			InvalidNameErr,
		)
	}

	info, err := fsys.resolve(dirPath)
	if err != nil {
		return directory.Directory{}, "", fmt.Errorf(
			"resolving parent of `%s`: %w",
			path,
			err,
		)
	}
	d, err := fsys.dir(info.Ino)
	if err != nil {
		return directory.Directory{}, "", fmt.Errorf(
			"resolving parent of `%s`: %w",
			path,
			err,
		)
	}
	return d, name, nil
}

// Lookup returns the entry at `path`.
func (fsys *FileSystem) Lookup(path string) (FileInfo, error) {
	return fsys.resolve(path)
}

// PathOf rebuilds the absolute path of `ino` by following parent pointers.
func (fsys *FileSystem) PathOf(ino Ino) (string, error) {
	var chunks []string
	for ino != InoRoot {
		inode, err := fsys.md.LoadInode(ino)
		if err != nil {
			return "", fmt.Errorf("building path of `%d`: %w", ino, err)
		}
		chunks = append(chunks, inode.Name)
		if len(chunks) > int(fsys.md.Superblock().TotalInodes) {
			return "", fmt.Errorf(
				"building path of `%d`: parent cycle: %w",
				ino,
				CorruptLayoutErr,
			)
		}
		ino = inode.Parent
	}

	var b strings.Builder
	for i := len(chunks) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(chunks[i])
	}
	if b.Len() == 0 {
		return "/", nil
	}
	return b.String(), nil
}
