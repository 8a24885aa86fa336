package filesystem

import (
	"fmt"
	"io"
)

// Tree writes an indented listing of everything below `path`.
func (fsys *FileSystem) Tree(w io.Writer, path string) error {
	info, err := fsys.resolve(path)
	if err != nil {
		return fmt.Errorf("printing tree: %w", err)
	}
	if _, err := fmt.Fprintln(w, path); err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}
	return fsys.tree(w, info, "")
}

func (fsys *FileSystem) tree(w io.Writer, dir FileInfo, prefix string) error {
	children, err := fsys.Children(dir.Ino)
	if err != nil {
		return fmt.Errorf("printing tree of `%s`: %w", dir.Name, err)
	}
	for i, child := range children {
		branch, indent := "├── ", "│   "
		if i == len(children)-1 {
			branch, indent = "└── ", "    "
		}
		name := child.Name
		if child.IsDir() {
			name += "/"
		}
		if _, err := fmt.Fprintf(w, "%s%s%s\n", prefix, branch, name); err != nil {
			return err
		}
		if child.IsDir() {
			if err := fsys.tree(w, child, prefix+indent); err != nil {
				return err
			}
		}
	}
	return nil
}
