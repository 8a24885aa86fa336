package directory

import (
	"fmt"

	"github.com/google/btree"

	"github.com/weberc2/diskfs/pkg/fs"
	. "github.com/weberc2/diskfs/pkg/types"
)

const indexDegree = 16

// entry orders children by parent ino, then by name, so that the children of
// one directory are contiguous in the tree.
type entry FileInfo

func (e entry) Less(than btree.Item) bool {
	that := than.(entry)
	if e.Parent != that.Parent {
		return e.Parent < that.Parent
	}
	return e.Name < that.Name
}

// Index is an in-memory map from (parent, name) to child. Inodes only record
// their parent, so the index is rebuilt from a full inode table scan when a
// filesystem is loaded and kept current as entries are created and removed.
type Index struct {
	tree *btree.BTree
}

func NewIndex() *Index { return &Index{tree: btree.New(indexDegree)} }

// BuildIndex scans every in-use inode. The root is its own parent and is not
// indexed as a child.
func BuildIndex(md *fs.Metadata) (*Index, error) {
	idx := NewIndex()
	if err := md.ScanInodes(func(inode *fs.Inode) error {
		if inode.Ino == InoRoot {
			return nil
		}
		if !md.InodeInUse(inode.Parent) {
			return fmt.Errorf(
				"indexing inode `%d`: parent `%d` is not in use: %w",
				inode.Ino,
				inode.Parent,
				CorruptLayoutErr,
			)
		}
		idx.Insert(infoFromInode(inode))
		return nil
	}); err != nil {
		return nil, fmt.Errorf("building directory index: %w", err)
	}
	return idx, nil
}

func (idx *Index) Insert(info FileInfo) {
	idx.tree.ReplaceOrInsert(entry(info))
}

func (idx *Index) Delete(parent Ino, name string) {
	idx.tree.Delete(entry{Parent: parent, Name: name})
}

func (idx *Index) Lookup(parent Ino, name string) (FileInfo, bool) {
	item := idx.tree.Get(entry{Parent: parent, Name: name})
	if item == nil {
		return FileInfo{}, false
	}
	return FileInfo(item.(entry)), true
}

// Children returns the children of `parent` ordered by name.
func (idx *Index) Children(parent Ino) []FileInfo {
	children := []FileInfo{}
	idx.tree.AscendGreaterOrEqual(
		entry{Parent: parent},
		func(item btree.Item) bool {
			e := item.(entry)
			if e.Parent != parent {
				return false
			}
			children = append(children, FileInfo(e))
			return true
		},
	)
	return children
}

func (idx *Index) HasChildren(parent Ino) bool {
	found := false
	idx.tree.AscendGreaterOrEqual(
		entry{Parent: parent},
		func(item btree.Item) bool {
			found = item.(entry).Parent == parent
			return false
		},
	)
	return found
}

func (idx *Index) Len() int { return idx.tree.Len() }

func infoFromInode(inode *fs.Inode) FileInfo {
	return FileInfo{
		Ino:      inode.Ino,
		Parent:   inode.Parent,
		Name:     inode.Name,
		FileType: inode.FileType,
	}
}
