package directory

import (
	"errors"
	"strings"
	"testing"

	"github.com/weberc2/diskfs/pkg/fs"
	"github.com/weberc2/diskfs/pkg/medium"
	. "github.com/weberc2/diskfs/pkg/types"
)

func newRoot(t *testing.T) (Directory, *fs.Metadata, *medium.Buffer) {
	t.Helper()
	m := medium.NewBuffer(make([]byte, 1024*1024))
	md, err := fs.CreateMetadata(m, 1024*1024, 1024, 4096)
	if err != nil {
		t.Fatalf("CreateMetadata(): unexpected err: %v", err)
	}
	root, err := CreateRoot(md, NewIndex())
	if err != nil {
		t.Fatalf("CreateRoot(): unexpected err: %v", err)
	}
	return root, md, m
}

func names(infos []FileInfo) string {
	var out []string
	for _, info := range infos {
		out = append(out, info.Name)
	}
	return strings.Join(out, ",")
}

func TestCreateRoot(t *testing.T) {
	root, md, _ := newRoot(t)
	inode := root.Inode()
	if inode.Ino != InoRoot || inode.Parent != InoRoot {
		t.Fatalf("root: wanted ino and parent `0`; found `%+v`", inode)
	}
	if inode.Name != "/" || inode.FileType != FileTypeDir {
		t.Fatalf("root: wanted dir `/`; found `%+v`", inode)
	}
	if !md.InodeBitmap().Get(0) {
		t.Fatal("inode bitmap: wanted bit `0` set")
	}
	if !root.IsEmpty() {
		t.Fatalf("List(): wanted empty; found `%s`", names(root.List()))
	}
}

func TestCreateChild(t *testing.T) {
	root, _, _ := newRoot(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := root.CreateChild(name, FileTypeFile); err != nil {
			t.Fatalf("CreateChild(`%s`): unexpected err: %v", name, err)
		}
	}
	if found := names(root.List()); found != "alpha,mid,zeta" {
		t.Fatalf("List(): wanted `alpha,mid,zeta`; found `%s`", found)
	}

	info, err := root.Lookup("mid")
	if err != nil {
		t.Fatalf("Lookup(): unexpected err: %v", err)
	}
	wanted := FileInfo{Ino: 3, Parent: InoRoot, Name: "mid", FileType: FileTypeFile}
	if !info.Equal(&wanted) {
		t.Fatalf("Lookup(): wanted `%+v`; found `%+v`", wanted, info)
	}

	if _, err := root.Lookup("missing"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Lookup(): wanted `NotFoundErr`; found `%v`", err)
	}
}

func TestCreateChildErrors(t *testing.T) {
	root, md, _ := newRoot(t)
	if _, err := root.CreateChild("dup", FileTypeFile); err != nil {
		t.Fatalf("CreateChild(): unexpected err: %v", err)
	}
	used := md.InodeBitmap().CountSet()

	for _, testCase := range []struct {
		name   string
		wanted error
	}{
		{"dup", AlreadyExistsErr},
		{"", InvalidNameErr},
		{".", InvalidNameErr},
		{"..", InvalidNameErr},
		{"a/b", InvalidNameErr},
		{strings.Repeat("x", 65), NameTooLongErr},
	} {
		_, err := root.CreateChild(testCase.name, FileTypeDir)
		if !errors.Is(err, testCase.wanted) {
			t.Fatalf(
				"CreateChild(`%s`): wanted `%v`; found `%v`",
				testCase.name,
				testCase.wanted,
				err,
			)
		}
	}
	if found := md.InodeBitmap().CountSet(); found != used {
		t.Fatalf("CountSet(): wanted `%d`; found `%d`", used, found)
	}
}

func TestSameNameInDifferentDirs(t *testing.T) {
	root, _, _ := newRoot(t)
	sub, err := root.Mkdir("sub")
	if err != nil {
		t.Fatalf("Mkdir(): unexpected err: %v", err)
	}
	if _, err := root.CreateChild("x", FileTypeFile); err != nil {
		t.Fatalf("CreateChild(): unexpected err: %v", err)
	}
	if _, err := sub.CreateChild("x", FileTypeFile); err != nil {
		t.Fatalf("CreateChild(): unexpected err: %v", err)
	}
	if found := names(sub.List()); found != "x" {
		t.Fatalf("sub.List(): wanted `x`; found `%s`", found)
	}
	if found := names(root.List()); found != "sub,x" {
		t.Fatalf("root.List(): wanted `sub,x`; found `%s`", found)
	}
}

func TestRemove(t *testing.T) {
	root, md, _ := newRoot(t)
	sub, err := root.Mkdir("sub")
	if err != nil {
		t.Fatalf("Mkdir(): unexpected err: %v", err)
	}
	child, err := sub.CreateChild("f", FileTypeFile)
	if err != nil {
		t.Fatalf("CreateChild(): unexpected err: %v", err)
	}

	if err := root.Remove("sub"); !errors.Is(err, DirNotEmptyErr) {
		t.Fatalf("Remove(): wanted `DirNotEmptyErr`; found `%v`", err)
	}
	if err := sub.Remove("f"); err != nil {
		t.Fatalf("Remove(`f`): unexpected err: %v", err)
	}
	if md.InodeInUse(child.Ino) {
		t.Fatalf("InodeInUse(`%d`): wanted `false`", child.Ino)
	}
	if err := root.Remove("sub"); err != nil {
		t.Fatalf("Remove(`sub`): unexpected err: %v", err)
	}
	if !root.IsEmpty() {
		t.Fatalf("List(): wanted empty; found `%s`", names(root.List()))
	}
	if err := root.Remove("sub"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Remove(): wanted `NotFoundErr`; found `%v`", err)
	}
}

func TestBuildIndex(t *testing.T) {
	root, _, m := newRoot(t)
	sub, err := root.Mkdir("sub")
	if err != nil {
		t.Fatalf("Mkdir(): unexpected err: %v", err)
	}
	for _, name := range []string{"b", "a"} {
		if _, err := sub.CreateChild(name, FileTypeFile); err != nil {
			t.Fatalf("CreateChild(): unexpected err: %v", err)
		}
	}

	md, err := fs.FetchMetadata(m)
	if err != nil {
		t.Fatalf("FetchMetadata(): unexpected err: %v", err)
	}
	idx, err := BuildIndex(md)
	if err != nil {
		t.Fatalf("BuildIndex(): unexpected err: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("Len(): wanted `3`; found `%d`", idx.Len())
	}

	reopened, err := Open(md, idx, sub.Ino())
	if err != nil {
		t.Fatalf("Open(): unexpected err: %v", err)
	}
	if found := names(reopened.List()); found != "a,b" {
		t.Fatalf("List(): wanted `a,b`; found `%s`", found)
	}
}

func TestOpenNotADir(t *testing.T) {
	root, md, _ := newRoot(t)
	inode, err := root.CreateChild("f", FileTypeFile)
	if err != nil {
		t.Fatalf("CreateChild(): unexpected err: %v", err)
	}
	if _, err := Open(md, NewIndex(), inode.Ino); !errors.Is(err, NotADirErr) {
		t.Fatalf("Open(): wanted `NotADirErr`; found `%v`", err)
	}
}
