package medium

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"

	. "github.com/weberc2/diskfs/pkg/types"
)

func TestBufferReadWrite(t *testing.T) {
	buf := NewBuffer(make([]byte, 64))
	if err := buf.WriteAll(10, []byte("hello")); err != nil {
		t.Fatalf("WriteAll(): unexpected err: %v", err)
	}
	p := make([]byte, 5)
	if err := buf.ReadAll(10, p); err != nil {
		t.Fatalf("ReadAll(): unexpected err: %v", err)
	}
	if string(p) != "hello" {
		t.Fatalf("ReadAll(): wanted `hello`; found `%s`", p)
	}
}

func TestBufferShortIO(t *testing.T) {
	buf := NewBuffer(make([]byte, 8))
	for _, testCase := range []struct {
		name string
		run  func() error
	}{
		{"read past end", func() error { return buf.ReadAll(6, make([]byte, 4)) }},
		{"write past end", func() error { return buf.WriteAll(6, make([]byte, 4)) }},
		{"read at end", func() error { return buf.ReadAll(8, make([]byte, 1)) }},
		{"read beyond end", func() error { return buf.ReadAll(100, make([]byte, 1)) }},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			err := testCase.run()
			if !errors.Is(err, ShortIOErr) {
				t.Fatalf("wanted `ShortIOErr`; found `%v`", err)
			}
			var ioErr *IOError
			if !errors.As(err, &ioErr) {
				t.Fatalf("wanted `*IOError`; found `%T`", err)
			}
		})
	}
}

func TestFileMedium(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "disk.img")
	f, err := CreateFile(path, 4096)
	if err != nil {
		t.Fatalf("CreateFile(): unexpected err: %v", err)
	}

	if err := f.WriteAll(4000, []byte("tail")); err != nil {
		t.Fatalf("WriteAll(): unexpected err: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close(): unexpected err: %v", err)
	}

	f, err = OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile(): unexpected err: %v", err)
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		t.Fatalf("Size(): unexpected err: %v", err)
	}
	if size != 4096 {
		t.Fatalf("Size(): wanted `4096`; found `%d`", size)
	}

	p := make([]byte, 4)
	if err := f.ReadAll(4000, p); err != nil {
		t.Fatalf("ReadAll(): unexpected err: %v", err)
	}
	if string(p) != "tail" {
		t.Fatalf("ReadAll(): wanted `tail`; found `%s`", p)
	}

	if err := f.ReadAll(4094, make([]byte, 4)); !errors.Is(err, ShortIOErr) {
		t.Fatalf("ReadAll() past EOF: wanted `ShortIOErr`; found `%v`", err)
	}
}

func TestFileMediumKeepsCause(t *testing.T) {
	f, err := CreateFile(filepath.Join(t.TempDir(), "disk.img"), 512)
	if err != nil {
		t.Fatalf("CreateFile(): unexpected err: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close(): unexpected err: %v", err)
	}

	err = f.ReadAll(0, make([]byte, 8))
	if !errors.Is(err, ShortIOErr) || !errors.Is(err, os.ErrClosed) {
		t.Fatalf(
			"ReadAll() on closed file: wanted `ShortIOErr` and `os.ErrClosed`; "+
				"found `%v`",
			err,
		)
	}
}

func TestOpenFileMissing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.img"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("OpenFile(): wanted `os.ErrNotExist`; found `%v`", err)
	}
}

func TestWindow(t *testing.T) {
	inner := NewBuffer(make([]byte, 32))
	w := NewWindow(inner, 8, 16)
	if err := w.WriteAll(0, []byte("abcd")); err != nil {
		t.Fatalf("WriteAll(): unexpected err: %v", err)
	}
	if !bytes.Equal(inner.Bytes()[8:12], []byte("abcd")) {
		t.Fatalf("inner bytes: wanted `abcd` at 8; found `%q`", inner.Bytes()[8:12])
	}
	if err := w.WriteAll(14, []byte("xyz")); !errors.Is(err, ShortIOErr) {
		t.Fatalf("WriteAll() past window: wanted `ShortIOErr`; found `%v`", err)
	}
}

func TestLogged(t *testing.T) {
	logger := log.New()
	var out bytes.Buffer
	logger.SetOutput(&out)
	logger.SetLevel(log.DebugLevel)

	m := NewLogged(NewBuffer(make([]byte, 8)), logger)
	if err := m.WriteAll(0, []byte{1, 2}); err != nil {
		t.Fatalf("WriteAll(): unexpected err: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("op=write")) {
		t.Fatalf("log output: wanted `op=write`; found `%s`", out.Bytes())
	}
}
