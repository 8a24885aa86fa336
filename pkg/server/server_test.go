package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	pz "github.com/weberc2/httpeasy"

	"github.com/weberc2/diskfs/pkg/filesystem"
	"github.com/weberc2/diskfs/pkg/fs"
	"github.com/weberc2/diskfs/pkg/medium"
	. "github.com/weberc2/diskfs/pkg/types"
)

const testSize Byte = 1024 * 1024

func newServer(t *testing.T) *Server {
	t.Helper()
	fsys, err := filesystem.New(
		medium.NewBuffer(make([]byte, testSize)),
		testSize,
		1024,
		4096,
	)
	if err != nil {
		t.Fatalf("filesystem.New(): unexpected err: %v", err)
	}
	if _, err := fsys.MkdirAll("/etc/conf.d"); err != nil {
		t.Fatalf("MkdirAll(): unexpected err: %v", err)
	}
	if err := fsys.WriteFile("/etc/motd", []byte("hello")); err != nil {
		t.Fatalf("WriteFile(): unexpected err: %v", err)
	}
	return New(fsys)
}

func request(ino string) pz.Request {
	return pz.Request{
		Vars:    map[string]string{"ino": ino},
		Headers: make(http.Header),
	}
}

func lookupIno(t *testing.T, s *Server, path string) string {
	t.Helper()
	info, err := s.FS.Lookup(path)
	if err != nil {
		t.Fatalf("Lookup(`%s`): unexpected err: %v", path, err)
	}
	return fmt.Sprint(info.Ino)
}

func TestSuperblock(t *testing.T) {
	s := newServer(t)
	rsp := s.Superblock(request(""))
	if rsp.Status != http.StatusOK {
		t.Fatalf("Superblock(): wanted status `200`; found `%d`", rsp.Status)
	}
	data, err := readAll(rsp.Data)
	if err != nil {
		t.Fatalf("readAll(): unexpected err: %v", err)
	}
	var found superblockView
	if err := json.Unmarshal(data, &found); err != nil {
		t.Fatalf("json.Unmarshal(): unexpected err: %v", err)
	}
	sb := s.FS.Superblock()
	if found.TotalBlocks != sb.TotalBlocks ||
		found.FreeInodes != sb.FreeInodes ||
		found.BlockSize != 1024 ||
		found.InodeSize != fs.InodeSize {
		t.Fatalf("Superblock(): unexpected body `%s`", data)
	}
}

func TestInode(t *testing.T) {
	s := newServer(t)
	rsp := s.Inode(request(lookupIno(t, s, "/etc/motd")))
	if rsp.Status != http.StatusOK {
		t.Fatalf("Inode(): wanted status `200`; found `%d`", rsp.Status)
	}
	data, err := readAll(rsp.Data)
	if err != nil {
		t.Fatalf("readAll(): unexpected err: %v", err)
	}
	var found struct {
		Name     string  `json:"name"`
		Path     string  `json:"path"`
		FileType string  `json:"fileType"`
		Size     Byte    `json:"size"`
		Blocks   []Block `json:"blocks"`
	}
	if err := json.Unmarshal(data, &found); err != nil {
		t.Fatalf("json.Unmarshal(): unexpected err: %v", err)
	}
	if found.Name != "motd" || found.Path != "/etc/motd" ||
		found.FileType != "File" || found.Size != 5 || len(found.Blocks) != 1 {
		t.Fatalf("Inode(): unexpected body `%s`", data)
	}
}

func TestChildren(t *testing.T) {
	s := newServer(t)
	rsp := s.Children(request(lookupIno(t, s, "/etc")))
	if rsp.Status != http.StatusOK {
		t.Fatalf("Children(): wanted status `200`; found `%d`", rsp.Status)
	}
	data, err := readAll(rsp.Data)
	if err != nil {
		t.Fatalf("readAll(): unexpected err: %v", err)
	}
	var found []struct {
		Name     string `json:"name"`
		FileType string `json:"fileType"`
	}
	if err := json.Unmarshal(data, &found); err != nil {
		t.Fatalf("json.Unmarshal(): unexpected err: %v", err)
	}
	if len(found) != 2 ||
		found[0].Name != "conf.d" || found[0].FileType != "Dir" ||
		found[1].Name != "motd" || found[1].FileType != "File" {
		t.Fatalf("Children(): unexpected body `%s`", data)
	}
}

func TestContent(t *testing.T) {
	s := newServer(t)
	rsp := s.Content(request(lookupIno(t, s, "/etc/motd")))
	if rsp.Status != http.StatusOK {
		t.Fatalf("Content(): wanted status `200`; found `%d`", rsp.Status)
	}
	data, err := readAll(rsp.Data)
	if err != nil {
		t.Fatalf("readAll(): unexpected err: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("Content(): wanted `hello`; found `%s`", data)
	}
}

func TestErrors(t *testing.T) {
	s := newServer(t)
	dir := lookupIno(t, s, "/etc")
	file := lookupIno(t, s, "/etc/motd")

	for _, testCase := range []struct {
		name         string
		handler      pz.Handler
		ino          string
		wantedStatus int
	}{
		{"inode-malformed", s.Inode, "abc", http.StatusBadRequest},
		{"inode-overflow", s.Inode, "70000", http.StatusBadRequest},
		{"inode-free", s.Inode, "200", http.StatusNotFound},
		{"inode-out-of-range", s.Inode, "60000", http.StatusNotFound},
		{"children-of-file", s.Children, file, http.StatusBadRequest},
		{"children-free", s.Children, "200", http.StatusNotFound},
		{"content-of-dir", s.Content, dir, http.StatusBadRequest},
		{"content-free", s.Content, "200", http.StatusNotFound},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			rsp := testCase.handler(request(testCase.ino))
			if rsp.Status != testCase.wantedStatus {
				t.Fatalf(
					"wanted status `%d`; found `%d`",
					testCase.wantedStatus,
					rsp.Status,
				)
			}
		})
	}
}

func TestRoutes(t *testing.T) {
	routes := newServer(t).Routes()
	wanted := []string{
		"/superblock",
		"/inodes/{ino}",
		"/dirs/{ino}/children",
		"/files/{ino}/content",
	}
	if len(routes) != len(wanted) {
		t.Fatalf("Routes(): wanted `%d` routes; found `%d`", len(wanted), len(routes))
	}
	for i, route := range routes {
		if route.Path != wanted[i] || route.Method != "GET" {
			t.Fatalf(
				"Routes()[%d]: wanted `GET %s`; found `%s %s`",
				i,
				wanted[i],
				route.Method,
				route.Path,
			)
		}
	}
}

func readAll(s pz.Serializer) ([]byte, error) {
	writerTo, err := s()
	if err != nil {
		return nil, fmt.Errorf("serializing: %w", err)
	}

	var b bytes.Buffer
	if _, err := writerTo.WriteTo(&b); err != nil {
		return nil, fmt.Errorf("copying data to buffer: %w", err)
	}

	return b.Bytes(), nil
}
