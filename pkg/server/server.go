// Package server exposes a loaded filesystem over a read-only JSON API.
package server

import (
	"errors"
	"strconv"
	"sync"

	pz "github.com/weberc2/httpeasy"

	"github.com/weberc2/diskfs/pkg/filesystem"
	. "github.com/weberc2/diskfs/pkg/types"
)

type logging struct {
	Message string `json:"message,omitempty"`
	Ino     string `json:"ino,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server serializes every request against the filesystem; nothing in the
// filesystem is safe for concurrent use.
type Server struct {
	lock sync.Mutex
	FS   *filesystem.FileSystem
}

func New(fsys *filesystem.FileSystem) *Server { return &Server{FS: fsys} }

type superblockView struct {
	Version               string `json:"version"`
	BlockSize             Byte   `json:"blockSize"`
	InodeSize             Byte   `json:"inodeSize"`
	TotalInodes           uint16 `json:"totalInodes"`
	FreeInodes            uint16 `json:"freeInodes"`
	TotalBlocks           uint16 `json:"totalBlocks"`
	FreeBlocks            uint16 `json:"freeBlocks"`
	InodeBitmapBlockCount uint8  `json:"inodeBitmapBlockCount"`
	BlockBitmapBlockCount uint8  `json:"blockBitmapBlockCount"`
	InodeStartBlock       uint16 `json:"inodeStartBlock"`
	TotalInodeBlocks      uint16 `json:"totalInodeBlocks"`
	FirstDataBlock        Block  `json:"firstDataBlock"`
}

func (s *Server) Superblock(r pz.Request) pz.Response {
	s.lock.Lock()
	defer s.lock.Unlock()

	sb := s.FS.Superblock()
	return pz.Ok(pz.JSON(superblockView{
		Version:               sb.Version.String(),
		BlockSize:             sb.BlockSize(),
		InodeSize:             1 << sb.InodeSizeLog,
		TotalInodes:           sb.TotalInodes,
		FreeInodes:            sb.FreeInodes,
		TotalBlocks:           sb.TotalBlocks,
		FreeBlocks:            sb.FreeBlocks,
		InodeBitmapBlockCount: sb.InodeBitmapBlockCount,
		BlockBitmapBlockCount: sb.BlockBitmapBlockCount,
		InodeStartBlock:       sb.InodeStartBlock,
		TotalInodeBlocks:      sb.TotalInodeBlocks,
		FirstDataBlock:        sb.FirstDataBlock(),
	}))
}

func (s *Server) Inode(r pz.Request) pz.Response {
	ino, rsp, ok := parseIno(r)
	if !ok {
		return rsp
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	stat, err := s.FS.StatIno(ino)
	if err != nil {
		return handleError("fetching inode", r.Vars["ino"], err)
	}
	return pz.Ok(pz.JSON(stat), &logging{Ino: r.Vars["ino"]})
}

func (s *Server) Children(r pz.Request) pz.Response {
	ino, rsp, ok := parseIno(r)
	if !ok {
		return rsp
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	children, err := s.FS.Children(ino)
	if err != nil {
		return handleError("listing directory", r.Vars["ino"], err)
	}
	return pz.Ok(pz.JSON(children), &logging{Ino: r.Vars["ino"]})
}

func (s *Server) Content(r pz.Request) pz.Response {
	ino, rsp, ok := parseIno(r)
	if !ok {
		return rsp
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	data, err := s.FS.ReadFileIno(ino)
	if err != nil {
		return handleError("reading file", r.Vars["ino"], err)
	}
	return pz.Ok(pz.String(string(data)), &logging{Ino: r.Vars["ino"]})
}

func (s *Server) Routes() []pz.Route {
	return []pz.Route{{
		Path:    "/superblock",
		Method:  "GET",
		Handler: s.Superblock,
	}, {
		Path:    "/inodes/{ino}",
		Method:  "GET",
		Handler: s.Inode,
	}, {
		Path:    "/dirs/{ino}/children",
		Method:  "GET",
		Handler: s.Children,
	}, {
		Path:    "/files/{ino}/content",
		Method:  "GET",
		Handler: s.Content,
	}}
}

func parseIno(r pz.Request) (Ino, pz.Response, bool) {
	raw := r.Vars["ino"]
	ino, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, pz.BadRequest(
			pz.Stringf("invalid inode number `%s`", raw),
			&logging{Ino: raw, Error: err.Error()},
		), false
	}
	return Ino(ino), pz.Response{}, true
}

func handleError(message, ino string, err error) pz.Response {
	l := &logging{Message: message, Ino: ino, Error: err.Error()}
	switch {
	case errors.Is(err, NotFoundErr):
		return pz.NotFound(nil, l)
	case errors.Is(err, NotADirErr), errors.Is(err, NotARegularFileErr):
		return pz.BadRequest(pz.String(err.Error()), l)
	default:
		return pz.InternalServerError(l)
	}
}
