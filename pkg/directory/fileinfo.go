package directory

import (
	. "github.com/weberc2/diskfs/pkg/types"
)

type FileInfo struct {
	Ino      Ino      `json:"ino"`
	Parent   Ino      `json:"parent"`
	Name     string   `json:"name"`
	FileType FileType `json:"fileType"`
}

func (fi *FileInfo) Equal(other *FileInfo) bool {
	return fi.Ino == other.Ino && fi.Parent == other.Parent &&
		fi.FileType == other.FileType && fi.Name == other.Name
}

func (fi *FileInfo) IsDir() bool { return fi.FileType == FileTypeDir }
