package fs

import "fmt"

// Version is the on-disk format version stored in the first three bytes of
// the superblock.
type Version [3]uint8

// LatestVersion is the version written by newly created filesystems.
var LatestVersion = Version{0, 0, 1}

var supportedVersions = []Version{
	{0, 0, 1},
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

func (v Version) Supported() bool {
	for _, supported := range supportedVersions {
		if v == supported {
			return true
		}
	}
	return false
}
