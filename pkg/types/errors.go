package types

type ConstError string

func (err ConstError) Error() string { return string(err) }

const (
	ShortIOErr            ConstError = "short read or write"
	NameTooLongErr        ConstError = "name too long"
	InvalidNameErr        ConstError = "invalid name"
	NoFreeInodesErr       ConstError = "no free inodes"
	NoFreeBlocksErr       ConstError = "no free blocks"
	NotFoundErr           ConstError = "not found"
	AlreadyExistsErr      ConstError = "already exists"
	CorruptLayoutErr      ConstError = "corrupt layout"
	InvalidGeometryErr    ConstError = "invalid geometry"
	UnsupportedVersionErr ConstError = "unsupported filesystem version"
	InvalidFileTypeErr    ConstError = "invalid file type"
	NotADirErr            ConstError = "not a directory"
	NotARegularFileErr    ConstError = "not a regular file"
	DirNotEmptyErr        ConstError = "directory not empty"
	FileTooLargeErr       ConstError = "file too large"
	InvalidOffsetErr      ConstError = "invalid offset"
	NotAbsolutePathErr    ConstError = "not an absolute path"
	ChecksumMismatchErr   ConstError = "checksum mismatch"
)
