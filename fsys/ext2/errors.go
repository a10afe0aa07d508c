package ext2

import "errors"

var (
	// ErrNotExt2 is returned by Open when the superblock magic does not match.
	ErrNotExt2 = errors.New("not an ext2 filesystem")

	// ErrBadInode is returned for inode number 0 or one outside the volume.
	ErrBadInode = errors.New("bad inode number")

	// ErrNotDirectory is returned when a lookup parent is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)
