package ext2

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"strings"
)

// Directory entry file_type values.
const (
	FileTypeUnknown = iota
	FileTypeRegular
	FileTypeDirectory
	FileTypeCharDev
	FileTypeBlockDev
	FileTypeFifo
	FileTypeSocket
	FileTypeSymlink
)

var fileTypeNames = [...]string{
	"Unknown", "Regular", "Directory", "Character",
	"Block", "Fifo", "Socket", "Symlink",
}

// FileTypeName returns the fixed display name for a directory entry
// file type. Out-of-range values map to "Unknown".
func FileTypeName(ft uint8) string {
	if int(ft) >= len(fileTypeNames) {
		return fileTypeNames[FileTypeUnknown]
	}
	return fileTypeNames[ft]
}

// DirEntry is a decoded variable-length directory entry.
type DirEntry struct {
	Inode    uint32
	RecLen   uint16
	FileType uint8
	Name     string
}

// ScanDirBlock iterates over the directory entries in one data block,
// including tombstones (Inode == 0). The entry's rec_len always advances the
// cursor; the last entry's rec_len extends to the end of the block.
func ScanDirBlock(block []byte, fn func(DirEntry) error) error {
	off := 0
	for off+8 <= len(block) {
		recLen := binary.LittleEndian.Uint16(block[off+4 : off+6])
		if recLen < 8 || recLen%4 != 0 || off+int(recLen) > len(block) {
			return fmt.Errorf("corrupt directory entry at offset %d: rec_len %d", off, recLen)
		}
		nameLen := int(block[off+6])
		if off+8+nameLen > len(block) {
			return fmt.Errorf("corrupt directory entry at offset %d: name_len %d", off, nameLen)
		}
		e := DirEntry{
			Inode:    binary.LittleEndian.Uint32(block[off : off+4]),
			RecLen:   recLen,
			FileType: block[off+7],
			Name:     string(block[off+8 : off+8+nameLen]),
		}
		if err := fn(e); err != nil {
			return err
		}
		off += int(recLen)
	}
	return nil
}

// Lookup finds name in the directory identified by parent and returns the
// child's inode number. The match is exact and case-sensitive; entries with
// inode 0 are unused slots and are skipped. A miss wraps fs.ErrNotExist.
func (f *FS) Lookup(parent uint32, name string) (uint32, error) {
	ino, err := f.ReadInode(parent)
	if err != nil {
		return 0, err
	}
	if !ino.IsDir() {
		return 0, fmt.Errorf("inode %d: %w", parent, ErrNotDirectory)
	}

	var found uint32
	err = f.WalkBlocks(&ino, func(block uint32) error {
		data, err := f.readBlock(block)
		if err != nil {
			return err
		}
		return ScanDirBlock(data, func(e DirEntry) error {
			if e.Inode != 0 && e.Name == name {
				found = e.Inode
				return fs.SkipAll
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	if found == 0 {
		return 0, fmt.Errorf("%q: %w", name, fs.ErrNotExist)
	}
	return found, nil
}

// Resolve walks an absolute path from the root directory and returns the
// inode number it names. Empty components are dropped, so leading, trailing
// and doubled slashes are tolerated; "/" and "" resolve to the root inode.
func (f *FS) Resolve(path string) (uint32, error) {
	cur := uint32(RootInode)
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		next, err := f.Lookup(cur, part)
		if err != nil {
			return 0, fmt.Errorf("resolving %q: %w", path, err)
		}
		cur = next
	}
	return cur, nil
}
