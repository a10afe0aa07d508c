// Package cmd implements the e2cat requests.
package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/e2tools/e2cat/fsys/ext2"
)

// ErrUnsupportedType is returned for a data request on an inode that is
// neither a regular file nor a directory.
var ErrUnsupportedType = errors.New("file type not supported")

// Data resolves path and prints the file's contents. Regular files are
// emitted as raw bytes, whole blocks at a time, trailing slack of the last
// block included. Directories are printed one line per entry:
// <inode>\t<type>\t<name>.
func Data(f *ext2.FS, path string, out io.Writer) error {
	inodeNum, err := f.Resolve(path)
	if err != nil {
		return err
	}
	ino, err := f.ReadInode(inodeNum)
	if err != nil {
		return err
	}

	switch {
	case ino.IsRegular():
		return f.WalkBlocks(&ino, func(block uint32) error {
			data, err := f.ReadBlock(block)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		})
	case ino.IsDir():
		return f.WalkBlocks(&ino, func(block uint32) error {
			data, err := f.ReadBlock(block)
			if err != nil {
				return err
			}
			return ext2.ScanDirBlock(data, func(e ext2.DirEntry) error {
				if e.Inode == 0 {
					return nil
				}
				_, err := fmt.Fprintf(out, "%d\t%s\t%s\n", e.Inode, ext2.FileTypeName(e.FileType), e.Name)
				return err
			})
		})
	default:
		return fmt.Errorf("%s: %w: mode %#x", path, ErrUnsupportedType, ino.FileType())
	}
}
