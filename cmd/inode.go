package cmd

import (
	"fmt"
	"io"

	"github.com/e2tools/e2cat/fsys/ext2"
)

// Inode resolves path and prints the inode's metadata followed by the
// i_block slot listing, labeled by indirection class. The slot listing stops
// at the first zero slot, which marks the end of allocated data.
func Inode(f *ext2.FS, path string, out io.Writer) error {
	inodeNum, err := f.Resolve(path)
	if err != nil {
		return err
	}
	ino, err := f.ReadInode(inodeNum)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Inode: %d Type: %#x Mode: 0%o Flags: %#x\n", inodeNum, ino.FileType(), ino.Mode&0x0FFF, ino.Flags)
	fmt.Fprintf(out, "Generation: %d\n", ino.Generation)
	fmt.Fprintf(out, "User: %d Group: %d Size: %d\n", ino.UID, ino.GID, ino.Size)
	fmt.Fprintf(out, "File ACL: %d\n", ino.FileACL)
	fmt.Fprintf(out, "Links: %d Blockcount: %d\n", ino.LinksCount, ino.Blocks)
	fmt.Fprintf(out, "ctime: %#x\n", ino.Ctime)
	fmt.Fprintf(out, "atime: %#x\n", ino.Atime)
	fmt.Fprintf(out, "mtime: %#x\n", ino.Mtime)
	fmt.Fprintln(out, "BLOCKS:")

	for i := 0; i < ext2.NumBlocks && ino.Block[i] != 0; i++ {
		switch {
		case i < ext2.NumDirectBlocks:
			fmt.Fprintf(out, "Direct data block (%d): %d\n", i, ino.Block[i])
		case i == ext2.NumDirectBlocks:
			fmt.Fprintf(out, "Single indirect data block: %d\n", ino.Block[i])
		case i == ext2.NumDirectBlocks+1:
			fmt.Fprintf(out, "Double indirect data block: %d\n", ino.Block[i])
		default:
			fmt.Fprintf(out, "Triple indirect data block: %d\n", ino.Block[i])
		}
	}

	return nil
}
