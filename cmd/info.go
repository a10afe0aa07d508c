package cmd

import (
	"fmt"
	"io"

	"github.com/e2tools/e2cat/fsys/ext2"
)

// Info prints a summary of the volume's superblock.
func Info(f *ext2.FS, out io.Writer) error {
	vi := f.VolumeInfo()

	fmt.Fprintf(out, "Filesystem: %s\n", f.Type())
	if vi.VolumeName != "" {
		fmt.Fprintf(out, "Volume name: %s\n", vi.VolumeName)
	}
	fmt.Fprintf(out, "UUID: %s\n", vi.UUID)
	fmt.Fprintf(out, "Block size: %d\n", vi.BlockSize)
	fmt.Fprintf(out, "Inode size: %d\n", vi.InodeSize)
	fmt.Fprintf(out, "Blocks: %d (%d free)\n", vi.BlocksCount, vi.FreeBlocks)
	fmt.Fprintf(out, "Inodes: %d (%d free)\n", vi.InodesCount, vi.FreeInodes)
	fmt.Fprintf(out, "Block groups: %d (%d blocks, %d inodes per group)\n",
		vi.GroupCount, vi.BlocksPerGroup, vi.InodesPerGroup)
	fmt.Fprintf(out, "First inode: %d\n", vi.FirstInode)
	if vi.HasJournal {
		fmt.Fprintln(out, "Journal: present (not read)")
	}
	if vi.HasExtents {
		fmt.Fprintln(out, "Extents: present (not supported)")
	}
	return nil
}
