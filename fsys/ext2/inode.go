package ext2

import (
	"encoding/binary"
	"fmt"
)

// File-type nibble of i_mode.
const (
	ModeFifo      = 0x1000
	ModeCharDev   = 0x2000
	ModeDirectory = 0x4000
	ModeBlockDev  = 0x6000
	ModeRegular   = 0x8000
	ModeSymlink   = 0xA000
	ModeSocket    = 0xC000
)

// Slots of the i_block array.
const (
	// NumBlocks is the number of slots in an inode's block array.
	NumBlocks = 15
	// NumDirectBlocks is the number of direct block slots.
	NumDirectBlocks = 12

	indBlockSlot  = 12
	dindBlockSlot = 13
	tindBlockSlot = 14
)

// Inode is a decoded on-disk inode record.
type Inode struct {
	Mode       uint16
	UID        uint16
	Size       uint32
	Atime      uint32
	Ctime      uint32
	Mtime      uint32
	Dtime      uint32
	GID        uint16
	LinksCount uint16
	Blocks     uint32 // in 512-byte units
	Flags      uint32
	Block      [NumBlocks]uint32
	Generation uint32
	FileACL    uint32
}

// FileType returns the type nibble of the mode.
func (ino *Inode) FileType() uint16 { return ino.Mode & 0xF000 }

// IsDir reports whether the inode is a directory.
func (ino *Inode) IsDir() bool { return ino.FileType() == ModeDirectory }

// IsRegular reports whether the inode is a regular file.
func (ino *Inode) IsRegular() bool { return ino.FileType() == ModeRegular }

// ReadInode loads the inode record for the given inode number.
func (f *FS) ReadInode(inodeNum uint32) (Inode, error) {
	if inodeNum == 0 {
		return Inode{}, fmt.Errorf("%w: 0", ErrBadInode)
	}
	if inodeNum > f.sb.inodesCount {
		return Inode{}, fmt.Errorf("%w: %d > %d inodes", ErrBadInode, inodeNum, f.sb.inodesCount)
	}

	group := (inodeNum - 1) / f.sb.inodesPerGroup
	index := (inodeNum - 1) % f.sb.inodesPerGroup

	gd, err := f.readGroupDesc(group)
	if err != nil {
		return Inode{}, err
	}

	inodeOffset := f.blockOffset(gd.inodeTable) + int64(index)*int64(f.sb.inodeSize)
	if f.size > 0 && inodeOffset+int64(f.sb.inodeSize) > f.size {
		return Inode{}, fmt.Errorf("%w: %d beyond device end", ErrBadInode, inodeNum)
	}

	data := make([]byte, f.sb.inodeSize)
	if err := readAt(f.r, data, inodeOffset); err != nil {
		return Inode{}, fmt.Errorf("reading inode %d: %w", inodeNum, err)
	}

	ino := Inode{
		Mode:       binary.LittleEndian.Uint16(data[0x00:0x02]),
		UID:        binary.LittleEndian.Uint16(data[0x02:0x04]),
		Size:       binary.LittleEndian.Uint32(data[0x04:0x08]),
		Atime:      binary.LittleEndian.Uint32(data[0x08:0x0C]),
		Ctime:      binary.LittleEndian.Uint32(data[0x0C:0x10]),
		Mtime:      binary.LittleEndian.Uint32(data[0x10:0x14]),
		Dtime:      binary.LittleEndian.Uint32(data[0x14:0x18]),
		GID:        binary.LittleEndian.Uint16(data[0x18:0x1A]),
		LinksCount: binary.LittleEndian.Uint16(data[0x1A:0x1C]),
		Blocks:     binary.LittleEndian.Uint32(data[0x1C:0x20]),
		Flags:      binary.LittleEndian.Uint32(data[0x20:0x24]),
		Generation: binary.LittleEndian.Uint32(data[0x64:0x68]),
		FileACL:    binary.LittleEndian.Uint32(data[0x68:0x6C]),
	}
	for i := 0; i < NumBlocks; i++ {
		ino.Block[i] = binary.LittleEndian.Uint32(data[0x28+i*4 : 0x2C+i*4])
	}

	return ino, nil
}
