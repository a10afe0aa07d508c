// Package ext2 implements read-only access to the ext2 on-disk format.
package ext2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
)

const (
	superblockOffset = 1024
	superblockSize   = 1024
	ext2Magic        = 0xEF53

	// RootInode is the fixed inode number of the volume's root directory.
	RootInode = 2

	// Feature flags the engine does not implement but reports on.
	featureCompatHasJournal = 0x0004
	featureIncompatExtents  = 0x0040
)

// FS implements a read-only ext2 filesystem
type FS struct {
	r         io.ReaderAt
	size      int64
	sb        superblock
	blockSize uint32
	closer    io.Closer
}

type superblock struct {
	inodesCount     uint32
	blocksCount     uint32
	freeBlocksCount uint32
	freeInodesCount uint32
	firstDataBlock  uint32
	logBlockSize    uint32
	blocksPerGroup  uint32
	inodesPerGroup  uint32
	mtime           uint32
	wtime           uint32
	magic           uint16
	state           uint16
	revLevel        uint32
	firstIno        uint32
	inodeSize       uint16
	featureCompat   uint32
	featureIncompat uint32
	featureROCompat uint32
	uuid            [16]byte
	volumeName      [16]byte
	groupCount      uint32
}

// Group descriptors are 32 bytes in ext2.
const groupDescSize = 32

type groupDesc struct {
	blockBitmap     uint32
	inodeBitmap     uint32
	inodeTable      uint32
	freeBlocksCount uint16
	freeInodesCount uint16
	usedDirsCount   uint16
}

// Open opens an ext2 filesystem from the given reader. size is the length
// of the backing device in bytes.
func Open(r io.ReaderAt, size int64) (*FS, error) {
	sbData := make([]byte, superblockSize)
	if err := readAt(r, sbData, superblockOffset); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	f := &FS{r: r, size: size}
	if err := f.parseSuperblock(sbData); err != nil {
		return nil, err
	}

	if c, ok := r.(io.Closer); ok {
		f.closer = c
	}
	return f, nil
}

func (f *FS) parseSuperblock(data []byte) error {
	f.sb.inodesCount = binary.LittleEndian.Uint32(data[0x00:0x04])
	f.sb.blocksCount = binary.LittleEndian.Uint32(data[0x04:0x08])
	f.sb.freeBlocksCount = binary.LittleEndian.Uint32(data[0x0C:0x10])
	f.sb.freeInodesCount = binary.LittleEndian.Uint32(data[0x10:0x14])
	f.sb.firstDataBlock = binary.LittleEndian.Uint32(data[0x14:0x18])
	f.sb.logBlockSize = binary.LittleEndian.Uint32(data[0x18:0x1C])
	f.sb.blocksPerGroup = binary.LittleEndian.Uint32(data[0x20:0x24])
	f.sb.inodesPerGroup = binary.LittleEndian.Uint32(data[0x28:0x2C])
	f.sb.mtime = binary.LittleEndian.Uint32(data[0x2C:0x30])
	f.sb.wtime = binary.LittleEndian.Uint32(data[0x30:0x34])
	f.sb.magic = binary.LittleEndian.Uint16(data[0x38:0x3A])
	f.sb.state = binary.LittleEndian.Uint16(data[0x3A:0x3C])
	f.sb.revLevel = binary.LittleEndian.Uint32(data[0x4C:0x50])
	f.sb.firstIno = binary.LittleEndian.Uint32(data[0x54:0x58])
	f.sb.inodeSize = binary.LittleEndian.Uint16(data[0x58:0x5A])
	f.sb.featureCompat = binary.LittleEndian.Uint32(data[0x5C:0x60])
	f.sb.featureIncompat = binary.LittleEndian.Uint32(data[0x60:0x64])
	f.sb.featureROCompat = binary.LittleEndian.Uint32(data[0x64:0x68])
	copy(f.sb.uuid[:], data[0x68:0x78])
	copy(f.sb.volumeName[:], data[0x78:0x88])

	if f.sb.magic != ext2Magic {
		return ErrNotExt2
	}

	// Block size is 1024 << log, and ext2 only allows 1k/2k/4k.
	if f.sb.logBlockSize > 2 {
		return fmt.Errorf("%w: log block size %d", ErrNotExt2, f.sb.logBlockSize)
	}
	f.blockSize = 1024 << f.sb.logBlockSize

	// Rev 0 volumes have a fixed 128-byte inode and first inode 11.
	if f.sb.revLevel == 0 {
		f.sb.inodeSize = 128
		f.sb.firstIno = 11
	}
	if f.sb.inodeSize < 128 || f.sb.inodeSize&(f.sb.inodeSize-1) != 0 {
		return fmt.Errorf("%w: inode size %d", ErrNotExt2, f.sb.inodeSize)
	}
	if f.sb.inodesPerGroup == 0 || f.sb.blocksPerGroup == 0 {
		return fmt.Errorf("%w: empty block group geometry", ErrNotExt2)
	}

	f.sb.groupCount = (f.sb.blocksCount - f.sb.firstDataBlock + f.sb.blocksPerGroup - 1) / f.sb.blocksPerGroup

	return nil
}

// Type returns the filesystem type name
func (f *FS) Type() string { return "ext2" }

// BlockSize returns the volume's block size in bytes
func (f *FS) BlockSize() uint32 { return f.blockSize }

// InodeSize returns the on-disk inode record size in bytes
func (f *FS) InodeSize() uint32 { return uint32(f.sb.inodeSize) }

// HasJournal reports whether the volume carries an ext3 journal
func (f *FS) HasJournal() bool { return f.sb.featureCompat&featureCompatHasJournal != 0 }

// HasExtents reports whether the volume uses ext4 extent trees
func (f *FS) HasExtents() bool { return f.sb.featureIncompat&featureIncompatExtents != 0 }

// Close releases the backing device handle, if the reader owns one.
func (f *FS) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// BaseReader returns the underlying device reader
func (f *FS) BaseReader() io.ReaderAt { return f.r }

// addressesPerBlock is the number of 4-byte block pointers in one block.
func (f *FS) addressesPerBlock() uint32 { return f.blockSize / 4 }

func (f *FS) blockOffset(block uint32) int64 {
	return int64(block) * int64(f.blockSize)
}

// ReadBlock returns the contents of one block.
func (f *FS) ReadBlock(block uint32) ([]byte, error) {
	return f.readBlock(block)
}

func (f *FS) readBlock(block uint32) ([]byte, error) {
	data := make([]byte, f.blockSize)
	if err := readAt(f.r, data, f.blockOffset(block)); err != nil {
		return nil, fmt.Errorf("reading block %d: %w", block, err)
	}
	return data, nil
}

// readAt reads exactly len(p) bytes at off; a short read is an error.
func readAt(r io.ReaderAt, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n < len(p) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// groupDescOffset returns the absolute offset of a group's descriptor.
// The descriptor table lives in the block after the superblock's block,
// which is block 2 on 1k-block volumes and block 1 otherwise.
func (f *FS) groupDescOffset(group uint32) int64 {
	descBlock := f.sb.firstDataBlock + 1
	return f.blockOffset(descBlock) + int64(group)*groupDescSize
}

func (f *FS) readGroupDesc(group uint32) (groupDesc, error) {
	data := make([]byte, groupDescSize)
	if err := readAt(f.r, data, f.groupDescOffset(group)); err != nil {
		return groupDesc{}, fmt.Errorf("reading group descriptor %d: %w", group, err)
	}
	return groupDesc{
		blockBitmap:     binary.LittleEndian.Uint32(data[0x00:0x04]),
		inodeBitmap:     binary.LittleEndian.Uint32(data[0x04:0x08]),
		inodeTable:      binary.LittleEndian.Uint32(data[0x08:0x0C]),
		freeBlocksCount: binary.LittleEndian.Uint16(data[0x0C:0x0E]),
		freeInodesCount: binary.LittleEndian.Uint16(data[0x0E:0x10]),
		usedDirsCount:   binary.LittleEndian.Uint16(data[0x10:0x12]),
	}, nil
}

// VolumeInfo is a human-oriented snapshot of the superblock.
type VolumeInfo struct {
	VolumeName     string
	UUID           uuid.UUID
	BlockSize      uint32
	InodeSize      uint32
	BlocksCount    uint32
	InodesCount    uint32
	FreeBlocks     uint32
	FreeInodes     uint32
	BlocksPerGroup uint32
	InodesPerGroup uint32
	GroupCount     uint32
	FirstInode     uint32
	HasJournal     bool
	HasExtents     bool
}

// VolumeInfo returns a summary of the volume's superblock.
func (f *FS) VolumeInfo() VolumeInfo {
	name := f.sb.volumeName[:]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return VolumeInfo{
		VolumeName:     string(name),
		UUID:           uuid.UUID(f.sb.uuid),
		BlockSize:      f.blockSize,
		InodeSize:      uint32(f.sb.inodeSize),
		BlocksCount:    f.sb.blocksCount,
		InodesCount:    f.sb.inodesCount,
		FreeBlocks:     f.sb.freeBlocksCount,
		FreeInodes:     f.sb.freeInodesCount,
		BlocksPerGroup: f.sb.blocksPerGroup,
		InodesPerGroup: f.sb.inodesPerGroup,
		GroupCount:     f.sb.groupCount,
		FirstInode:     f.sb.firstIno,
		HasJournal:     f.HasJournal(),
		HasExtents:     f.HasExtents(),
	}
}
