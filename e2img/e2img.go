// Package e2img builds small synthetic ext2 images for tests.
//
// The geometry is fixed: 1024-byte blocks, a single block group, 32 inodes
// of 128 bytes. Files may span the 12 direct slots plus one single-indirect
// block, which is as much as the fixed inode table can sensibly hold.
package e2img

import (
	"encoding/binary"
	"fmt"
)

const (
	// BlockSize is the block size of every built image.
	BlockSize = 1024
	// InodeSize is the on-disk inode record size.
	InodeSize = 128
	// InodesPerGroup is the size of the single group's inode table.
	InodesPerGroup = 32
	// RootInode is the root directory's inode number.
	RootInode = 2
	// FirstInode is the first inode number handed to added files.
	FirstInode = 11

	addrsPerBlock = BlockSize / 4
	maxFileBlocks = 12 + addrsPerBlock

	// Fixed block layout: boot, superblock, group descriptors, block
	// bitmap, inode bitmap, four inode table blocks, then data.
	superblockBlock = 1
	groupDescBlock  = 2
	blockBitmap     = 3
	inodeBitmap     = 4
	inodeTableBlock = 5
	firstDataBlock  = 9
)

// Directory entry file types.
const (
	ftUnknown   = 0
	ftRegular   = 1
	ftDirectory = 2
)

type entry struct {
	name     string
	ino      uint32
	fileType uint8
}

type node struct {
	ino     uint32
	isDir   bool
	data    []byte  // file contents
	entries []entry // directory children, "." and ".." excluded
	parent  uint32

	// assigned by Build
	blocks   []uint32 // data blocks in logical order
	indirect uint32   // single-indirect pointer block, 0 if unused
}

// Builder assembles an ext2 image in memory.
type Builder struct {
	nodes      []*node // creation order, root first
	byIno      map[uint32]*node
	nextIno    uint32
	volumeName string
	uuid       [16]byte
}

// Dir names a directory being populated.
type Dir struct {
	b *Builder
	n *node
}

// New returns a builder with an empty root directory.
func New() *Builder {
	b := &Builder{byIno: make(map[uint32]*node), nextIno: FirstInode}
	root := &node{ino: RootInode, isDir: true, parent: RootInode}
	b.nodes = append(b.nodes, root)
	b.byIno[RootInode] = root
	return b
}

// SetVolumeName sets the superblock volume name (at most 16 bytes).
func (b *Builder) SetVolumeName(name string) { b.volumeName = name }

// SetUUID sets the superblock volume UUID.
func (b *Builder) SetUUID(u [16]byte) { b.uuid = u }

// Root returns the root directory.
func (b *Builder) Root() *Dir {
	return &Dir{b: b, n: b.byIno[RootInode]}
}

func (b *Builder) allocIno() uint32 {
	ino := b.nextIno
	if ino > InodesPerGroup {
		panic(fmt.Sprintf("e2img: out of inodes (%d)", ino))
	}
	b.nextIno++
	return ino
}

// AddFile adds a regular file and returns its inode number.
func (d *Dir) AddFile(name string, data []byte) uint32 {
	ino := d.b.allocIno()
	n := &node{ino: ino, data: data, parent: d.n.ino}
	d.b.nodes = append(d.b.nodes, n)
	d.b.byIno[ino] = n
	d.n.entries = append(d.n.entries, entry{name: name, ino: ino, fileType: ftRegular})
	return ino
}

// AddDir adds a subdirectory.
func (d *Dir) AddDir(name string) *Dir {
	ino := d.b.allocIno()
	n := &node{ino: ino, isDir: true, parent: d.n.ino}
	d.b.nodes = append(d.b.nodes, n)
	d.b.byIno[ino] = n
	d.n.entries = append(d.n.entries, entry{name: name, ino: ino, fileType: ftDirectory})
	return &Dir{b: d.b, n: n}
}

// AddDeleted adds an unused directory slot (inode 0), as left behind by an
// unlink. Lookups must skip it.
func (d *Dir) AddDeleted(name string) {
	d.n.entries = append(d.n.entries, entry{name: name, ino: 0, fileType: ftUnknown})
}

// Ino returns the directory's inode number.
func (d *Dir) Ino() uint32 { return d.n.ino }

// Build lays out and serializes the image.
func (b *Builder) Build() []byte {
	// Pass 1: assign data blocks.
	cursor := uint32(firstDataBlock)
	alloc := func() uint32 { blk := cursor; cursor++; return blk }

	for _, n := range b.nodes {
		if n.isDir {
			// One block per directory.
			n.blocks = []uint32{alloc()}
			continue
		}
		nblocks := (len(n.data) + BlockSize - 1) / BlockSize
		if nblocks > maxFileBlocks {
			panic(fmt.Sprintf("e2img: file of %d blocks exceeds single-indirect capacity", nblocks))
		}
		for i := 0; i < nblocks && i < 12; i++ {
			n.blocks = append(n.blocks, alloc())
		}
		if nblocks > 12 {
			n.indirect = alloc()
			for i := 12; i < nblocks; i++ {
				n.blocks = append(n.blocks, alloc())
			}
		}
	}

	totalBlocks := cursor
	img := make([]byte, int(totalBlocks)*BlockSize)

	b.writeSuperblock(img, totalBlocks)
	b.writeGroupDesc(img, totalBlocks)
	b.writeBitmaps(img, totalBlocks)
	for _, n := range b.nodes {
		b.writeInode(img, n)
		if n.isDir {
			b.writeDirBlock(img, n)
		} else {
			b.writeFileData(img, n)
		}
	}

	return img
}

func (b *Builder) usedInodes() uint32 { return b.nextIno - 1 }

func (b *Builder) writeSuperblock(img []byte, totalBlocks uint32) {
	sb := img[superblockBlock*BlockSize:]
	le := binary.LittleEndian
	le.PutUint32(sb[0x00:], InodesPerGroup)              // s_inodes_count
	le.PutUint32(sb[0x04:], totalBlocks)                 // s_blocks_count
	le.PutUint32(sb[0x0C:], 0)                           // s_free_blocks_count
	le.PutUint32(sb[0x10:], InodesPerGroup-b.usedInodes()) // s_free_inodes_count
	le.PutUint32(sb[0x14:], 1)                           // s_first_data_block
	le.PutUint32(sb[0x18:], 0)                           // s_log_block_size (1024)
	le.PutUint32(sb[0x20:], 8192)                        // s_blocks_per_group
	le.PutUint32(sb[0x28:], InodesPerGroup)              // s_inodes_per_group
	le.PutUint16(sb[0x38:], 0xEF53)                      // s_magic
	le.PutUint16(sb[0x3A:], 1)                           // s_state: clean
	le.PutUint32(sb[0x4C:], 1)                           // s_rev_level
	le.PutUint32(sb[0x54:], FirstInode)                  // s_first_ino
	le.PutUint16(sb[0x58:], InodeSize)                   // s_inode_size
	copy(sb[0x68:0x78], b.uuid[:])
	copy(sb[0x78:0x88], b.volumeName)
}

func (b *Builder) writeGroupDesc(img []byte, totalBlocks uint32) {
	gd := img[groupDescBlock*BlockSize:]
	le := binary.LittleEndian
	le.PutUint32(gd[0x00:], blockBitmap)
	le.PutUint32(gd[0x04:], inodeBitmap)
	le.PutUint32(gd[0x08:], inodeTableBlock)
	le.PutUint16(gd[0x0E:], uint16(InodesPerGroup-b.usedInodes()))
	var dirs uint16
	for _, n := range b.nodes {
		if n.isDir {
			dirs++
		}
	}
	le.PutUint16(gd[0x10:], dirs)
}

func (b *Builder) writeBitmaps(img []byte, totalBlocks uint32) {
	bb := img[blockBitmap*BlockSize:]
	for i := uint32(0); i < totalBlocks; i++ {
		bb[i/8] |= 1 << (i % 8)
	}
	ib := img[inodeBitmap*BlockSize:]
	for i := uint32(0); i < b.usedInodes(); i++ {
		ib[i/8] |= 1 << (i % 8)
	}
}

func (b *Builder) writeInode(img []byte, n *node) {
	off := inodeTableBlock*BlockSize + int(n.ino-1)*InodeSize
	rec := img[off : off+InodeSize]
	le := binary.LittleEndian

	var mode uint16
	var size uint32
	var links uint16
	if n.isDir {
		mode = 0x4000 | 0o755
		size = BlockSize
		links = 2
		for _, e := range n.entries {
			if b.byIno[e.ino] != nil && b.byIno[e.ino].isDir {
				links++
			}
		}
	} else {
		mode = 0x8000 | 0o644
		size = uint32(len(n.data))
		links = 1
	}

	le.PutUint16(rec[0x00:], mode)
	le.PutUint32(rec[0x04:], size)
	le.PutUint16(rec[0x1A:], links)
	sectors := uint32(len(n.blocks)) * (BlockSize / 512)
	if n.indirect != 0 {
		sectors += BlockSize / 512
	}
	le.PutUint32(rec[0x1C:], sectors)

	for i := 0; i < len(n.blocks) && i < 12; i++ {
		le.PutUint32(rec[0x28+i*4:], n.blocks[i])
	}
	if n.indirect != 0 {
		le.PutUint32(rec[0x28+12*4:], n.indirect)
		ind := img[int(n.indirect)*BlockSize:]
		for i, blk := range n.blocks[12:] {
			le.PutUint32(ind[i*4:], blk)
		}
	}
}

func (b *Builder) writeDirBlock(img []byte, n *node) {
	block := img[int(n.blocks[0])*BlockSize : int(n.blocks[0]+1)*BlockSize]

	all := make([]entry, 0, len(n.entries)+2)
	all = append(all,
		entry{name: ".", ino: n.ino, fileType: ftDirectory},
		entry{name: "..", ino: n.parent, fileType: ftDirectory})
	all = append(all, n.entries...)

	le := binary.LittleEndian
	off := 0
	for i, e := range all {
		recLen := 8 + (len(e.name)+3)&^3
		if i == len(all)-1 {
			recLen = BlockSize - off // last entry spans to block end
		}
		if off+recLen > BlockSize || recLen < 8+len(e.name) {
			panic("e2img: directory entries exceed one block")
		}
		le.PutUint32(block[off:], e.ino)
		le.PutUint16(block[off+4:], uint16(recLen))
		block[off+6] = uint8(len(e.name))
		block[off+7] = e.fileType
		copy(block[off+8:], e.name)
		off += recLen
	}
}

func (b *Builder) writeFileData(img []byte, n *node) {
	for i, blk := range n.blocks {
		start := i * BlockSize
		end := start + BlockSize
		if end > len(n.data) {
			end = len(n.data)
		}
		copy(img[int(blk)*BlockSize:], n.data[start:end])
	}
}
