package ext2

import (
	"encoding/binary"
	"errors"
	"io/fs"
)

// endOfBlocks terminates a walk when a zero block pointer is found.
var endOfBlocks = errors.New("end of allocated blocks")

// WalkBlocks visits every allocated data block of an inode in logical file
// order: the 12 direct slots, then the blocks behind the single, double and
// triple indirect slots. A zero block number at any level ends the walk; an
// unallocated slot means no further data. The visitor may return fs.SkipAll
// to stop early; WalkBlocks then returns nil.
func (f *FS) WalkBlocks(ino *Inode, visit func(block uint32) error) error {
	err := f.walkSlots(ino, visit)
	if errors.Is(err, endOfBlocks) || errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func (f *FS) walkSlots(ino *Inode, visit func(uint32) error) error {
	for i := 0; i < NumBlocks; i++ {
		block := ino.Block[i]
		if block == 0 {
			return endOfBlocks
		}
		var err error
		switch {
		case i < NumDirectBlocks:
			err = visit(block)
		case i == indBlockSlot:
			err = f.walkIndirect(block, 1, visit)
		case i == dindBlockSlot:
			err = f.walkIndirect(block, 2, visit)
		case i == tindBlockSlot:
			err = f.walkIndirect(block, 3, visit)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// walkIndirect descends an index block. level 1 means the block holds data
// block numbers; higher levels hold further index block numbers. Recursion
// depth is bounded at 3 by the inode layout.
func (f *FS) walkIndirect(block uint32, level int, visit func(uint32) error) error {
	data, err := f.readBlock(block)
	if err != nil {
		return err
	}

	n := int(f.addressesPerBlock())
	for i := 0; i < n; i++ {
		ptr := binary.LittleEndian.Uint32(data[i*4 : (i+1)*4])
		if ptr == 0 {
			return endOfBlocks
		}
		if level == 1 {
			err = visit(ptr)
		} else {
			err = f.walkIndirect(ptr, level-1, visit)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
