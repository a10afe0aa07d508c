package ext2

import (
	"bytes"
	"encoding/binary"
	"io/fs"
	"testing"

	"github.com/e2tools/e2cat/e2img"
)

func bigContent(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7 % 251)
	}
	return data
}

// A 13000-byte file spans 12 direct blocks plus one behind the single
// indirect slot. The walk must yield them in strict logical order.
func TestWalkBlocksOrder(t *testing.T) {
	content := bigContent(13000)
	b := e2img.New()
	ino := b.Root().AddFile("big", content)
	f := openImage(t, b.Build())

	rec, err := f.ReadInode(ino)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Block[12] == 0 {
		t.Fatal("expected a single indirect block")
	}

	var got []byte
	var count int
	err = f.WalkBlocks(&rec, func(block uint32) error {
		if block == 0 {
			t.Fatal("visitor called with block 0")
		}
		count++
		data, err := f.ReadBlock(block)
		if err != nil {
			return err
		}
		got = append(got, data...)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkBlocks: %v", err)
	}

	if count != 13 {
		t.Errorf("visited %d blocks, want 13", count)
	}
	if !bytes.Equal(got[:len(content)], content) {
		t.Error("reassembled data does not match file content")
	}
	for _, tail := range got[len(content):] {
		if tail != 0 {
			t.Error("slack bytes of final block are not zero")
			break
		}
	}
}

// A zero pointer in a direct slot ends the whole enumeration, indirect
// slots included.
func TestWalkBlocksStopsAtZeroDirectSlot(t *testing.T) {
	b := e2img.New()
	ino := b.Root().AddFile("big", bigContent(13000))
	img := b.Build()

	// Zero the second direct slot in the on-disk inode record.
	inodeOff := 5*e2img.BlockSize + int(ino-1)*e2img.InodeSize
	binary.LittleEndian.PutUint32(img[inodeOff+0x28+4:], 0)

	f := openImage(t, img)
	rec, err := f.ReadInode(ino)
	if err != nil {
		t.Fatal(err)
	}

	var count int
	err = f.WalkBlocks(&rec, func(block uint32) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("WalkBlocks: %v", err)
	}
	if count != 1 {
		t.Errorf("visited %d blocks, want 1", count)
	}
}

// A zero pointer inside an indirect block ends the enumeration there.
func TestWalkBlocksStopsAtZeroIndirectEntry(t *testing.T) {
	b := e2img.New()
	ino := b.Root().AddFile("big", bigContent(13000))
	img := b.Build()

	f := openImage(t, img)
	rec, err := f.ReadInode(ino)
	if err != nil {
		t.Fatal(err)
	}

	// Zero the first pointer of the indirect block and reopen.
	binary.LittleEndian.PutUint32(img[int(rec.Block[12])*e2img.BlockSize:], 0)
	f = openImage(t, img)

	var count int
	err = f.WalkBlocks(&rec, func(block uint32) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("WalkBlocks: %v", err)
	}
	if count != 12 {
		t.Errorf("visited %d blocks, want 12", count)
	}
}

func TestWalkBlocksVisitorStop(t *testing.T) {
	b := e2img.New()
	ino := b.Root().AddFile("big", bigContent(13000))
	f := openImage(t, b.Build())

	rec, err := f.ReadInode(ino)
	if err != nil {
		t.Fatal(err)
	}

	var count int
	err = f.WalkBlocks(&rec, func(block uint32) error {
		count++
		if count == 3 {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkBlocks with SkipAll: %v", err)
	}
	if count != 3 {
		t.Errorf("visited %d blocks, want 3", count)
	}
}

// Enumeration is idempotent on a read-only image.
func TestWalkBlocksIdempotent(t *testing.T) {
	b := e2img.New()
	ino := b.Root().AddFile("big", bigContent(5000))
	f := openImage(t, b.Build())

	rec, err := f.ReadInode(ino)
	if err != nil {
		t.Fatal(err)
	}

	collect := func() []uint32 {
		var blocks []uint32
		if err := f.WalkBlocks(&rec, func(block uint32) error {
			blocks = append(blocks, block)
			return nil
		}); err != nil {
			t.Fatal(err)
		}
		return blocks
	}

	first := collect()
	second := collect()
	if len(first) != len(second) {
		t.Fatalf("walk lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("walks diverge at %d: %d vs %d", i, first[i], second[i])
		}
	}
}
