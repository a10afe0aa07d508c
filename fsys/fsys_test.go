package fsys

import (
	"bytes"
	"io"
	"testing"
)

func baseReader(n int) *bytes.Reader {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return bytes.NewReader(data)
}

func TestExtentReaderAt(t *testing.T) {
	// logical [0,200) -> physical [100,300)
	r := NewExtentReaderAt(baseReader(1000), []Extent{{Logical: 0, Physical: 100, Length: 200}}, 200)

	buf := make([]byte, 10)
	n, err := r.ReadAt(buf, 0)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != 10 {
		t.Fatalf("read %d bytes, want 10", n)
	}
	for i := 0; i < 10; i++ {
		if want := byte((100 + i) % 256); buf[i] != want {
			t.Errorf("buf[%d] = %d, want %d", i, buf[i], want)
		}
	}

	// Reads are clamped to the logical size.
	buf = make([]byte, 50)
	n, err = r.ReadAt(buf, 180)
	if n != 20 {
		t.Errorf("read %d bytes at tail, want 20", n)
	}
	if err != nil && err != io.EOF {
		t.Errorf("tail read error: %v", err)
	}

	if _, err := r.ReadAt(buf, 200); err != io.EOF {
		t.Errorf("read past end: got %v, want io.EOF", err)
	}
	if _, err := r.ReadAt(buf, -1); err == nil {
		t.Error("negative offset: expected error")
	}
}

func TestExtentReaderAtMultipleExtents(t *testing.T) {
	// logical [0,100) -> [200,300), logical [100,200) -> [500,600),
	// deliberately passed out of order.
	extents := []Extent{
		{Logical: 100, Physical: 500, Length: 100},
		{Logical: 0, Physical: 200, Length: 100},
	}
	r := NewExtentReaderAt(baseReader(1000), extents, 200)

	if got := r.Extents(); got[0].Logical != 0 {
		t.Errorf("extents not sorted by logical offset: %+v", got)
	}

	// Read across the extent boundary.
	buf := make([]byte, 40)
	n, err := r.ReadAt(buf, 80)
	if err != nil {
		t.Fatalf("ReadAt across boundary: %v", err)
	}
	if n != 40 {
		t.Fatalf("read %d bytes, want 40", n)
	}
	for i := 0; i < 20; i++ {
		if want := byte((280 + i) % 256); buf[i] != want {
			t.Fatalf("buf[%d] = %d, want %d", i, buf[i], want)
		}
	}
	for i := 20; i < 40; i++ {
		if want := byte((500 + i - 20) % 256); buf[i] != want {
			t.Fatalf("buf[%d] = %d, want %d", i, buf[i], want)
		}
	}
}

func TestExtentReaderAtGapZeroFill(t *testing.T) {
	// Hole at logical [100,200): no extent maps it.
	extents := []Extent{
		{Logical: 0, Physical: 300, Length: 100},
		{Logical: 200, Physical: 600, Length: 100},
	}
	r := NewExtentReaderAt(baseReader(1000), extents, 300)

	buf := make([]byte, 300)
	n, err := r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != 300 {
		t.Fatalf("read %d bytes, want 300", n)
	}
	for i := 100; i < 200; i++ {
		if buf[i] != 0 {
			t.Fatalf("buf[%d] = %d inside hole, want 0", i, buf[i])
		}
	}
	if buf[0] != byte(300%256) || buf[200] != byte(600%256) {
		t.Error("mapped regions read wrong data")
	}
}

func TestExtentReaderAtSize(t *testing.T) {
	r := NewExtentReaderAt(baseReader(100), nil, 42)
	if r.Size() != 42 {
		t.Errorf("Size = %d, want 42", r.Size())
	}
}
