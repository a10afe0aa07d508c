package ext2

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/e2tools/e2cat/fsys"
)

// io/fs surface. Names follow io/fs conventions ("." is the root); the
// engine's own Resolve handles absolute paths.

// Open implements fs.FS.
func (f *FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	inodeNum, ino, err := f.statPath(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	base := path.Base(name)
	if name == "." {
		base = "."
	}
	if ino.IsDir() {
		return &dirFile{fs: f, inode: ino, inodeNum: inodeNum, name: base}, nil
	}
	return &file{fs: f, inode: ino, inodeNum: inodeNum, name: base}, nil
}

// ReadDir implements fs.ReadDirFS.
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	file, err := f.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dir, ok := file.(fs.ReadDirFile)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrNotDirectory}
	}
	return dir.ReadDir(-1)
}

// Stat implements fs.StatFS.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	file, err := f.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return file.Stat()
}

// FileExtents implements fsys.ExtentMapper for regular files.
func (f *FS) FileExtents(name string) ([]fsys.Extent, error) {
	_, ino, err := f.statPath(name)
	if err != nil {
		return nil, err
	}
	if ino.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", name)
	}
	return f.inodeExtents(&ino)
}

func (f *FS) statPath(name string) (uint32, Inode, error) {
	inodeNum := uint32(RootInode)
	if name != "." {
		var err error
		inodeNum, err = f.Resolve("/" + name)
		if err != nil {
			return 0, Inode{}, err
		}
	}
	ino, err := f.ReadInode(inodeNum)
	if err != nil {
		return 0, Inode{}, err
	}
	return inodeNum, ino, nil
}

// inodeExtents enumerates an inode's data blocks and merges physically
// contiguous runs, truncating the logical mapping at i_size.
func (f *FS) inodeExtents(ino *Inode) ([]fsys.Extent, error) {
	var (
		extents   []fsys.Extent
		current   *fsys.Extent
		blockSize = int64(f.blockSize)
		logical   = int64(0)
		remaining = int64(ino.Size)
	)

	err := f.WalkBlocks(ino, func(block uint32) error {
		if remaining <= 0 {
			return fs.SkipAll
		}
		length := blockSize
		if length > remaining {
			length = remaining
		}
		physical := f.blockOffset(block)

		if current != nil && current.Physical+current.Length == physical {
			current.Length += length
		} else {
			if current != nil {
				extents = append(extents, *current)
			}
			current = &fsys.Extent{Logical: logical, Physical: physical, Length: length}
		}
		logical += length
		remaining -= length
		return nil
	})
	if err != nil {
		return nil, err
	}
	if current != nil {
		extents = append(extents, *current)
	}
	return extents, nil
}

// file implements fs.File for regular files. Data is streamed through an
// extent view of the image rather than loaded whole.
type file struct {
	fs       *FS
	inode    Inode
	inodeNum uint32
	name     string
	r        *fsys.ExtentReaderAt
	offset   int64
}

func (f *file) Stat() (fs.FileInfo, error) {
	return &fileInfo{inode: f.inode, inodeNum: f.inodeNum, name: f.name}, nil
}

func (f *file) Read(b []byte) (int, error) {
	if f.r == nil {
		extents, err := f.fs.inodeExtents(&f.inode)
		if err != nil {
			return 0, err
		}
		f.r = fsys.NewExtentReaderAt(f.fs.r, extents, int64(f.inode.Size))
	}

	n, err := f.r.ReadAt(b, f.offset)
	f.offset += int64(n)
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

func (f *file) Close() error {
	f.r = nil
	return nil
}

// dirFile implements fs.File and fs.ReadDirFile for directories
type dirFile struct {
	fs       *FS
	inode    Inode
	inodeNum uint32
	name     string
	entries  []fs.DirEntry
	offset   int
}

func (d *dirFile) Stat() (fs.FileInfo, error) {
	return &fileInfo{inode: d.inode, inodeNum: d.inodeNum, name: d.name}, nil
}

func (d *dirFile) Read(b []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *dirFile) Close() error {
	d.entries = nil
	return nil
}

func (d *dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.entries == nil {
		err := d.fs.WalkBlocks(&d.inode, func(block uint32) error {
			data, err := d.fs.readBlock(block)
			if err != nil {
				return err
			}
			return ScanDirBlock(data, func(e DirEntry) error {
				if e.Inode == 0 || e.Name == "." || e.Name == ".." {
					return nil
				}
				d.entries = append(d.entries, &dirEntry{fs: d.fs, entry: e})
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}

	if n <= 0 {
		entries := d.entries[d.offset:]
		d.offset = len(d.entries)
		return entries, nil
	}

	if d.offset >= len(d.entries) {
		return nil, io.EOF
	}
	end := d.offset + n
	if end > len(d.entries) {
		end = len(d.entries)
	}
	entries := d.entries[d.offset:end]
	d.offset = end
	return entries, nil
}

// dirEntry implements fs.DirEntry
type dirEntry struct {
	fs    *FS
	entry DirEntry
}

func (e *dirEntry) Name() string { return e.entry.Name }

func (e *dirEntry) IsDir() bool { return e.entry.FileType == FileTypeDirectory }

func (e *dirEntry) Type() fs.FileMode {
	switch e.entry.FileType {
	case FileTypeDirectory:
		return fs.ModeDir
	case FileTypeSymlink:
		return fs.ModeSymlink
	case FileTypeCharDev:
		return fs.ModeDevice | fs.ModeCharDevice
	case FileTypeBlockDev:
		return fs.ModeDevice
	case FileTypeFifo:
		return fs.ModeNamedPipe
	case FileTypeSocket:
		return fs.ModeSocket
	default:
		return 0
	}
}

func (e *dirEntry) Info() (fs.FileInfo, error) {
	ino, err := e.fs.ReadInode(e.entry.Inode)
	if err != nil {
		return nil, err
	}
	return &fileInfo{inode: ino, inodeNum: e.entry.Inode, name: e.entry.Name}, nil
}

// fileInfo implements fs.FileInfo and fsys.FileInfo
type fileInfo struct {
	inode    Inode
	inodeNum uint32
	name     string
}

func (i *fileInfo) Name() string       { return i.name }
func (i *fileInfo) Size() int64        { return int64(i.inode.Size) }
func (i *fileInfo) ModTime() time.Time { return time.Unix(int64(i.inode.Mtime), 0) }
func (i *fileInfo) IsDir() bool        { return i.inode.IsDir() }
func (i *fileInfo) Sys() any           { return nil }
func (i *fileInfo) Inode() uint64      { return uint64(i.inodeNum) }

func (i *fileInfo) Mode() fs.FileMode {
	mode := fs.FileMode(i.inode.Mode & 0777)
	switch i.inode.FileType() {
	case ModeDirectory:
		mode |= fs.ModeDir
	case ModeSymlink:
		mode |= fs.ModeSymlink
	case ModeBlockDev:
		mode |= fs.ModeDevice
	case ModeCharDev:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case ModeFifo:
		mode |= fs.ModeNamedPipe
	case ModeSocket:
		mode |= fs.ModeSocket
	}
	return mode
}
