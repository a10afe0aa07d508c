// Package detect identifies ext filesystem variants from disk images.
package detect

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Type represents a filesystem type
type Type int

const (
	Unknown Type = iota
	Ext2
	Ext3
	Ext4
)

func (t Type) String() string {
	switch t {
	case Ext2:
		return "ext2"
	case Ext3:
		return "ext3"
	case Ext4:
		return "ext4"
	default:
		return "unknown"
	}
}

// IsExt returns true if the type is any ext variant
func (t Type) IsExt() bool {
	return t == Ext2 || t == Ext3 || t == Ext4
}

// Superblock field offsets relative to byte 1024 of the image.
const (
	magicOffset = 0x38

	extMagic = 0xEF53

	featureCompatHasJournal = 0x0004
	featureIncompat64Bit    = 0x0080
	featureIncompatExtents  = 0x0040
	featureIncompatFlexBG   = 0x0200
)

// Detect identifies the ext variant of the volume behind r. It reads the
// superblock region and classifies by magic and feature flags. A volume
// without the ext magic is Unknown, not an error.
func Detect(r io.ReaderAt) (Type, error) {
	sb := make([]byte, 1024)
	n, err := r.ReadAt(sb, 1024)
	if err != nil && err != io.EOF {
		return Unknown, fmt.Errorf("reading superblock: %w", err)
	}
	if n < 0x68 {
		return Unknown, fmt.Errorf("volume too small: %d superblock bytes", n)
	}

	if binary.LittleEndian.Uint16(sb[magicOffset:magicOffset+2]) != extMagic {
		return Unknown, nil
	}

	featureCompat := binary.LittleEndian.Uint32(sb[0x5C:0x60])
	featureIncompat := binary.LittleEndian.Uint32(sb[0x60:0x64])

	if featureIncompat&(featureIncompat64Bit|featureIncompatExtents|featureIncompatFlexBG) != 0 {
		return Ext4, nil
	}
	if featureCompat&featureCompatHasJournal != 0 {
		return Ext3, nil
	}
	return Ext2, nil
}
