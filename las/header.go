// Package las reads and writes the public header block of ASPRS LAS files.
// Only the header is handled; point records are left to the processing
// engine.
package las

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

// Signature is the magic string every LAS file starts with.
const Signature = "LASF"

const (
	headerSize12 = 227
	headerSize14 = 375
)

// rawHeader mirrors the LAS 1.0 to 1.3 public header block byte for byte.
type rawHeader struct {
	FileSignature      [4]byte
	FileSourceID       uint16
	GlobalEncoding     uint16
	ProjectID          [16]byte
	VersionMajor       uint8
	VersionMinor       uint8
	SystemIdentifier   [32]byte
	GeneratingSoftware [32]byte
	CreationDayOfYear  uint16
	CreationYear       uint16
	HeaderSize         uint16
	OffsetToPointData  uint32
	NumberOfVLRs       uint32
	PointFormat        uint8
	PointRecordLength  uint16
	LegacyPointCount   uint32
	LegacyByReturn     [5]uint32
	XScale, YScale     float64
	ZScale             float64
	XOffset, YOffset   float64
	ZOffset            float64
	MaxX, MinX         float64
	MaxY, MinY         float64
	MaxZ, MinZ         float64
}

// rawHeader14 holds the fields LAS 1.4 appends to the 1.3 header (the 1.3
// waveform offset included).
type rawHeader14 struct {
	StartOfWaveform  uint64
	StartOfFirstEVLR uint64
	NumberOfEVLRs    uint32
	PointCount       uint64
	PointsByReturn   [15]uint64
}

// Bounds is an axis-aligned box in the file's coordinate system.
type Bounds struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// Width returns the X extent.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the Y extent.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Header is the decoded public header block.
type Header struct {
	VersionMajor       uint8
	VersionMinor       uint8
	SystemIdentifier   string
	GeneratingSoftware string
	HeaderSize         uint16
	OffsetToPointData  uint32
	NumberOfVLRs       uint32
	PointFormat        uint8
	PointRecordLength  uint16
	PointCount         uint64
	Scale              [3]float64
	Offset             [3]float64
	Bounds             Bounds
}

// HasColor reports whether the point format carries RGB values.
func (h *Header) HasColor() bool { return FormatHasColor(h.PointFormat) }

// FormatHasColor reports whether points of the given format carry RGB values.
func FormatHasColor(format uint8) bool {
	switch format {
	case 2, 3, 5, 7, 8, 10:
		return true
	}
	return false
}

// Version returns the version as "major.minor".
func (h *Header) Version() string {
	return fmt.Sprintf("%d.%d", h.VersionMajor, h.VersionMinor)
}

// ReadHeader decodes the public header block at the start of r.
func ReadHeader(r io.Reader) (*Header, error) {
	var raw rawHeader
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	if string(raw.FileSignature[:]) != Signature {
		return nil, errors.Errorf("bad signature %q", raw.FileSignature[:])
	}
	h := &Header{
		VersionMajor:       raw.VersionMajor,
		VersionMinor:       raw.VersionMinor,
		SystemIdentifier:   cString(raw.SystemIdentifier[:]),
		GeneratingSoftware: cString(raw.GeneratingSoftware[:]),
		HeaderSize:         raw.HeaderSize,
		OffsetToPointData:  raw.OffsetToPointData,
		NumberOfVLRs:       raw.NumberOfVLRs,
		PointFormat:        raw.PointFormat & 0x3f, // high bits flag compression
		PointRecordLength:  raw.PointRecordLength,
		PointCount:         uint64(raw.LegacyPointCount),
		Scale:              [3]float64{raw.XScale, raw.YScale, raw.ZScale},
		Offset:             [3]float64{raw.XOffset, raw.YOffset, raw.ZOffset},
		Bounds: Bounds{
			MinX: raw.MinX, MinY: raw.MinY, MinZ: raw.MinZ,
			MaxX: raw.MaxX, MaxY: raw.MaxY, MaxZ: raw.MaxZ,
		},
	}
	if raw.VersionMajor == 1 && raw.VersionMinor >= 4 && raw.HeaderSize >= headerSize14 {
		var ext rawHeader14
		if err := binary.Read(r, binary.LittleEndian, &ext); err != nil {
			return nil, errors.Wrap(err, "reading LAS 1.4 header fields")
		}
		if ext.PointCount != 0 {
			h.PointCount = ext.PointCount
		}
	}
	return h, nil
}

// ReadFile reads the header of the LAS file at path.
func ReadFile(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening LAS file")
	}
	defer f.Close()
	h, err := ReadHeader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return h, nil
}

// MarshalBinary encodes the header. Versions below 1.4 produce a 227 byte
// block, 1.4 a 375 byte one. HeaderSize and OffsetToPointData are filled in
// when zero.
func (h *Header) MarshalBinary() ([]byte, error) {
	size := uint16(headerSize12)
	is14 := h.VersionMajor == 1 && h.VersionMinor >= 4
	if is14 {
		size = headerSize14
	}
	raw := rawHeader{
		VersionMajor:      h.VersionMajor,
		VersionMinor:      h.VersionMinor,
		HeaderSize:        h.HeaderSize,
		OffsetToPointData: h.OffsetToPointData,
		NumberOfVLRs:      h.NumberOfVLRs,
		PointFormat:       h.PointFormat,
		PointRecordLength: h.PointRecordLength,
		XScale:            h.Scale[0],
		YScale:            h.Scale[1],
		ZScale:            h.Scale[2],
		XOffset:           h.Offset[0],
		YOffset:           h.Offset[1],
		ZOffset:           h.Offset[2],
		MaxX:              h.Bounds.MaxX,
		MinX:              h.Bounds.MinX,
		MaxY:              h.Bounds.MaxY,
		MinY:              h.Bounds.MinY,
		MaxZ:              h.Bounds.MaxZ,
		MinZ:              h.Bounds.MinZ,
	}
	copy(raw.FileSignature[:], Signature)
	copy(raw.SystemIdentifier[:], h.SystemIdentifier)
	copy(raw.GeneratingSoftware[:], h.GeneratingSoftware)
	if raw.HeaderSize == 0 {
		raw.HeaderSize = size
	}
	if raw.OffsetToPointData == 0 {
		raw.OffsetToPointData = uint32(raw.HeaderSize)
	}
	if h.PointCount <= math.MaxUint32 {
		raw.LegacyPointCount = uint32(h.PointCount)
	} else if !is14 {
		return nil, errors.Errorf("%d points need LAS 1.4", h.PointCount)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &raw); err != nil {
		return nil, errors.Wrap(err, "encoding header")
	}
	if is14 {
		ext := rawHeader14{PointCount: h.PointCount}
		if err := binary.Write(&buf, binary.LittleEndian, &ext); err != nil {
			return nil, errors.Wrap(err, "encoding LAS 1.4 header fields")
		}
	}
	return buf.Bytes(), nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
