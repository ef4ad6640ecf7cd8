// Package test holds fixtures and assertions shared by the tests of lasprep
// and its subpackages.
package test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/lidarhd/lasprep/las"
)

// MustBe uses reflect.DeepEqual to assert that thing1 and thing2 are equal, and
// fails otherwise.
func MustBe(t *testing.T, thing1, thing2 interface{}, context ...string) {
	t.Helper()
	var ctx string
	if len(context) == 0 {
		ctx = ""
	} else {
		ctx = context[0] + ": "
	}
	if !reflect.DeepEqual(thing1, thing2) {
		t.Fatalf("%v'%#v' != '%#v'", ctx, thing1, thing2)
	}
}

// ErrNil asserts that the err is nil and fails otherwise.
func ErrNil(t *testing.T, err error, ctx string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%v: %v", ctx, err)
	}
}

// TileHeader returns the header of an uncolored LAS 1.2 tile of side size
// metres whose lower left corner is at (x, y).
func TileHeader(x, y, size float64, points uint64) *las.Header {
	return &las.Header{
		VersionMajor:      1,
		VersionMinor:      2,
		PointFormat:       1,
		PointRecordLength: las.RecordLength(1),
		PointCount:        points,
		Scale:             [3]float64{0.01, 0.01, 0.01},
		Offset:            [3]float64{x, y, 0},
		Bounds:            las.Bounds{MinX: x, MinY: y, MinZ: 20, MaxX: x + size, MaxY: y + size, MaxZ: 90},
	}
}

// WriteLAS writes a LAS file with header h and zeroed point records.
func WriteLAS(t *testing.T, path string, h *las.Header) {
	t.Helper()
	ErrNil(t, os.MkdirAll(filepath.Dir(path), 0755), "making LAS directory")
	points := make([]byte, h.PointCount*uint64(h.PointRecordLength))
	ErrNil(t, las.WriteFile(path, h, points), "writing LAS fixture")
}

// WriteZip creates a zip archive at path holding the named members.
func WriteZip(t *testing.T, path string, members map[string][]byte, order ...string) {
	t.Helper()
	ErrNil(t, os.MkdirAll(filepath.Dir(path), 0755), "making archive directory")
	f, err := os.Create(path)
	ErrNil(t, err, "creating archive")
	zw := zip.NewWriter(f)
	if len(order) == 0 {
		for name := range members {
			order = append(order, name)
		}
	}
	for _, name := range order {
		w, err := zw.Create(name)
		ErrNil(t, err, "creating member "+name)
		_, err = w.Write(members[name])
		ErrNil(t, err, "writing member "+name)
	}
	ErrNil(t, zw.Close(), "closing zip writer")
	ErrNil(t, f.Close(), "closing archive")
}

// WriteTileArchive writes a zipped LAS tile at path holding a single member
// named member.
func WriteTileArchive(t *testing.T, path, member string, h *las.Header) {
	t.Helper()
	tmp := filepath.Join(t.TempDir(), member)
	WriteLAS(t, tmp, h)
	data, err := os.ReadFile(tmp)
	ErrNil(t, err, "reading LAS fixture")
	WriteZip(t, path, map[string][]byte{member: data})
}

// Touch creates an empty file at path.
func Touch(t *testing.T, path string) {
	t.Helper()
	ErrNil(t, os.MkdirAll(filepath.Dir(path), 0755), "making directory")
	ErrNil(t, os.WriteFile(path, nil, 0644), "touching "+path)
}
