package las

import (
	"bufio"
	"os"

	"github.com/pkg/errors"
)

// WriteFile creates a LAS file at path holding h followed by the raw point
// records in points. No variable length records are written, so h's
// OffsetToPointData is reset to the header size.
func WriteFile(path string, h *Header, points []byte) error {
	hc := *h
	hc.HeaderSize = 0
	hc.OffsetToPointData = 0
	hc.NumberOfVLRs = 0
	data, err := hc.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "encoding header")
	}
	if want := hc.PointCount * uint64(hc.PointRecordLength); uint64(len(points)) != want {
		return errors.Errorf("%d bytes of point records, want %d", len(points), want)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating LAS file")
	}
	w := bufio.NewWriter(f)
	if _, err := w.Write(data); err != nil {
		f.Close()
		return errors.Wrap(err, "writing header")
	}
	if _, err := w.Write(points); err != nil {
		f.Close()
		return errors.Wrap(err, "writing points")
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, "flushing")
	}
	return errors.Wrap(f.Close(), "closing LAS file")
}

// RecordLength returns the minimal size in bytes of one point record of the
// given format, or 0 for unknown formats.
func RecordLength(format uint8) uint16 {
	switch format {
	case 0:
		return 20
	case 1:
		return 28
	case 2:
		return 26
	case 3:
		return 34
	case 4:
		return 57
	case 5:
		return 63
	case 6:
		return 30
	case 7:
		return 36
	case 8:
		return 38
	case 9:
		return 59
	case 10:
		return 67
	}
	return 0
}
