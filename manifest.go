package lasprep

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// ManifestName is the file name of the manifest inside the colorized
// directory.
const ManifestName = "dataset_split.csv"

// ManifestRow records one processed tile.
type ManifestRow struct {
	Basename string
	Split    Split
}

// Manifest accumulates rows in processing order. It does not deduplicate.
type Manifest struct {
	rows []ManifestRow
}

// NewManifest returns an empty Manifest.
func NewManifest() *Manifest {
	return &Manifest{}
}

// Add appends a row.
func (m *Manifest) Add(basename string, split Split) {
	m.rows = append(m.rows, ManifestRow{Basename: basename, Split: split})
}

// Rows returns a copy of the rows.
func (m *Manifest) Rows() []ManifestRow {
	rows := make([]ManifestRow, len(m.rows))
	copy(rows, m.rows)
	return rows
}

// Len returns the number of rows.
func (m *Manifest) Len() int { return len(m.rows) }

// Counts returns the number of rows per split.
func (m *Manifest) Counts() map[Split]int {
	counts := make(map[Split]int, len(Splits))
	for _, r := range m.rows {
		counts[r.Split]++
	}
	return counts
}

// WriteCSV writes the rows with a leading unnamed row index column:
//
//	,basename,split
//	0,0123456-7890.las,train
func (m *Manifest) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"", "basename", "split"}); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for i, r := range m.rows {
		if err := cw.Write([]string{strconv.Itoa(i), r.Basename, string(r.Split)}); err != nil {
			return errors.Wrapf(err, "writing row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// WriteFile writes the manifest to path through a temporary file in the
// same directory, so readers never see a partial manifest.
func (m *Manifest) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "creating temporary manifest")
	}
	defer os.Remove(tmp.Name())

	if err := m.WriteCSV(tmp); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temporary manifest")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "renaming manifest into place")
}

// ReadManifest parses what WriteCSV wrote.
func ReadManifest(r io.Reader) (*Manifest, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	if len(records) == 0 {
		return nil, errors.New("empty manifest")
	}
	if len(records[0]) != 3 || records[0][1] != "basename" || records[0][2] != "split" {
		return nil, errors.Errorf("unexpected manifest header %v", records[0])
	}
	m := NewManifest()
	for i, rec := range records[1:] {
		if len(rec) != 3 {
			return nil, errors.Errorf("row %d has %d fields", i, len(rec))
		}
		m.Add(rec[1], Split(rec[2]))
	}
	return m, nil
}
