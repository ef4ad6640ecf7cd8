package lasprep

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Status is the processing state of a tile.
type Status string

// Tile states.
const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// TileRecord follows one tile through a run. It is created when the tile is
// matched and assigned, then updated as stages complete.
type TileRecord struct {
	Identifier  string    `json:"identifier"`
	ArchivePath string    `json:"archive_path"`
	OrthoPath   string    `json:"ortho_path"`
	Split       Split     `json:"split"`
	Basename    string    `json:"basename,omitempty"`
	Status      Status    `json:"status"`
	Subtiles    int       `json:"subtiles,omitempty"`
	Error       string    `json:"error,omitempty"`
	RunID       string    `json:"run_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MarshalRecord encodes a record for storage.
func MarshalRecord(rec *TileRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	return data, errors.Wrap(err, "encoding tile record")
}

// UnmarshalRecord decodes a stored record.
func UnmarshalRecord(data []byte) (*TileRecord, error) {
	rec := &TileRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, errors.Wrap(err, "decoding tile record")
	}
	return rec, nil
}

// Ledger stores TileRecords by identifier. Implementations should be
// threadsafe. Get returns a nil record and no error for unknown tiles.
type Ledger interface {
	Get(id string) (*TileRecord, error)
	Put(rec *TileRecord) error
	Close() error
}

// Lister is implemented by ledgers which can enumerate their records.
type Lister interface {
	Records() ([]*TileRecord, error)
}

// MapLedger is an in-memory Ledger. Its records are lost on exit.
type MapLedger struct {
	lock    sync.RWMutex
	records map[string]TileRecord
}

// NewMapLedger creates a new MapLedger.
func NewMapLedger() *MapLedger {
	return &MapLedger{
		records: make(map[string]TileRecord),
	}
}

// Get returns a copy of the record for id.
func (m *MapLedger) Get(id string) (*TileRecord, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Put stores a copy of rec.
func (m *MapLedger) Put(rec *TileRecord) error {
	if rec.Identifier == "" {
		return errors.New("tile record has no identifier")
	}
	m.lock.Lock()
	m.records[rec.Identifier] = *rec
	m.lock.Unlock()
	return nil
}

// Len returns the number of records.
func (m *MapLedger) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.records)
}

// Records returns a copy of every record, sorted by identifier.
func (m *MapLedger) Records() ([]*TileRecord, error) {
	m.lock.RLock()
	recs := make([]*TileRecord, 0, len(m.records))
	for _, rec := range m.records {
		rec := rec
		recs = append(recs, &rec)
	}
	m.lock.RUnlock()
	sort.Slice(recs, func(i, j int) bool { return recs[i].Identifier < recs[j].Identifier })
	return recs, nil
}

// Close does nothing.
func (m *MapLedger) Close() error { return nil }
