// Package leveldb keeps the tile ledger in a LevelDB directory.
package leveldb

import (
	"os"

	"github.com/lidarhd/lasprep"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// keyPrefix namespaces tile records so the database can hold other keys
// later.
var keyPrefix = []byte("tile/")

var _ lasprep.Ledger = &Ledger{}
var _ lasprep.Lister = &Ledger{}

// Ledger is a lasprep.Ledger which stores JSON encoded tile records in
// leveldb.
type Ledger struct {
	db *leveldb.DB
}

// NewLedger opens (or creates) the ledger in dirname.
func NewLedger(dirname string) (*Ledger, error) {
	err := os.MkdirAll(dirname, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	db, err := leveldb.OpenFile(dirname, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname)
	}
	return &Ledger{db: db}, nil
}

func key(id string) []byte {
	return append(append([]byte{}, keyPrefix...), id...)
}

// Get returns the record for id, or nil if there is none.
func (l *Ledger) Get(id string) (*lasprep.TileRecord, error) {
	data, err := l.db.Get(key(id), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "fetching tile %s", id)
	}
	return lasprep.UnmarshalRecord(data)
}

// Put stores rec, replacing any previous record for the same tile.
func (l *Ledger) Put(rec *lasprep.TileRecord) error {
	if rec.Identifier == "" {
		return errors.New("tile record has no identifier")
	}
	data, err := lasprep.MarshalRecord(rec)
	if err != nil {
		return err
	}
	err = l.db.Put(key(rec.Identifier), data, &opt.WriteOptions{Sync: true})
	return errors.Wrapf(err, "putting tile %s", rec.Identifier)
}

// Records returns every record in identifier order.
func (l *Ledger) Records() ([]*lasprep.TileRecord, error) {
	iter := l.db.NewIterator(util.BytesPrefix(keyPrefix), nil)
	defer iter.Release()
	var recs []*lasprep.TileRecord
	for iter.Next() {
		rec, err := lasprep.UnmarshalRecord(iter.Value())
		if err != nil {
			return nil, errors.Wrapf(err, "tile %s", iter.Key()[len(keyPrefix):])
		}
		recs = append(recs, rec)
	}
	return recs, errors.Wrap(iter.Error(), "iterating records")
}

// Close closes the underlying leveldb.
func (l *Ledger) Close() error {
	return errors.Wrap(l.db.Close(), "closing leveldb")
}
