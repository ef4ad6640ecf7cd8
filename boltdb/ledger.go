// Package boltdb keeps the tile ledger in a BoltDB file.
package boltdb

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/lidarhd/lasprep"
	"github.com/pkg/errors"
)

var tilesBucket = []byte("tiles")

var _ lasprep.Ledger = &Ledger{}
var _ lasprep.Lister = &Ledger{}

// Ledger is a lasprep.Ledger storing JSON encoded tile records in a single
// bucket keyed by tile identifier.
type Ledger struct {
	Db *bolt.DB
}

// NewLedger opens (or creates) the ledger at filename.
func NewLedger(filename string) (*Ledger, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tilesBucket)
		return errors.Wrap(err, "creating tiles bucket")
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return &Ledger{Db: db}, nil
}

// Get returns the record for id, or nil if there is none.
func (l *Ledger) Get(id string) (rec *lasprep.TileRecord, err error) {
	err = l.Db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(tilesBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		rec, err = lasprep.UnmarshalRecord(data)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "getting tile %s", id)
	}
	return rec, nil
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
	err = l.Db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tilesBucket).Put([]byte(rec.Identifier), data)
	})
	return errors.Wrapf(err, "putting tile %s", rec.Identifier)
}

// Records returns every record in identifier order.
func (l *Ledger) Records() ([]*lasprep.TileRecord, error) {
	var recs []*lasprep.TileRecord
	err := l.Db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(tilesBucket).ForEach(func(k, v []byte) error {
			rec, err := lasprep.UnmarshalRecord(v)
			if err != nil {
				return errors.Wrapf(err, "tile %s", k)
			}
			recs = append(recs, rec)
			return nil
		})
	})
	return recs, errors.Wrap(err, "listing records")
}

// Close syncs and closes the database.
func (l *Ledger) Close() error {
	err := l.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return l.Db.Close()
}
