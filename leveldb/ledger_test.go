package leveldb_test

import (
	"testing"

	"github.com/lidarhd/lasprep"
	"github.com/lidarhd/lasprep/leveldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger(t *testing.T) {
	dir := t.TempDir()
	l, err := leveldb.NewLedger(dir)
	require.NoError(t, err)

	rec, err := l.Get("0001-0001")
	require.NoError(t, err)
	assert.Nil(t, rec)

	for _, id := range []string{"0001-0002", "0001-0001"} {
		require.NoError(t, l.Put(&lasprep.TileRecord{
			Identifier: id,
			Split:      lasprep.SplitTrain,
			Status:     lasprep.StatusPending,
		}))
	}
	require.NoError(t, l.Put(&lasprep.TileRecord{Identifier: "0001-0001", Split: lasprep.SplitTrain, Status: lasprep.StatusDone, Basename: "a.las"}))
	require.Error(t, l.Put(&lasprep.TileRecord{}))
	require.NoError(t, l.Close())

	l, err = leveldb.NewLedger(dir)
	require.NoError(t, err)
	defer l.Close()

	got, err := l.Get("0001-0001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, lasprep.StatusDone, got.Status)
	assert.Equal(t, "a.las", got.Basename)

	recs, err := l.Records()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "0001-0001", recs[0].Identifier)
	assert.Equal(t, "0001-0002", recs[1].Identifier)
}
