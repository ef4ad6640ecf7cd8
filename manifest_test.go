package lasprep_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lidarhd/lasprep"
	"github.com/lidarhd/lasprep/test"
)

func sampleManifest() *lasprep.Manifest {
	m := lasprep.NewManifest()
	m.Add("LIDAR_0001-0001.las", lasprep.SplitTrain)
	m.Add("LIDAR_0001-0002.las", lasprep.SplitTrain)
	m.Add("LIDAR_0001-0003.las", lasprep.SplitVal)
	m.Add("LIDAR_0001-0004.las", lasprep.SplitTest)
	return m
}

func TestManifestWriteCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	test.ErrNil(t, sampleManifest().WriteCSV(buf), "WriteCSV")
	want := `,basename,split
0,LIDAR_0001-0001.las,train
1,LIDAR_0001-0002.las,train
2,LIDAR_0001-0003.las,val
3,LIDAR_0001-0004.las,test
`
	test.MustBe(t, buf.String(), want)
}

func TestManifestCounts(t *testing.T) {
	m := sampleManifest()
	m.Add("LIDAR_0001-0004.las", lasprep.SplitTest)
	test.MustBe(t, m.Len(), 5)
	test.MustBe(t, m.Counts(), map[lasprep.Split]int{
		lasprep.SplitTrain: 2,
		lasprep.SplitVal:   1,
		lasprep.SplitTest:  2,
	})
}

func TestManifestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, lasprep.ManifestName)
	m := sampleManifest()
	test.ErrNil(t, m.WriteFile(path), "WriteFile")

	entries, err := os.ReadDir(dir)
	test.ErrNil(t, err, "ReadDir")
	test.MustBe(t, len(entries), 1, "temporary file left behind")

	f, err := os.Open(path)
	test.ErrNil(t, err, "opening manifest")
	defer f.Close()
	got, err := lasprep.ReadManifest(f)
	test.ErrNil(t, err, "ReadManifest")
	test.MustBe(t, got.Rows(), m.Rows())
}

func TestReadManifestErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"a,b,c\n0,x.las,train\n",
		",basename,split\n0,x.las\n",
	} {
		if _, err := lasprep.ReadManifest(strings.NewReader(in)); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}
