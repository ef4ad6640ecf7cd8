package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lidarhd/lasprep/test"
)

func TestLayout(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"las/B_0001-0002.las.zip",
		"las/A_0001-0001.las.zip",
		"las/notes.txt",
		"las/A_0001-0003.las",
		"orthos/O_0001-0001_0.1_RGB.tif",
		"orthos/O_0001-0001_2_RGB.tif",
		"orthos/O_0001-0002_0.1_RGB.tif",
		"orthos/O_0001-0002_0.1_RGB.tif.aux.xml",
	} {
		test.Touch(t, filepath.Join(root, name))
	}

	l := NewLayout(root)
	tiles, err := l.Tiles()
	test.ErrNil(t, err, "Tiles")
	test.MustBe(t, tiles, []string{
		filepath.Join(root, "las", "A_0001-0001.las.zip"),
		filepath.Join(root, "las", "B_0001-0002.las.zip"),
	})

	orthos, err := l.Orthos("0.1")
	test.ErrNil(t, err, "Orthos")
	test.MustBe(t, orthos, []string{
		filepath.Join(root, "orthos", "O_0001-0001_0.1_RGB.tif"),
		filepath.Join(root, "orthos", "O_0001-0002_0.1_RGB.tif"),
	})

	orthos, err = l.Orthos("2")
	test.ErrNil(t, err, "Orthos 2m")
	test.MustBe(t, len(orthos), 1)
}

func TestLayoutNoTiles(t *testing.T) {
	root := t.TempDir()
	if _, err := NewLayout(root).Tiles(); err == nil {
		t.Fatal("expected error for missing tiles directory")
	}
	if err := os.MkdirAll(filepath.Join(root, "las"), 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLayout(root).Tiles(); err == nil {
		t.Fatal("expected error for empty tiles directory")
	}
}

func TestLayoutOptions(t *testing.T) {
	l := NewLayout("/data", OptLayoutTilesDir("lidar"), OptLayoutOrthosDir("rasters"))
	test.MustBe(t, l.TilesPath(), filepath.Join("/data", "lidar"))
	test.MustBe(t, l.OrthosPath(), filepath.Join("/data", "rasters"))
}

func TestIsTileIsOrtho(t *testing.T) {
	test.MustBe(t, IsTile("las/X_0001-0001.las.zip"), true)
	test.MustBe(t, IsTile("las/X_0001-0001.las"), false)
	test.MustBe(t, IsOrtho("O_0001-0001_0.1_RGB.tif"), true)
	test.MustBe(t, IsOrtho("O.tif"), false)
}
