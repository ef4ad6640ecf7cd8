// Package file finds tile archives and orthoimages in the download
// directory.
package file

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Default sub-directories of the download directory.
const (
	TilesDir  = "las"
	OrthosDir = "orthos"
)

// Layout describes where inputs live under a root directory:
//
//	<root>/las/*.las.zip
//	<root>/orthos/*_<resolution>_*.tif
type Layout struct {
	Root      string
	tilesDir  string
	orthosDir string
}

// LayoutOption is a functional option for NewLayout.
type LayoutOption func(l *Layout)

// OptLayoutTilesDir overrides the tiles sub-directory.
func OptLayoutTilesDir(dir string) LayoutOption {
	return func(l *Layout) {
		l.tilesDir = dir
	}
}

// OptLayoutOrthosDir overrides the orthoimages sub-directory.
func OptLayoutOrthosDir(dir string) LayoutOption {
	return func(l *Layout) {
		l.orthosDir = dir
	}
}

// NewLayout returns the Layout rooted at root.
func NewLayout(root string, opts ...LayoutOption) *Layout {
	l := &Layout{
		Root:      root,
		tilesDir:  TilesDir,
		orthosDir: OrthosDir,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TilesPath returns the directory holding tile archives.
func (l *Layout) TilesPath() string { return filepath.Join(l.Root, l.tilesDir) }

// OrthosPath returns the directory holding orthoimages.
func (l *Layout) OrthosPath() string { return filepath.Join(l.Root, l.orthosDir) }

// Tiles returns the sorted tile archives. Finding none is an error.
func (l *Layout) Tiles() ([]string, error) {
	if _, err := os.Stat(l.TilesPath()); err != nil {
		return nil, errors.Wrap(err, "checking tiles directory")
	}
	tiles, err := glob(filepath.Join(l.TilesPath(), "*.las.zip"))
	if err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		return nil, errors.Errorf("no tile archives found in %s", l.TilesPath())
	}
	return tiles, nil
}

// Orthos returns the sorted orthoimages of the given resolution tag.
func (l *Layout) Orthos(resolution string) ([]string, error) {
	return glob(filepath.Join(l.OrthosPath(), "*_"+resolution+"_*.tif"))
}

// IsTile reports whether name looks like a tile archive.
func IsTile(name string) bool {
	ok, _ := filepath.Match("*.las.zip", filepath.Base(name))
	return ok
}

// IsOrtho reports whether name looks like an orthoimage of any resolution.
func IsOrtho(name string) bool {
	ok, _ := filepath.Match("*_*_*.tif", filepath.Base(name))
	return ok
}

func glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "globbing %s", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}
