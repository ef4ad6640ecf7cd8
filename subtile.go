package lasprep

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lidarhd/lasprep/las"
	"github.com/pkg/errors"
)

// DefaultSubtileLength is the side of a sub-tile in the units of the point
// cloud's coordinate system.
const DefaultSubtileLength = 50

// SubtilePlaceholder is replaced by the engine with the index of each cell.
const SubtilePlaceholder = "#"

// Splitter cuts colorized tiles into square sub-tiles under OutputDir.
type Splitter struct {
	Engine    Engine
	OutputDir string
	Length    float64
	// Buffer widens every cell on each side so neighbouring sub-tiles
	// overlap. Zero means no overlap.
	Buffer float64
	Log    Logger
}

// NewSplitter returns a Splitter writing DefaultSubtileLength cells under
// outputDir.
func NewSplitter(engine Engine, outputDir string) *Splitter {
	return &Splitter{
		Engine:    engine,
		OutputDir: outputDir,
		Length:    DefaultSubtileLength,
		Log:       NopLogger{},
	}
}

// Template creates <OutputDir>/<split>/<id>/ and returns the output path
// template <...>/<id>_SUB_#.las for the tile with identifier id.
func (s *Splitter) Template(split Split, id string) (string, error) {
	dir := filepath.Join(s.OutputDir, string(split), id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "making sub-tile directory")
	}
	return filepath.Join(dir, id+"_SUB_"+SubtilePlaceholder+".las"), nil
}

// Pipeline returns the pipeline cutting colorizedPath into cells whose grid
// starts at origin and writing them to template.
func (s *Splitter) Pipeline(colorizedPath, template string, originX, originY float64) *Pipeline {
	opts := map[string]interface{}{
		"length":   s.Length,
		"origin_x": originX,
		"origin_y": originY,
	}
	if s.Buffer > 0 {
		opts["buffer"] = s.Buffer
	}
	splitter := Stage{Type: "filters.splitter", Options: opts}
	writer := WriteLAS(template, map[string]interface{}{
		"forward":    "all",
		"extra_dims": "all",
	})
	return NewPipeline(ReadLAS(colorizedPath), splitter, writer)
}

// Split cuts the tile at colorizedPath into cells of Length and returns the
// sub-tile files the engine wrote, sorted by name. The cell grid is anchored
// at the tile's minimum X and Y. Empty cells produce no file. Sub-tiles left
// in the template's directory by an earlier split are removed first.
func (s *Splitter) Split(ctx context.Context, colorizedPath, template string) ([]string, error) {
	if s.Length <= 0 {
		return nil, errors.Errorf("sub-tile length must be positive, got %v", s.Length)
	}
	if !strings.Contains(filepath.Base(template), SubtilePlaceholder) {
		return nil, errors.Errorf("template %q has no %q placeholder", template, SubtilePlaceholder)
	}
	h, err := las.ReadFile(colorizedPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading colorized header")
	}

	// The per-tile directory belongs to this tile: sub-tiles of an earlier
	// split, possibly with another length, must not be taken for ours.
	pattern := subtilePattern(template)
	stale, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrap(err, "listing previous sub-tiles")
	}
	for _, f := range stale {
		if err := os.Remove(f); err != nil {
			return nil, errors.Wrap(err, "removing previous sub-tile")
		}
	}
	if len(stale) > 0 {
		s.Log.Debugf("removed %d sub-tiles of a previous split in %s", len(stale), filepath.Dir(template))
	}

	p := s.Pipeline(colorizedPath, template, h.Bounds.MinX, h.Bounds.MinY)
	if err := s.Engine.Execute(ctx, p); err != nil {
		return nil, errors.Wrapf(err, "splitting %s", filepath.Base(colorizedPath))
	}

	written, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrap(err, "listing sub-tiles")
	}
	sort.Strings(written)

	nx, ny := MaxCells(h.Bounds, s.Length)
	if len(written) > nx*ny {
		s.Log.Printf("warning: %s produced %d sub-tiles, expected at most %d (%dx%d cells)",
			filepath.Base(colorizedPath), len(written), nx*ny, nx, ny)
	}
	return written, nil
}

// subtilePattern turns a template into a glob matching every sub-tile it
// expands to. Only the file name holds the placeholder.
func subtilePattern(template string) string {
	base := strings.Replace(filepath.Base(template), SubtilePlaceholder, "*", -1)
	return filepath.Join(filepath.Dir(template), base)
}

// CellGrid returns how many cells of side length cover b along X and Y.
// A degenerate extent still needs one cell.
func CellGrid(b las.Bounds, length float64) (nx, ny int) {
	cells := func(extent float64) int {
		n := int(math.Ceil(extent / length))
		if n < 1 {
			n = 1
		}
		return n
	}
	return cells(b.Width()), cells(b.Height())
}

// MaxCells returns how many cells of side length the engine may fill along X
// and Y. Cells are half-open, so points lying on the maximum edge of an
// extent that is a multiple of length land in one more cell than CellGrid
// counts.
func MaxCells(b las.Bounds, length float64) (nx, ny int) {
	cells := func(extent float64) int {
		return int(math.Floor(extent/length)) + 1
	}
	return cells(b.Width()), cells(b.Height())
}
