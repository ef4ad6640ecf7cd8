package lasprep

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/lidarhd/lasprep/las"
	"github.com/pkg/errors"
)

// Colorizer paints the points of a LAS file with the colors of an
// orthoimage.
type Colorizer struct {
	Engine Engine
	// DataFormat forces the LAS point format of the output. Zero lets the
	// engine pick one.
	DataFormat int
	Log        Logger
}

// NewColorizer returns a Colorizer running its pipelines on engine.
func NewColorizer(engine Engine) *Colorizer {
	return &Colorizer{Engine: engine, Log: NopLogger{}}
}

// Pipeline returns the pipeline which reads lasPath, samples orthoPath and
// writes the result to outPath.
func (c *Colorizer) Pipeline(lasPath, orthoPath, outPath string) *Pipeline {
	opts := map[string]interface{}{
		"forward":    "scale,offset",
		"extra_dims": "all",
	}
	if c.DataFormat != 0 {
		opts["dataformat_id"] = c.DataFormat
	}
	if strings.EqualFold(filepath.Ext(outPath), ".laz") {
		opts["compression"] = "laszip"
	}
	return NewPipeline(ReadLAS(lasPath), Colorization(orthoPath), WriteLAS(outPath, opts))
}

// Colorize replaces the file at lasPath with a colorized copy. The engine
// writes next to the input and the result is renamed over it only once the
// engine succeeded and the output kept every point of the input, so a failed
// run leaves the original untouched.
func (c *Colorizer) Colorize(ctx context.Context, lasPath, orthoPath string) error {
	if _, err := os.Stat(orthoPath); err != nil {
		return errors.Wrap(err, "checking orthoimage")
	}
	before, err := las.ReadFile(lasPath)
	if err != nil {
		return errors.Wrap(err, "reading input header")
	}

	tmp := colorizingPath(lasPath)
	defer os.Remove(tmp)

	p := c.Pipeline(lasPath, orthoPath, tmp)
	c.Log.Debugf("colorizing %s with %s", filepath.Base(lasPath), filepath.Base(orthoPath))
	if err := c.Engine.Execute(ctx, p); err != nil {
		return errors.Wrapf(err, "colorizing %s", filepath.Base(lasPath))
	}

	after, err := las.ReadFile(tmp)
	if err != nil {
		return errors.Wrap(err, "reading colorized header")
	}
	if err := checkColorized(tmp, before, after); err != nil {
		return err
	}
	return errors.Wrap(os.Rename(tmp, lasPath), "replacing tile with colorized copy")
}

// colorizingPath returns the temporary output path for lasPath, keeping its
// extension: tile.las becomes tile.colorizing.las.
func colorizingPath(lasPath string) string {
	ext := filepath.Ext(lasPath)
	return strings.TrimSuffix(lasPath, ext) + ".colorizing" + ext
}

func checkColorized(path string, before, after *las.Header) error {
	if after.PointCount != before.PointCount {
		return &PostConditionError{Path: path, Reason: fmt.Sprintf("point count changed from %d to %d", before.PointCount, after.PointCount)}
	}
	if !boundsClose(before.Bounds, after.Bounds, before.Scale) {
		return &PostConditionError{Path: path, Reason: fmt.Sprintf("bounds changed from %+v to %+v", before.Bounds, after.Bounds)}
	}
	if !after.HasColor() {
		return &PostConditionError{Path: path, Reason: fmt.Sprintf("point format %d carries no RGB", after.PointFormat)}
	}
	return nil
}

// boundsClose compares two boxes up to one quantization step per axis.
func boundsClose(a, b las.Bounds, scale [3]float64) bool {
	near := func(x, y, step float64) bool {
		return math.Abs(x-y) <= step
	}
	return near(a.MinX, b.MinX, scale[0]) && near(a.MaxX, b.MaxX, scale[0]) &&
		near(a.MinY, b.MinY, scale[1]) && near(a.MaxY, b.MaxY, scale[1]) &&
		near(a.MinZ, b.MinZ, scale[2]) && near(a.MaxZ, b.MaxZ, scale[2])
}
