package mock

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lidarhd/lasprep"
	"github.com/lidarhd/lasprep/las"
	"github.com/pkg/errors"
)

var _ lasprep.Engine = &Engine{}

// Engine is a lasprep.Engine which understands just enough of the
// colorization and splitter stages to produce plausible LAS files. Only
// headers are meaningful; point records are zeroed.
type Engine struct {
	lock      sync.Mutex
	pipelines []*lasprep.Pipeline

	// ColorFormat is the point format of colorized output. Defaults to 3.
	ColorFormat uint8
	// FailOn makes every pipeline whose reader file name contains it fail.
	FailOn string
	// DropPoints is removed from the point count of colorized output.
	DropPoints uint64
}

// Pipelines returns every pipeline executed so far.
func (e *Engine) Pipelines() []*lasprep.Pipeline {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]*lasprep.Pipeline(nil), e.pipelines...)
}

// Execute implements lasprep.Engine.
func (e *Engine) Execute(ctx context.Context, p *lasprep.Pipeline) error {
	e.lock.Lock()
	e.pipelines = append(e.pipelines, p)
	e.lock.Unlock()

	if err := ctx.Err(); err != nil {
		return &lasprep.PipelineError{Stages: p.String(), Err: err}
	}
	if err := p.Validate(); err != nil {
		return errors.Wrap(err, "validating pipeline")
	}
	in := p.Reader().Filename
	if e.FailOn != "" && strings.Contains(in, e.FailOn) {
		return &lasprep.PipelineError{
			Stages: p.String(),
			Output: fmt.Sprintf("PDAL: readers.las: failure reading %s", in),
			Err:    errors.New("exit status 1"),
		}
	}
	h, err := las.ReadFile(in)
	if err != nil {
		return &lasprep.PipelineError{Stages: p.String(), Err: err}
	}
	out := p.Writer().Filename

	if s, ok := p.Filter("filters.splitter"); ok {
		return e.split(h, s, out)
	}
	if _, ok := p.Filter("filters.colorization"); ok {
		format := e.ColorFormat
		if format == 0 {
			format = 3
		}
		h.PointFormat = format
		h.PointRecordLength = las.RecordLength(format)
		if e.DropPoints <= h.PointCount {
			h.PointCount -= e.DropPoints
		}
	}
	return writeLAS(out, h)
}

// split writes one file per non-empty cell, numbered from 1 in row-major
// order, spreading the tile's points evenly over the cells.
func (e *Engine) split(h *las.Header, s lasprep.Stage, template string) error {
	length, err := floatOption(s, "length")
	if err != nil {
		return err
	}
	originX, err := floatOption(s, "origin_x")
	if err != nil {
		return err
	}
	originY, err := floatOption(s, "origin_y")
	if err != nil {
		return err
	}
	b := h.Bounds
	nx, ny := lasprep.CellGrid(las.Bounds{MinX: originX, MaxX: b.MaxX, MinY: originY, MaxY: b.MaxY}, length)
	cells := uint64(nx * ny)
	idx := 0
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			n := h.PointCount / cells
			if uint64(j*nx+i) < h.PointCount%cells {
				n++
			}
			if n == 0 {
				continue
			}
			idx++
			sub := *h
			sub.PointCount = n
			sub.Bounds = las.Bounds{
				MinX: math.Max(b.MinX, originX+float64(i)*length),
				MaxX: math.Min(b.MaxX, originX+float64(i+1)*length),
				MinY: math.Max(b.MinY, originY+float64(j)*length),
				MaxY: math.Min(b.MaxY, originY+float64(j+1)*length),
				MinZ: b.MinZ,
				MaxZ: b.MaxZ,
			}
			name := strings.Replace(filepath.Base(template), lasprep.SubtilePlaceholder, fmt.Sprint(idx), 1)
			path := filepath.Join(filepath.Dir(template), name)
			if err := writeLAS(path, &sub); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeLAS(path string, h *las.Header) error {
	points := make([]byte, h.PointCount*uint64(h.PointRecordLength))
	if err := las.WriteFile(path, h, points); err != nil {
		return &lasprep.PipelineError{Stages: "writers.las", Err: err}
	}
	return nil
}

func floatOption(s lasprep.Stage, name string) (float64, error) {
	v, ok := s.Option(name)
	if !ok {
		return 0, errors.Errorf("%s: missing option %s", s.Type, name)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, errors.Errorf("%s: option %s is %T", s.Type, name, v)
}
