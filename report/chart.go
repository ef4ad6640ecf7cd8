// Package report renders summaries of a preparation run.
package report

import (
	"fmt"

	"github.com/lidarhd/lasprep"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ChartName is the file name of the split chart inside the colorized
// directory.
const ChartName = "dataset_split.png"

// SplitChart returns a bar chart of the number of tiles per split, in train,
// val, test order.
func SplitChart(counts map[lasprep.Split]int) (*plot.Plot, error) {
	values := make(plotter.Values, len(lasprep.Splits))
	names := make([]string, len(lasprep.Splits))
	total := 0
	for i, s := range lasprep.Splits {
		values[i] = float64(counts[s])
		names[i] = fmt.Sprintf("%s (%d)", s, counts[s])
		total += counts[s]
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Tiles per split (%d total)", total)
	p.Y.Label.Text = "tiles"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return nil, errors.Wrap(err, "creating bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}

// WriteSplitChart renders SplitChart for counts to path. The format follows
// the extension of path, e.g. .png or .svg.
func WriteSplitChart(path string, counts map[lasprep.Split]int) error {
	p, err := SplitChart(counts)
	if err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving chart to %s", path)
	}
	return nil
}
