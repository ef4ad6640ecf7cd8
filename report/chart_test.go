package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/lidarhd/lasprep"
)

func TestWriteSplitChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), ChartName)
	counts := map[lasprep.Split]int{lasprep.SplitTrain: 6, lasprep.SplitVal: 2, lasprep.SplitTest: 2}
	if err := WriteSplitChart(path, counts); err != nil {
		t.Fatalf("writing chart: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading chart: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("not a PNG: % x", data[:8])
	}
}

func TestSplitChartEmpty(t *testing.T) {
	p, err := SplitChart(nil)
	if err != nil {
		t.Fatalf("charting no tiles: %v", err)
	}
	if p.Title.Text != "Tiles per split (0 total)" {
		t.Errorf("title: %q", p.Title.Text)
	}
}
