package lasprep_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lidarhd/lasprep"
	"github.com/lidarhd/lasprep/las"
	"github.com/lidarhd/lasprep/mock"
	"github.com/lidarhd/lasprep/test"
	"github.com/pkg/errors"
)

func colorizeFixture(t *testing.T) (lasPath, orthoPath string) {
	dir := t.TempDir()
	lasPath = filepath.Join(dir, "LIDAR_0001-0001.las")
	test.WriteLAS(t, lasPath, test.TileHeader(700000, 6600000, 120, 1000))
	orthoPath = filepath.Join(dir, "ORTHO_0001-0001_0.1_RGB.tif")
	test.Touch(t, orthoPath)
	return lasPath, orthoPath
}

func TestColorize(t *testing.T) {
	lasPath, orthoPath := colorizeFixture(t)
	before, err := las.ReadFile(lasPath)
	test.ErrNil(t, err, "reading input")

	eng := &mock.Engine{}
	c := lasprep.NewColorizer(eng)
	test.ErrNil(t, c.Colorize(context.Background(), lasPath, orthoPath), "Colorize")

	after, err := las.ReadFile(lasPath)
	test.ErrNil(t, err, "reading output")
	test.MustBe(t, after.PointCount, before.PointCount, "point count")
	test.MustBe(t, after.Bounds, before.Bounds, "bounds")
	if !after.HasColor() {
		t.Errorf("point format %d has no color", after.PointFormat)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(lasPath), "LIDAR_0001-0001.colorizing.las")); !os.IsNotExist(err) {
		t.Errorf("temporary output left behind: %v", err)
	}

	// a second run only re-samples colors
	test.ErrNil(t, c.Colorize(context.Background(), lasPath, orthoPath), "Colorize again")
	again, err := las.ReadFile(lasPath)
	test.ErrNil(t, err, "reading output")
	test.MustBe(t, again, after, "second colorization changed the header")
}

func TestColorizePipeline(t *testing.T) {
	c := lasprep.NewColorizer(&mock.Engine{})
	c.DataFormat = 8
	p := c.Pipeline("in.las", "ortho.tif", "out.laz")
	test.MustBe(t, p.String(), "readers.las > filters.colorization > writers.las")
	w := p.Writer()
	for opt, want := range map[string]interface{}{
		"forward":       "scale,offset",
		"extra_dims":    "all",
		"dataformat_id": 8,
		"compression":   "laszip",
	} {
		got, _ := w.Option(opt)
		test.MustBe(t, got, want, opt)
	}

	p = lasprep.NewColorizer(&mock.Engine{}).Pipeline("in.las", "ortho.tif", "out.las")
	if _, ok := p.Writer().Option("dataformat_id"); ok {
		t.Error("dataformat_id set without DataFormat")
	}
	if _, ok := p.Writer().Option("compression"); ok {
		t.Error("compression set for .las output")
	}
}

func TestColorizeEngineFailure(t *testing.T) {
	lasPath, orthoPath := colorizeFixture(t)
	orig, err := os.ReadFile(lasPath)
	test.ErrNil(t, err, "reading input")

	eng := &mock.Engine{FailOn: "LIDAR_0001-0001"}
	err = lasprep.NewColorizer(eng).Colorize(context.Background(), lasPath, orthoPath)
	if _, ok := errors.Cause(err).(*lasprep.PipelineError); !ok {
		t.Fatalf("expected *PipelineError, got %T: %v", errors.Cause(err), err)
	}
	got, err := os.ReadFile(lasPath)
	test.ErrNil(t, err, "reading input after failure")
	test.MustBe(t, got, orig, "input modified by failed run")
}

func TestColorizePostConditions(t *testing.T) {
	tests := []struct {
		name string
		eng  *mock.Engine
	}{
		{name: "points lost", eng: &mock.Engine{DropPoints: 1}},
		{name: "no color", eng: &mock.Engine{ColorFormat: 1}},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			lasPath, orthoPath := colorizeFixture(t)
			err := lasprep.NewColorizer(tst.eng).Colorize(context.Background(), lasPath, orthoPath)
			if _, ok := errors.Cause(err).(*lasprep.PostConditionError); !ok {
				t.Fatalf("expected *PostConditionError, got %v", err)
			}
			h, err := las.ReadFile(lasPath)
			test.ErrNil(t, err, "reading input")
			test.MustBe(t, h.PointFormat, uint8(1), "input replaced despite failed check")
			entries, err := os.ReadDir(filepath.Dir(lasPath))
			test.ErrNil(t, err, "ReadDir")
			test.MustBe(t, len(entries), 2, "temporary output left behind")
		})
	}
}

func TestColorizeMissingOrtho(t *testing.T) {
	lasPath, _ := colorizeFixture(t)
	eng := &mock.Engine{}
	err := lasprep.NewColorizer(eng).Colorize(context.Background(), lasPath, "/nonexistent/ortho.tif")
	if err == nil {
		t.Fatal("expected error for missing orthoimage")
	}
	test.MustBe(t, len(eng.Pipelines()), 0, "engine ran without orthoimage")
}
