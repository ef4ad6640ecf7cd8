package lasprep_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lidarhd/lasprep"
)

func TestPipelineJSON(t *testing.T) {
	p := lasprep.NewPipeline(
		lasprep.ReadLAS("tile.las"),
		lasprep.Colorization("ortho.tif"),
		lasprep.WriteLAS("out.las", map[string]interface{}{
			"forward":    "scale,offset",
			"extra_dims": "all",
		}),
	)
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshalling: %v", err)
	}
	want := `{"pipeline":[` +
		`{"filename":"tile.las","type":"readers.las"},` +
		`{"raster":"ortho.tif","type":"filters.colorization"},` +
		`{"extra_dims":"all","filename":"out.las","forward":"scale,offset","type":"writers.las"}]}`
	if string(data) != want {
		t.Fatalf("unexpected JSON:\n got %s\nwant %s", data, want)
	}

	got := &lasprep.Pipeline{}
	if err := json.Unmarshal(data, got); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("pipeline mismatch (-want +got):\n%s", diff)
	}
}

func TestStageUnmarshalNoType(t *testing.T) {
	s := &lasprep.Stage{}
	if err := json.Unmarshal([]byte(`{"filename":"x.las"}`), s); err == nil {
		t.Fatal("expected error for stage without type")
	}
}

func TestPipelineValidate(t *testing.T) {
	tests := []struct {
		name string
		p    *lasprep.Pipeline
		ok   bool
	}{
		{"read write", lasprep.NewPipeline(lasprep.ReadLAS("a"), lasprep.WriteLAS("b", nil)), true},
		{"empty", lasprep.NewPipeline(), false},
		{"writer first", lasprep.NewPipeline(lasprep.WriteLAS("b", nil), lasprep.ReadLAS("a")), false},
		{"no writer", lasprep.NewPipeline(lasprep.ReadLAS("a"), lasprep.Colorization("o")), false},
	}
	for _, tst := range tests {
		err := tst.p.Validate()
		if (err == nil) != tst.ok {
			t.Errorf("%s: Validate() = %v", tst.name, err)
		}
	}
}

func TestPipelineAccessors(t *testing.T) {
	p := lasprep.NewPipeline(lasprep.ReadLAS("a.las"), lasprep.Colorization("o.tif"), lasprep.WriteLAS("b.las", nil))
	if p.Reader().Filename != "a.las" || p.Writer().Filename != "b.las" {
		t.Errorf("reader %v writer %v", p.Reader(), p.Writer())
	}
	s, ok := p.Filter("filters.colorization")
	if !ok {
		t.Fatal("colorization filter not found")
	}
	if v, _ := s.Option("raster"); v != "o.tif" {
		t.Errorf("raster = %v", v)
	}
	if _, ok := p.Filter("filters.splitter"); ok {
		t.Error("found a splitter which isn't there")
	}
	if p.String() != "readers.las > filters.colorization > writers.las" {
		t.Errorf("String() = %s", p)
	}
}
