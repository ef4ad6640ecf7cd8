package pdal

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lidarhd/lasprep"
	"github.com/pkg/errors"
)

// helperEngine returns an Engine which re-runs the test binary as a fake
// pdal, see TestHelperProcess.
func helperEngine(env ...string) *Engine {
	e := NewEngine(os.Args[0])
	e.Args = []string{"-test.run=TestHelperProcess", "--", "pipeline", "--stdin"}
	e.Env = append([]string{"GO_WANT_HELPER_PROCESS=1"}, env...)
	return e
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	data, err := ioutil.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading stdin: %v", err)
		os.Exit(2)
	}
	if msg := os.Getenv("HELPER_FAIL"); msg != "" {
		fmt.Fprint(os.Stderr, msg)
		os.Exit(1)
	}
	if out := os.Getenv("HELPER_OUT"); out != "" {
		if err := ioutil.WriteFile(out, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "writing pipeline: %v", err)
			os.Exit(2)
		}
	}
	os.Exit(0)
}

func colorizePipeline() *lasprep.Pipeline {
	return lasprep.NewPipeline(
		lasprep.ReadLAS("in.las"),
		lasprep.Colorization("ortho.tif"),
		lasprep.WriteLAS("out.las", map[string]interface{}{"extra_dims": "all"}),
	)
}

func TestExecuteFeedsPipelineOnStdin(t *testing.T) {
	out := filepath.Join(t.TempDir(), "pipeline.json")
	e := helperEngine("HELPER_OUT=" + out)

	if err := e.Execute(context.Background(), colorizePipeline()); err != nil {
		t.Fatalf("executing: %v", err)
	}

	data, err := ioutil.ReadFile(out)
	if err != nil {
		t.Fatalf("reading pipeline written by helper: %v", err)
	}
	got := &lasprep.Pipeline{}
	if err := json.Unmarshal(data, got); err != nil {
		t.Fatalf("decoding %s: %v", data, err)
	}
	if got.String() != "readers.las > filters.colorization > writers.las" {
		t.Errorf("unexpected stages: %s", got)
	}
	if raster, _ := got.Stages[1].Option("raster"); raster != "ortho.tif" {
		t.Errorf("raster option: %v", raster)
	}
	if got.Writer().Filename != "out.las" {
		t.Errorf("writer filename: %s", got.Writer().Filename)
	}
}

func TestExecuteFailure(t *testing.T) {
	e := helperEngine("HELPER_FAIL=PDAL: readers.las: Unable to open stream for 'in.las'")

	err := e.Execute(context.Background(), colorizePipeline())
	perr, ok := errors.Cause(err).(*lasprep.PipelineError)
	if !ok {
		t.Fatalf("expected *PipelineError, got %T: %v", err, err)
	}
	if !strings.Contains(perr.Output, "Unable to open stream") {
		t.Errorf("stderr not captured: %q", perr.Output)
	}
	if perr.Stages != "readers.las > filters.colorization > writers.las" {
		t.Errorf("stages: %q", perr.Stages)
	}
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := helperEngine().Execute(ctx, colorizePipeline())
	perr, ok := err.(*lasprep.PipelineError)
	if !ok {
		t.Fatalf("expected *PipelineError, got %T: %v", err, err)
	}
	if perr.Err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", perr.Err)
	}
}

func TestExecuteRejectsInvalidPipeline(t *testing.T) {
	e := NewEngine("/nonexistent/pdal")
	p := lasprep.NewPipeline(lasprep.Colorization("ortho.tif"))
	err := e.Execute(context.Background(), p)
	if err == nil {
		t.Fatal("expected error for pipeline without reader")
	}
	if _, ok := errors.Cause(err).(*lasprep.PipelineError); ok {
		t.Fatalf("invalid pipeline should not reach the engine: %v", err)
	}
}

func TestPDALVersion(t *testing.T) {
	path, err := exec.LookPath(DefaultPath)
	if err != nil {
		t.Skip("pdal not installed")
	}
	v, err := NewEngine(path).Version(context.Background())
	if err != nil {
		t.Fatalf("getting version: %v", err)
	}
	if !strings.Contains(v, "pdal") {
		t.Errorf("unexpected version output: %q", v)
	}
}
