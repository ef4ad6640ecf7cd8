package lasprep

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Engine runs point cloud pipelines. Implementations block until the
// pipeline has finished and return a *PipelineError when any stage fails.
type Engine interface {
	Execute(ctx context.Context, p *Pipeline) error
}

// Stage is one step of a pipeline: a reader, a filter or a writer.
type Stage struct {
	Type     string
	Filename string
	Options  map[string]interface{}
}

// MarshalJSON flattens the stage into a single object with "type",
// "filename" and the options side by side.
func (s Stage) MarshalJSON() ([]byte, error) {
	obj := make(map[string]interface{}, len(s.Options)+2)
	for k, v := range s.Options {
		obj[k] = v
	}
	obj["type"] = s.Type
	if s.Filename != "" {
		obj["filename"] = s.Filename
	}
	return json.Marshal(obj)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	typ, ok := obj["type"].(string)
	if !ok {
		return errors.New("stage has no type")
	}
	s.Type = typ
	delete(obj, "type")
	if fn, ok := obj["filename"].(string); ok {
		s.Filename = fn
		delete(obj, "filename")
	}
	s.Options = nil
	if len(obj) > 0 {
		s.Options = obj
	}
	return nil
}

// Option returns the named option and whether it is set.
func (s Stage) Option(name string) (interface{}, bool) {
	v, ok := s.Options[name]
	return v, ok
}

// IsReader reports whether the stage reads input.
func (s Stage) IsReader() bool { return strings.HasPrefix(s.Type, "readers.") }

// IsWriter reports whether the stage writes output.
func (s Stage) IsWriter() bool { return strings.HasPrefix(s.Type, "writers.") }

// ReadLAS returns a LAS reader stage.
func ReadLAS(filename string) Stage {
	return Stage{Type: "readers.las", Filename: filename}
}

// WriteLAS returns a LAS writer stage with the given writer options, e.g.
// "forward" or "extra_dims".
func WriteLAS(filename string, opts map[string]interface{}) Stage {
	return Stage{Type: "writers.las", Filename: filename, Options: opts}
}

// Colorization returns a filter stage sampling RGB values from raster.
func Colorization(raster string) Stage {
	return Stage{Type: "filters.colorization", Options: map[string]interface{}{"raster": raster}}
}

// Pipeline is an ordered list of stages.
type Pipeline struct {
	Stages []Stage
}

// NewPipeline returns a pipeline of the given stages.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{Stages: stages}
}

type pipelineJSON struct {
	Pipeline []Stage `json:"pipeline"`
}

// MarshalJSON encodes the pipeline as {"pipeline": [...]}.
func (p *Pipeline) MarshalJSON() ([]byte, error) {
	return json.Marshal(pipelineJSON{Pipeline: p.Stages})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (p *Pipeline) UnmarshalJSON(data []byte) error {
	var pj pipelineJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	p.Stages = pj.Pipeline
	return nil
}

// Validate checks that the pipeline starts with a reader and ends with a
// writer.
func (p *Pipeline) Validate() error {
	if len(p.Stages) < 2 {
		return errors.Errorf("pipeline needs a reader and a writer, got %d stages", len(p.Stages))
	}
	if first := p.Stages[0]; !first.IsReader() {
		return errors.Errorf("first stage must be a reader, got %s", first.Type)
	}
	if last := p.Stages[len(p.Stages)-1]; !last.IsWriter() {
		return errors.Errorf("last stage must be a writer, got %s", last.Type)
	}
	return nil
}

// Reader returns the first stage.
func (p *Pipeline) Reader() Stage { return p.Stages[0] }

// Writer returns the last stage.
func (p *Pipeline) Writer() Stage { return p.Stages[len(p.Stages)-1] }

// Filter returns the first stage of type typ.
func (p *Pipeline) Filter(typ string) (Stage, bool) {
	for _, s := range p.Stages {
		if s.Type == typ {
			return s, true
		}
	}
	return Stage{}, false
}

// String lists the stage types, e.g. "readers.las > filters.colorization >
// writers.las".
func (p *Pipeline) String() string {
	types := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		types[i] = s.Type
	}
	return strings.Join(types, " > ")
}
