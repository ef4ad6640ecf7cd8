// Package pdal runs point cloud pipelines with the PDAL command line
// application.
package pdal

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/lidarhd/lasprep"
	"github.com/pkg/errors"
)

// DefaultPath is the name of the pdal executable looked up in PATH.
const DefaultPath = "pdal"

var _ lasprep.Engine = &Engine{}

// Engine is a lasprep.Engine which runs `pdal pipeline --stdin` for every
// pipeline, feeding it the pipeline JSON on stdin.
type Engine struct {
	// Path to the pdal executable.
	Path string
	// Args replaces the default "pipeline --stdin" arguments.
	Args []string
	// Env is appended to the environment of the process.
	Env []string
	Log lasprep.Logger
}

// NewEngine returns an Engine running the executable at path, or pdal from
// PATH when path is empty.
func NewEngine(path string) *Engine {
	if path == "" {
		path = DefaultPath
	}
	return &Engine{
		Path: path,
		Args: []string{"pipeline", "--stdin"},
		Log:  lasprep.NopLogger{},
	}
}

// Execute runs p and waits for pdal to exit. Cancelling ctx kills the
// process.
func (e *Engine) Execute(ctx context.Context, p *lasprep.Pipeline) error {
	if err := p.Validate(); err != nil {
		return errors.Wrap(err, "validating pipeline")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding pipeline")
	}
	e.Log.Debugf("pdal pipeline: %s", data)

	cmd := exec.CommandContext(ctx, e.Path, e.Args...)
	cmd.Stdin = bytes.NewReader(data)
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return &lasprep.PipelineError{
			Stages: p.String(),
			Output: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return nil
}

// Version returns the output of `pdal --version`.
func (e *Engine) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, e.Path, "--version").CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "running %s --version: %s", e.Path, bytes.TrimSpace(out))
	}
	return strings.TrimSpace(string(out)), nil
}
