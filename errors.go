package lasprep

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNoIdentifierFound is returned when a path holds no tile identifier.
	ErrNoIdentifierFound = errors.New("no tile identifier found")

	// ErrArchiveCorrupt is returned when a tile archive can't be read as a
	// zip file.
	ErrArchiveCorrupt = errors.New("tile archive corrupt")
)

// NoMatchError is returned when no orthoimage contains a tile's key.
type NoMatchError struct {
	Identifier string
	Key        string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no orthoimage matches tile %s (key %q)", e.Identifier, e.Key)
}

// AmbiguousMatchError is returned when more than one orthoimage contains a
// tile's key. Candidates are in input order, so Candidates[0] is what a
// first-match policy would have picked.
type AmbiguousMatchError struct {
	Identifier string
	Key        string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%d orthoimages match tile %s (key %q): %s",
		len(e.Candidates), e.Identifier, e.Key, strings.Join(e.Candidates, ", "))
}

// CountMismatchError is returned by Matcher.MatchAll when the number of
// matched orthoimages differs from the number of tiles.
type CountMismatchError struct {
	Tiles   int
	Matched int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("matched %d orthoimages for %d tiles", e.Matched, e.Tiles)
}

// PipelineError is returned by an Engine when a pipeline fails to run.
type PipelineError struct {
	Stages string
	Output string
	Err    error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("executing pipeline [%s]: %v", e.Stages, e.Err)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

// PostConditionError is returned when an engine run succeeded but its output
// doesn't satisfy what the stage promises, e.g. a colorized tile lost points.
type PostConditionError struct {
	Path   string
	Reason string
}

func (e *PostConditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// TileError ties an error to the tile being processed when it happened.
type TileError struct {
	Identifier  string
	ArchivePath string
	Err         error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("tile %s (%s): %v", e.Identifier, e.ArchivePath, e.Err)
}

// Cause returns the underlying error.
func (e *TileError) Cause() error { return e.Err }

// RunErrors collects the per-tile failures of a run which was allowed to
// continue past them.
type RunErrors []*TileError

func (errs RunErrors) Error() string {
	errstrings := make([]string, len(errs))
	for i, err := range errs {
		errstrings[i] = err.Error()
	}
	return fmt.Sprintf("%d tiles failed: %s", len(errs), strings.Join(errstrings, "; "))
}
