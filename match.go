package lasprep

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Raster resolution tags embedded in orthoimage file names.
const (
	Resolution10cm = "0.1"
	Resolution2m   = "2"
)

// Resolutions lists the supported raster resolution tags.
var Resolutions = []string{Resolution10cm, Resolution2m}

// ValidResolution reports whether res is a supported resolution tag.
func ValidResolution(res string) bool {
	for _, r := range Resolutions {
		if r == res {
			return true
		}
	}
	return false
}

// Matcher associates tiles with orthoimages of one raster resolution.
type Matcher struct {
	Resolution string
}

// NewMatcher returns a Matcher for the given resolution tag.
func NewMatcher(resolution string) (*Matcher, error) {
	if !ValidResolution(resolution) {
		return nil, errors.Errorf("unsupported raster resolution %q, want one of %v", resolution, Resolutions)
	}
	return &Matcher{Resolution: resolution}, nil
}

// Key returns the string an orthoimage name must contain to belong to the
// tile with identifier id.
func (m *Matcher) Key(id string) string {
	return strings.Replace(id, "_", "-", -1) + "_" + m.Resolution
}

// Match returns the single orthoimage whose base name contains the key for
// id. Zero matches yield a *NoMatchError and more than one an
// *AmbiguousMatchError listing every candidate.
func (m *Matcher) Match(id string, orthos []string) (string, error) {
	key := m.Key(id)
	var candidates []string
	for _, o := range orthos {
		if strings.Contains(filepath.Base(o), key) {
			candidates = append(candidates, o)
		}
	}
	switch len(candidates) {
	case 0:
		return "", &NoMatchError{Identifier: id, Key: key}
	case 1:
		return candidates[0], nil
	default:
		return "", &AmbiguousMatchError{Identifier: id, Key: key, Candidates: candidates}
	}
}

// MatchTile extracts the identifier from tilePath and matches it.
func (m *Matcher) MatchTile(tilePath string, orthos []string) (id, ortho string, err error) {
	id, err = ExtractIdentifier(tilePath)
	if err != nil {
		return "", "", err
	}
	ortho, err = m.Match(id, orthos)
	if err != nil {
		return id, "", errors.Wrapf(err, "matching %s", filepath.Base(tilePath))
	}
	return id, ortho, nil
}

// MatchAll matches every tile and returns the orthoimages in tile order. The
// first failure is returned as is; no partial result is produced.
func (m *Matcher) MatchAll(tiles, orthos []string) ([]string, error) {
	matches := make([]string, 0, len(tiles))
	for _, tile := range tiles {
		_, ortho, err := m.MatchTile(tile, orthos)
		if err != nil {
			return nil, err
		}
		matches = append(matches, ortho)
	}
	if len(matches) != len(tiles) {
		return nil, &CountMismatchError{Tiles: len(tiles), Matched: len(matches)}
	}
	return matches, nil
}
