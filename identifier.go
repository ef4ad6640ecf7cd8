package lasprep

import (
	"regexp"

	"github.com/pkg/errors"
)

// identifierPattern matches tile identifiers such as "0123456-7890": 4 to 10
// digits, a hyphen, then exactly 4 digits.
var identifierPattern = regexp.MustCompile(`[0-9]{4,10}-[0-9]{4}`)

// ExtractIdentifier returns the first tile identifier found in path. The
// whole path is searched, not just the base name.
func ExtractIdentifier(path string) (string, error) {
	id := identifierPattern.FindString(path)
	if id == "" {
		return "", errors.Wrapf(ErrNoIdentifierFound, "path %q", path)
	}
	return id, nil
}
