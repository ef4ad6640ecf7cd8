package lasprep_test

import (
	"testing"

	"github.com/lidarhd/lasprep"
	"github.com/pkg/errors"
)

func TestExtractIdentifier(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "data/download/las/LIDARHD_0123456-7890.las.zip", want: "0123456-7890"},
		{path: "1234-5678.las", want: "1234-5678"},
		{path: "x_1234567890-1234_y", want: "1234567890-1234"},
		// the first match wins, directories included
		{path: "0000-1111/tile_2222-3333.las.zip", want: "0000-1111"},
		// only four digits are taken after the hyphen
		{path: "tile_12345-678901.las", want: "12345-6789"},
	}
	for _, tst := range tests {
		got, err := lasprep.ExtractIdentifier(tst.path)
		if err != nil {
			t.Errorf("%s: %v", tst.path, err)
			continue
		}
		if got != tst.want {
			t.Errorf("%s: got %q, want %q", tst.path, got, tst.want)
		}
	}
}

func TestExtractIdentifierNone(t *testing.T) {
	for _, path := range []string{"", "tile.las.zip", "123-4567.las", "1234_5678.las", "1234-567.las"} {
		_, err := lasprep.ExtractIdentifier(path)
		if errors.Cause(err) != lasprep.ErrNoIdentifierFound {
			t.Errorf("%q: expected ErrNoIdentifierFound, got %v", path, err)
		}
	}
}
