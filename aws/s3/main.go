package s3

import (
	"context"
	"os"

	"github.com/lidarhd/lasprep"
	"github.com/lidarhd/lasprep/file"
	"github.com/pkg/errors"
)

// Main holds the configuration of the fetch command.
type Main struct {
	Bucket   string `help:"S3 bucket name from which to download tiles and orthoimages."`
	Prefix   string `help:"Key prefix under which the las/ and orthos/ folders live."`
	Region   string `help:"AWS region to use."`
	InputDir string `help:"Local directory to download into; files land in its las/ and orthos/ folders."`
	Verbose  bool   `help:"Enable verbose logging."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Region:   "eu-west-3",
		InputDir: "./data/download/",
	}
}

// Run downloads everything missing locally.
func (m *Main) Run(ctx context.Context) error {
	logger := lasprep.NewLogger(os.Stderr, m.Verbose)
	f, err := NewFetcher(file.NewLayout(m.InputDir),
		OptFetchBucket(m.Bucket),
		OptFetchPrefix(m.Prefix),
		OptFetchRegion(m.Region),
		OptFetchLogger(logger),
	)
	if err != nil {
		return errors.Wrap(err, "getting s3 fetcher")
	}
	res, err := f.Fetch(ctx)
	if err != nil {
		return errors.Wrap(err, "fetching")
	}
	logger.Printf("downloaded %d files (%d bytes), %d already present", res.Downloaded, res.Bytes, res.Skipped)
	return nil
}
