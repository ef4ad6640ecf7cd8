// Package s3 downloads tile archives and orthoimages from an S3 bucket into
// the local input layout.
package s3

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/lidarhd/lasprep"
	"github.com/lidarhd/lasprep/file"
	"github.com/pkg/errors"
)

// FetchOption is a functional option for NewFetcher.
type FetchOption func(f *Fetcher)

// OptFetchBucket sets the bucket to download from.
func OptFetchBucket(bucket string) FetchOption {
	return func(f *Fetcher) {
		f.bucket = bucket
	}
}

// OptFetchPrefix sets the key prefix under which the las/ and orthos/
// folders live.
func OptFetchPrefix(prefix string) FetchOption {
	return func(f *Fetcher) {
		f.prefix = prefix
	}
}

// OptFetchRegion sets the AWS region.
func OptFetchRegion(region string) FetchOption {
	return func(f *Fetcher) {
		f.region = region
	}
}

// OptFetchClient makes the fetcher use client instead of creating one.
func OptFetchClient(client s3iface.S3API) FetchOption {
	return func(f *Fetcher) {
		f.s3 = client
	}
}

// OptFetchLogger sets the logger.
func OptFetchLogger(log lasprep.Logger) FetchOption {
	return func(f *Fetcher) {
		f.log = log
	}
}

// Fetcher mirrors <prefix>las/ and <prefix>orthos/ of a bucket into a local
// file.Layout.
type Fetcher struct {
	bucket string
	prefix string
	region string

	s3     s3iface.S3API
	layout *file.Layout
	log    lasprep.Logger
}

// NewFetcher returns a Fetcher writing into layout.
func NewFetcher(layout *file.Layout, opts ...FetchOption) (*Fetcher, error) {
	f := &Fetcher{
		layout: layout,
		log:    lasprep.NopLogger{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.bucket == "" {
		return nil, errors.New("no bucket given")
	}
	if f.s3 == nil {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(f.region)},
		)
		if err != nil {
			return nil, errors.Wrap(err, "getting new session")
		}
		f.s3 = s3.New(sess)
	}
	return f, nil
}

// FetchResult counts what a Fetch did.
type FetchResult struct {
	Downloaded int
	Skipped    int
	Bytes      int64
}

type folder struct {
	remote string
	local  string
	accept func(name string) bool
}

// Fetch downloads every tile archive and orthoimage which is missing
// locally or whose local size differs from the object's.
func (f *Fetcher) Fetch(ctx context.Context) (*FetchResult, error) {
	res := &FetchResult{}
	folders := []folder{
		{remote: file.TilesDir + "/", local: f.layout.TilesPath(), accept: file.IsTile},
		{remote: file.OrthosDir + "/", local: f.layout.OrthosPath(), accept: file.IsOrtho},
	}
	for _, fo := range folders {
		objects, err := f.list(ctx, f.prefix+fo.remote)
		if err != nil {
			return res, err
		}
		if err := os.MkdirAll(fo.local, 0755); err != nil {
			return res, errors.Wrap(err, "making local directory")
		}
		for _, obj := range objects {
			key := aws.StringValue(obj.Key)
			name := path.Base(key)
			if strings.HasSuffix(key, "/") || !fo.accept(name) {
				continue
			}
			dest := filepath.Join(fo.local, name)
			if fi, err := os.Stat(dest); err == nil && fi.Size() == aws.Int64Value(obj.Size) {
				f.log.Debugf("skipping %s, already present", key)
				res.Skipped++
				continue
			}
			n, err := f.download(ctx, key, dest)
			if err != nil {
				return res, err
			}
			f.log.Printf("fetched s3://%s/%s (%d bytes)", f.bucket, key, n)
			res.Downloaded++
			res.Bytes += n
		}
	}
	return res, nil
}

func (f *Fetcher) list(ctx context.Context, prefix string) ([]*s3.Object, error) {
	var objects []*s3.Object
	err := f.s3.ListObjectsPagesWithContext(ctx, &s3.ListObjectsInput{
		Bucket: aws.String(f.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsOutput, lastPage bool) bool {
		objects = append(objects, page.Contents...)
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing s3://%s/%s", f.bucket, prefix)
	}
	return objects, nil
}

// download writes the object to a temporary file next to dest and renames
// it into place once complete.
func (f *Fetcher) download(ctx context.Context, key, dest string) (int64, error) {
	result, err := f.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, errors.Wrapf(err, "fetching %v", key)
	}
	defer result.Body.Close()

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, errors.Wrap(err, "creating file")
	}
	defer os.Remove(tmp)
	n, err := io.Copy(out, result.Body)
	if err != nil {
		out.Close()
		return 0, errors.Wrapf(err, "reading %v", key)
	}
	if err := out.Close(); err != nil {
		return 0, errors.Wrap(err, "closing file")
	}
	return n, errors.Wrap(os.Rename(tmp, dest), "renaming download into place")
}
