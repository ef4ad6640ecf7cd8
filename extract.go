package lasprep

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
)

// Extractor expands tile archives into DestDir.
type Extractor struct {
	DestDir string
	Log     Logger
}

// NewExtractor returns an Extractor writing into destDir.
func NewExtractor(destDir string) *Extractor {
	return &Extractor{DestDir: destDir, Log: NopLogger{}}
}

// Extract expands every member of the zip archive at path into DestDir and
// returns the path of the last regular file extracted. Tile archives are
// expected to hold a single LAS file; when there are more members a warning
// is logged and the last one is still returned.
func (e *Extractor) Extract(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		if zr != nil {
			zr.Close()
		}
		if isZipFormatError(err) {
			return "", errors.Wrapf(ErrArchiveCorrupt, "%s: %v", path, err)
		}
		return "", errors.Wrap(err, "opening tile archive")
	}
	defer zr.Close()

	if err := os.MkdirAll(e.DestDir, 0755); err != nil {
		return "", errors.Wrap(err, "making destination directory")
	}

	var last string
	var nfiles int
	for _, f := range zr.File {
		target, err := e.memberPath(f.Name)
		if err != nil {
			return "", errors.Wrapf(err, "extracting %s", path)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return "", errors.Wrapf(err, "making directory for member %s", f.Name)
			}
			continue
		}
		if err := extractMember(f, target); err != nil {
			return "", errors.Wrapf(err, "extracting member %s of %s", f.Name, path)
		}
		last = target
		nfiles++
	}
	if nfiles == 0 {
		return "", errors.Wrapf(ErrArchiveCorrupt, "%s: archive holds no files", path)
	}
	if nfiles > 1 {
		e.Log.Printf("warning: %s holds %d files, using the last one: %s", filepath.Base(path), nfiles, filepath.Base(last))
	}
	return last, nil
}

// memberPath resolves a member name inside DestDir, rejecting names which
// would land outside of it.
func (e *Extractor) memberPath(name string) (string, error) {
	dest, err := filepath.Abs(e.DestDir)
	if err != nil {
		return "", errors.Wrap(err, "resolving destination directory")
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", errors.Errorf("member %q escapes destination directory", name)
	}
	return filepath.Join(e.DestDir, filepath.FromSlash(name)), nil
}

func extractMember(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrap(err, "making parent directory")
	}
	rc, err := f.Open()
	if err != nil {
		if isZipFormatError(err) {
			return errors.Wrapf(ErrArchiveCorrupt, "opening member: %v", err)
		}
		return errors.Wrap(err, "opening member")
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	mr := &memberReader{r: rc}
	if _, err := io.Copy(out, mr); err != nil {
		out.Close()
		if mr.err != nil {
			return errors.Wrapf(ErrArchiveCorrupt, "reading member: %v", mr.err)
		}
		return errors.Wrap(err, "writing file")
	}
	return errors.Wrap(out.Close(), "closing file")
}

// memberReader remembers the first read error of a member so a failed copy
// can tell a damaged archive (bad deflate data, checksum mismatch, truncated
// member) from a failed write.
type memberReader struct {
	r   io.Reader
	err error
}

func (m *memberReader) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	if err != nil && err != io.EOF && m.err == nil {
		m.err = err
	}
	return n, err
}

func isZipFormatError(err error) bool {
	switch err {
	case zip.ErrFormat, zip.ErrAlgorithm, zip.ErrChecksum, io.ErrUnexpectedEOF:
		return true
	}
	return false
}
