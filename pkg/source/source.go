// Package source opens event log files from the local filesystem or S3,
// transparently decompressing gzip-compressed logs.
package source

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lverrors "github.com/logflow/logvar/pkg/errors"
)

// Opener resolves log locations to readers. Locations are either local
// paths or s3://bucket/key URIs. The S3 client is created on first use.
type Opener struct {
	s3cfg S3Config

	mu     sync.Mutex
	client ObjectGetter
}

// NewOpener creates an Opener using the given S3 settings for s3:// paths.
func NewOpener(cfg S3Config) *Opener {
	return &Opener{s3cfg: cfg}
}

// WithS3Client sets the client used for s3:// locations.
func (o *Opener) WithS3Client(client ObjectGetter) *Opener {
	o.mu.Lock()
	o.client = client
	o.mu.Unlock()
	return o
}

// Open returns a reader over the decompressed content of location.
// The caller must close it.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	if IsS3(location) {
		client, err := o.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		rc, err = openS3(ctx, client, location, o.s3cfg.DownloadTimeout)
		if err != nil {
			return nil, err
		}
	} else {
		f, err := os.Open(location)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, lverrors.FileNotFound(location, err)
			}
			if os.IsPermission(err) {
				return nil, lverrors.Wrap(err, lverrors.CodeFilePermission, "cannot open log").
					WithContext("path", location)
			}
			return nil, err
		}
		rc = f
	}

	if !IsGzipFile(location) {
		return rc, nil
	}
	gz, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, lverrors.Wrap(err, lverrors.CodeInvalidFormat, "invalid gzip stream").
			WithContext("path", location)
	}
	return &gzipReadCloser{Reader: gz, underlying: rc}, nil
}

// LocalPath returns the filesystem path of location, or false when the
// location is remote or compressed.
func LocalPath(location string) (string, bool) {
	if IsS3(location) || IsGzipFile(location) {
		return "", false
	}
	return location, true
}

type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func (g *gzipReadCloser) Close() error {
	g.Reader.Close()
	return g.underlying.Close()
}

// IsGzipFile returns true if the path indicates gzip compression.
func IsGzipFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// StripCompression removes a trailing .gz from a path.
func StripCompression(path string) string {
	if IsGzipFile(path) {
		return path[:len(path)-3]
	}
	return path
}

// BaseFormat extracts the format extension after stripping compression.
// e.g., "file.xes.gz" -> ".xes", "file.csv" -> ".csv"
func BaseFormat(path string) string {
	return strings.ToLower(filepath.Ext(StripCompression(path)))
}

// BaseName returns the file name of a location without directories,
// compression or format extensions.
func BaseName(location string) string {
	base := StripCompression(location)
	if IsS3(base) {
		base = base[strings.LastIndex(base, "/")+1:]
	} else {
		base = filepath.Base(base)
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
