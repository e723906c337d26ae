package fetcher

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// FileFetcher reads datasets from the local filesystem. It accepts plain
// paths as well as file:// URLs.
type FileFetcher struct{}

// NewFileFetcher creates a FileFetcher.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

func localPath(source string) string {
	return strings.TrimPrefix(source, "file://")
}

// Download opens the local file and returns it.
func (f *FileFetcher) Download(ctx context.Context, source string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "file fetch")
	}
	file, err := os.Open(localPath(source))
	if err != nil {
		return nil, eris.Wrap(err, "open source file")
	}
	return file, nil
}

// DownloadToFile copies the local file to the given path. Returns bytes written.
func (f *FileFetcher) DownloadToFile(ctx context.Context, source string, path string) (int64, error) {
	rc, err := f.Download(ctx, source)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer out.Close() //nolint:errcheck

	n, err := io.Copy(out, rc)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}

	return n, nil
}
