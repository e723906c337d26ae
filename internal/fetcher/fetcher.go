// Package fetcher downloads source datasets over HTTP, FTP, or from the
// local filesystem, and streams CSV content row by row.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"
)

// Fetcher defines the interface for retrieving a remote or local dataset.
type Fetcher interface {
	// Download fetches the source and returns its body.
	Download(ctx context.Context, source string) (io.ReadCloser, error)

	// DownloadToFile fetches the source and writes it to the given path.
	// Returns bytes written.
	DownloadToFile(ctx context.Context, source string, path string) (int64, error)
}

// Options configures fetcher construction for all transports.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	FTPUser    string
	FTPPass    string
}

// ForSource returns the fetcher matching the source's scheme:
// http/https, ftp, or a local file path for everything else.
func ForSource(source string, opts Options) Fetcher {
	u, err := url.Parse(source)
	if err != nil {
		return NewFileFetcher()
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTPFetcher(HTTPOptions{
			UserAgent:  opts.UserAgent,
			Timeout:    opts.Timeout,
			MaxRetries: opts.MaxRetries,
		})
	case "ftp":
		return NewFTPFetcher(FTPOptions{
			Timeout:  opts.Timeout,
			User:     opts.FTPUser,
			Password: opts.FTPPass,
		})
	default:
		return NewFileFetcher()
	}
}
