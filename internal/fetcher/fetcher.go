// Package fetcher retrieves traffic-stop extracts over HTTP and FTP and
// decodes the CSV, XLSX, JSON and ZIP payloads they arrive in.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Options configures the remote fetchers.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
}

// Remote routes a download to the HTTP or FTP fetcher by URL scheme.
type Remote struct {
	http Fetcher
	ftp  Fetcher
}

// NewRemote creates a Remote sharing opts between both protocols.
func NewRemote(opts Options) *Remote {
	return &Remote{
		http: NewHTTPFetcher(HTTPOptions{
			UserAgent:  opts.UserAgent,
			Timeout:    opts.Timeout,
			MaxRetries: opts.MaxRetries,
		}),
		ftp: NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}),
	}
}

// IsRemote reports whether source is a URL Remote can fetch.
func IsRemote(source string) bool {
	return scheme(source) != ""
}

func scheme(source string) string {
	u, err := url.Parse(source)
	if err != nil {
		return ""
	}
	switch s := strings.ToLower(u.Scheme); s {
	case "http", "https", "ftp":
		return s
	default:
		return ""
	}
}

func (r *Remote) fetcherFor(rawURL string) (Fetcher, error) {
	switch scheme(rawURL) {
	case "http", "https":
		return r.http, nil
	case "ftp":
		return r.ftp, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported url %q", rawURL)
	}
}

// Download fetches rawURL with the fetcher matching its scheme.
func (r *Remote) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f, err := r.fetcherFor(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Download(ctx, rawURL)
}

// DownloadToFile fetches rawURL into path with the fetcher matching its scheme.
func (r *Remote) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	f, err := r.fetcherFor(rawURL)
	if err != nil {
		return 0, err
	}
	return f.DownloadToFile(ctx, rawURL, path)
}

// saveTo copies body into a new file at path and closes body.
func saveTo(body io.ReadCloser, path string) (int64, error) {
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}
	return n, nil
}
