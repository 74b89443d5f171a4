// Package fetch resolves model and texture paths, downloading http(s) URLs
// into a temporary directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/hullmap/internal/logger"
	"github.com/Faultbox/hullmap/pkg/encoding"
)

// ErrFetch marks a remote resource that could not be retrieved.
var ErrFetch = errors.New("fetch failed")

// Options controls download behavior.
type Options struct {
	Timeout    time.Duration // per attempt; zero means no timeout
	Retries    int           // extra attempts after the first; zero fails fast
	RetryDelay time.Duration
	TempDir    string // defaults to os.TempDir()
}

// DefaultOptions returns fail-fast settings with a 60 second timeout.
func DefaultOptions() Options {
	return Options{
		Timeout:    60 * time.Second,
		RetryDelay: time.Second,
	}
}

// Fetcher downloads remote resources.
type Fetcher struct {
	client *http.Client
	opts   Options
	log    *zap.Logger
}

// New creates a fetcher using http.DefaultTransport.
func New(opts Options) *Fetcher {
	return NewWithClient(&http.Client{}, opts)
}

// NewWithClient creates a fetcher with a caller-supplied HTTP client.
func NewWithClient(client *http.Client, opts Options) *Fetcher {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Fetcher{client: client, opts: opts, log: logger.Named("fetch")}
}

// IsRemote reports whether p is an http or https URL.
func IsRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Resolve returns a local path for p. Local paths are returned unchanged with a
// no-op cleanup. URLs are downloaded into a fresh directory under the temp dir,
// keeping the URL's file name; cleanup removes that directory.
func (f *Fetcher) Resolve(ctx context.Context, p string) (string, func(), error) {
	if !IsRemote(p) {
		return p, func() {}, nil
	}

	u, err := url.Parse(p)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrFetch, p, err)
	}

	dir := filepath.Join(f.opts.TempDir, "hullmap-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, fmt.Errorf("%w: create temp dir: %v", ErrFetch, err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			f.log.Warn("temp cleanup failed", zap.String("dir", dir), zap.Error(err))
		}
	}

	local := filepath.Join(dir, FileName(u))
	f.log.Info("downloading", zap.String("url", p), zap.String("path", local))

	var lastErr error
	for attempt := 0; attempt <= f.opts.Retries; attempt++ {
		if attempt > 0 {
			f.log.Warn("retrying download", zap.String("url", p), zap.Int("attempt", attempt+1), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				cleanup()
				return "", nil, fmt.Errorf("%w: %s: %v", ErrFetch, p, ctx.Err())
			case <-time.After(f.opts.RetryDelay):
			}
		}

		var retry bool
		retry, lastErr = f.download(ctx, p, local)
		if lastErr == nil {
			return local, cleanup, nil
		}
		if !retry {
			break
		}
	}

	cleanup()
	return "", nil, fmt.Errorf("%w: %s: %v", ErrFetch, p, lastErr)
}

// download fetches one URL into dst. The bool reports whether the failure may be transient.
func (f *Fetcher) download(ctx context.Context, src, dst string) (bool, error) {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return false, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return ctx.Err() == nil || errors.Is(ctx.Err(), context.DeadlineExceeded), err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode >= 500, fmt.Errorf("status %s", resp.Status)
	}

	out, err := os.Create(dst)
	if err != nil {
		return false, err
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return true, err
	}
	f.log.Debug("downloaded", zap.String("path", dst), zap.Int64("bytes", n))
	return false, nil
}

// FileName returns the base name of the URL path, or temp_<uuid> when the path has none.
func FileName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "temp_" + uuid.NewString()
	}
	return encoding.StringToUTF8(name)
}
