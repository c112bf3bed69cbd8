package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

const (
	downloadTimeout   = 5 * time.Minute
	downloadUserAgent = "ultrafont"
)

// HTTPDownloader implements domain.Downloader with a plain GET.
type HTTPDownloader struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewHTTPDownloader creates a downloader. The client has no timeout of its
// own; each request is bounded by a context deadline instead.
func NewHTTPDownloader(timeout time.Duration, logger *zap.Logger) *HTTPDownloader {
	if timeout <= 0 {
		timeout = downloadTimeout
	}
	return &HTTPDownloader{
		client:  &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
}

// Download fetches url into destPath. The body is written to a temp file in
// the destination directory and renamed into place, so a failed transfer
// never leaves a partial file at destPath.
func (d *HTTPDownloader) Download(ctx context.Context, url, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.NewOpError("download", url, domain.KindTransport, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return domain.NewOpError("download", url, transportKind(ctx), fmt.Errorf("failed to fetch: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewOpError("download", url, domain.KindTransport, fmt.Errorf("server returned status %d", resp.StatusCode))
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return domain.NewOpError("download", destPath, domain.KindIO, fmt.Errorf("failed to create directory: %w", err))
	}

	// Unique per call so concurrent downloads to one destination never
	// share a temp file.
	out, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".*.tmp")
	if err != nil {
		return domain.NewOpError("download", destPath, domain.KindIO, fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpPath := out.Name()

	n, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return domain.NewOpError("download", url, transportKind(ctx), fmt.Errorf("failed to write download: %w", err))
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return domain.NewOpError("download", destPath, domain.KindIO, fmt.Errorf("failed to close temp file: %w", closeErr))
	}

	// CreateTemp makes the file owner-only; the registration script may
	// run as another user.
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return domain.NewOpError("download", destPath, domain.KindIO, fmt.Errorf("failed to chmod temp file: %w", err))
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return domain.NewOpError("download", destPath, domain.KindIO, fmt.Errorf("failed to rename temp file: %w", err))
	}

	d.logger.Info("Downloaded file",
		zap.String("url", url),
		zap.String("path", destPath),
		zap.Int64("bytes", n))
	return nil
}

func transportKind(ctx context.Context) domain.FailureKind {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return domain.KindTimeout
	case context.Canceled:
		return domain.KindCancelled
	}
	return domain.KindTransport
}

var _ domain.Downloader = (*HTTPDownloader)(nil)
