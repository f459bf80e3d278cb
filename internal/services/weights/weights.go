// Package weights downloads the detection model and class name files
// so the server can bootstrap itself on a fresh host.
package weights

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"signserver/internal/config"
	"signserver/internal/logger"
)

const downloadTimeout = 5 * time.Minute

// Fetcher pulls weight files over HTTP.
type Fetcher struct {
	client *resty.Client
	logger *logger.Logger
}

func NewFetcher(logger *logger.Logger) *Fetcher {
	client := resty.New().
		SetTimeout(downloadTimeout).
		SetRetryCount(2)

	return &Fetcher{client: client, logger: logger}
}

// EnsureModel downloads the model and class names when they are missing
// on disk. Empty URLs are skipped so a pre-provisioned host needs no
// network access.
func (f *Fetcher) EnsureModel(ctx context.Context, cfg *config.Config) error {
	if err := f.ensure(ctx, cfg.ModelURL, cfg.ModelPath); err != nil {
		return err
	}
	return f.ensure(ctx, cfg.ClassNamesURL, cfg.ClassNamesPath)
}

func (f *Fetcher) ensure(ctx context.Context, url, path string) error {
	if url == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		f.logger.Info("Found %s, skipping download", path)
		return nil
	}
	return f.Download(ctx, url, path)
}

// Download fetches url into dest, writing through a temp file so a
// partial download never replaces an existing file.
func (f *Fetcher) Download(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	f.logger.Info("Downloading %s to %s", url, dest)
	tmp := dest + ".part"

	resp, err := f.client.R().
		SetContext(ctx).
		SetOutput(tmp).
		Get(url)
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	if resp.IsError() {
		os.Remove(tmp)
		return fmt.Errorf("server returned %s for %s", resp.Status(), url)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	f.logger.Info("Downloaded %s (%d bytes)", filepath.Base(dest), resp.Size())
	return nil
}
