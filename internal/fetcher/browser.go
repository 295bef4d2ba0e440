package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stocklib/internal/config"
	"stocklib/internal/domain"
	"stocklib/internal/observability"
)

// Navigator drives a real browser session. It exists for origins that
// reject every plain HTTP disguise; a driven browser passes their
// fingerprinting where a crafted request cannot. Implementations wrap
// whatever automation tool the deployment has available and must
// point the browser's download directory at the one the fallback
// watches.
type Navigator interface {
	// Navigate opens the URL in the browser. It returns once
	// navigation has been issued; the actual download completes
	// asynchronously into the download directory.
	Navigate(ctx context.Context, url string) error
	Close() error
}

// partialSuffixes mark in-progress browser downloads. A file carrying
// one of these is not yet a payload.
var partialSuffixes = []string{".crdownload", ".part", ".tmp"}

// BrowserFallback retrieves a document by navigating a real browser to
// it and polling the browser's download directory for the result.
type BrowserFallback struct {
	nav          Navigator
	downloadDir  string
	pollInterval time.Duration
	maxWait      time.Duration
	logger       observability.Logger

	sleep func(time.Duration)
}

// NewBrowserFallback creates the fallback strategy around an existing
// navigator session.
func NewBrowserFallback(nav Navigator, cfg config.FetchConfig, logger observability.Logger) *BrowserFallback {
	return &BrowserFallback{
		nav:          nav,
		downloadDir:  cfg.StagingDir,
		pollInterval: cfg.FallbackPollInterval,
		maxWait:      cfg.FallbackMaxWait,
		logger:       logger,
		sleep:        time.Sleep,
	}
}

// Close tears down the underlying browser session.
func (b *BrowserFallback) Close() error {
	return b.nav.Close()
}

// Fetch navigates to the URL and waits for a completed file to appear
// in the download directory. The downloaded file's own name is carried
// back as a synthetic Content-Disposition header so extension
// resolution treats browser downloads like any other response.
func (b *BrowserFallback) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	before, err := b.snapshot()
	if err != nil {
		return nil, domain.NewFetchError(domain.FailureNetwork, err.Error(), rawURL)
	}

	b.logger.Info(ctx, "Falling back to browser navigation", observability.Fields{
		"url": rawURL,
	})
	if err := b.nav.Navigate(ctx, rawURL); err != nil {
		return nil, domain.NewFetchError(domain.FailureNetwork, err.Error(), rawURL)
	}

	deadline := time.Now().Add(b.maxWait)
	for {
		if ctx.Err() != nil {
			return nil, domain.NewFetchError(domain.FailureNetwork, ctx.Err().Error(), rawURL)
		}

		path, ok, err := b.findNew(before)
		if err != nil {
			return nil, domain.NewFetchError(domain.FailureNetwork, err.Error(), rawURL)
		}
		if ok {
			return b.collect(path, rawURL)
		}

		if time.Now().After(deadline) {
			return nil, domain.NewFetchError(domain.FailureNetwork,
				fmt.Sprintf("browser download did not complete within %s", b.maxWait), rawURL)
		}
		b.sleep(b.pollInterval)
	}
}

// snapshot records the files already present so only new arrivals
// count as this document's download.
func (b *BrowserFallback) snapshot() (map[string]bool, error) {
	if err := os.MkdirAll(b.downloadDir, 0o755); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(b.downloadDir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.Name()] = true
	}
	return seen, nil
}

// findNew reports the first completed new file in the download
// directory, if any. In-progress downloads are skipped until the
// browser renames them to their final name.
func (b *BrowserFallback) findNew(before map[string]bool) (string, bool, error) {
	entries, err := os.ReadDir(b.downloadDir)
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		name := e.Name()
		if before[name] || e.IsDir() || isPartial(name) {
			continue
		}
		return filepath.Join(b.downloadDir, name), true, nil
	}
	return "", false, nil
}

func (b *BrowserFallback) collect(path, rawURL string) (*Download, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewFetchError(domain.FailureNetwork, err.Error(), rawURL)
	}

	dl := &Download{
		Payload:  payload,
		FinalURL: rawURL,
		Headers: map[string]string{
			"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filepath.Base(path)),
		},
		StagingPath: path,
	}

	if ferr := domain.ValidatePayload(payload); ferr != nil {
		ferr.URL = rawURL
		dl.RemoveStaging()
		return nil, ferr
	}
	return dl, nil
}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
