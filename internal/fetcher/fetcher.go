// Package fetcher retrieves individual documents from their origin
// sites. Exchange portals actively resist non-browser clients, so
// retrieval is a small state machine: origin-specific URL candidates,
// warm-up requests for session cookies, rotating browser identities,
// randomized backoff and payload validation before anything is
// accepted.
package fetcher

import (
	"context"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"stocklib/internal/config"
	"stocklib/internal/domain"
	"stocklib/internal/observability"
)

// Download is an accepted document payload together with the response
// metadata the naming layer needs to pick a file extension.
type Download struct {
	Payload  []byte
	Headers  map[string]string
	FinalURL string

	// StagingPath is the on-disk copy of the payload, empty when
	// staging is disabled.
	StagingPath string
}

// RemoveStaging deletes the staged copy, if any.
func (d *Download) RemoveStaging() error {
	if d.StagingPath == "" {
		return nil
	}
	return os.Remove(d.StagingPath)
}

// Fetcher downloads documents over plain HTTP with browser camouflage.
type Fetcher struct {
	cfg     config.FetchConfig
	logger  observability.Logger
	metrics observability.Metrics

	// Injection points for tests.
	sleep  func(time.Duration)
	randFn func() float64
}

// NewFetcher creates a document fetcher.
func NewFetcher(cfg config.FetchConfig, logger observability.Logger, metrics observability.Metrics) *Fetcher {
	return &Fetcher{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		sleep:   time.Sleep,
		randFn:  rand.Float64,
	}
}

// newClient builds a fresh HTTP client per document. Each document
// gets its own cookie jar so portal sessions never leak across
// documents, and a connect timeout separate from the overall read
// timeout.
func (f *Fetcher) newClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Jar:     jar,
		Timeout: f.cfg.ReadTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: f.cfg.ConnectTimeout,
			}).DialContext,
			TLSHandshakeTimeout: f.cfg.ConnectTimeout,
		},
	}
}

// uniform draws a random duration from [min, max].
func (f *Fetcher) uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(f.randFn()*float64(max-min))
}

// Fetch retrieves one document. listingReferer is the aggregator page
// the URL came from. All URL candidates are tried on every attempt;
// between attempts the fetcher backs off for a randomized interval
// scaled by the attempt number. The returned error is the last
// failure observed, typed for the caller's failure record.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, listingReferer string) (*Download, error) {
	return f.fetchPlan(ctx, buildPlan(rawURL, listingReferer))
}

func (f *Fetcher) fetchPlan(ctx context.Context, p plan) (*Download, error) {
	client := f.newClient()

	f.metrics.StartOperation("document_fetch")
	defer f.metrics.EndOperation("document_fetch")
	start := time.Now()

	var lastErr *domain.FetchError
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		ua := UserAgents[attempt%len(UserAgents)]

		// Portal sessions can expire between backoffs, so every
		// attempt re-establishes its own.
		if len(p.warmup) > 0 {
			f.warmup(ctx, client, p.warmup)
		}

		for _, c := range p.candidates {
			dl, ferr := f.tryCandidate(ctx, client, c, ua)
			if ferr == nil {
				f.metrics.RecordSuccess("document_fetch")
				f.metrics.RecordDuration("document_fetch", time.Since(start).Seconds())
				f.metrics.RecordFileSize("document", int64(len(dl.Payload)))
				return dl, nil
			}

			lastErr = ferr
			f.logger.Warn(ctx, "Document fetch candidate failed", observability.Fields{
				"url":     c.url,
				"attempt": attempt,
				"kind":    string(ferr.Kind),
				"detail":  ferr.Detail,
			})
			if ctx.Err() != nil {
				f.metrics.RecordError("document_fetch", string(lastErr.Kind))
				return nil, lastErr
			}
		}

		if attempt < f.cfg.MaxAttempts {
			f.sleep(time.Duration(attempt) * f.uniform(f.cfg.BackoffMin, f.cfg.BackoffMax))
		}
	}

	f.metrics.RecordError("document_fetch", string(lastErr.Kind))
	return nil, lastErr
}

// warmup visits session-establishing URLs before the real request.
// Warm-up failures are logged and ignored: the main request may still
// succeed, and if the portal truly requires the session it will fail
// there with a proper error.
func (f *Fetcher) warmup(ctx context.Context, client *http.Client, urls []string) {
	referer := ""
	for _, u := range urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			continue
		}
		applyBrowserHeaders(req, UserAgents[0], referer)

		resp, err := client.Do(req)
		if err != nil {
			f.logger.Warn(ctx, "Warm-up request failed", observability.Fields{
				"url":   u,
				"error": err.Error(),
			})
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		// A visited page becomes the Referer for the next hop.
		referer = u
		f.sleep(f.uniform(f.cfg.WarmupDelayMin, f.cfg.WarmupDelayMax))
	}
}

func (f *Fetcher) tryCandidate(ctx context.Context, client *http.Client, c candidate, userAgent string) (*Download, *domain.FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, domain.NewFetchError(domain.FailureNetwork, err.Error(), c.url)
	}
	applyBrowserHeaders(req, userAgent, c.referer)

	resp, err := client.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(domain.FailureNetwork, err.Error(), c.url)
	}
	defer resp.Body.Close()

	// A 404 here is a dead attachment URL, not an unknown ticker; it
	// stays a network failure so the next candidate or attempt runs.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewFetchError(domain.FailureNetwork,
			"origin returned status "+resp.Status, c.url)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewFetchError(domain.FailureNetwork, err.Error(), c.url)
	}

	dl := &Download{
		Payload:  payload,
		Headers:  flattenHeaders(resp.Header),
		FinalURL: c.url,
	}

	stagePath, stageErr := f.stage(payload)
	if stageErr != nil {
		f.logger.Warn(ctx, "Staging write failed, continuing in memory", observability.Fields{
			"url":   c.url,
			"error": stageErr.Error(),
		})
	}
	dl.StagingPath = stagePath

	if ferr := domain.ValidatePayload(payload); ferr != nil {
		ferr.URL = c.url
		// The staged copy must never outlive a rejected payload.
		dl.RemoveStaging()
		return nil, ferr
	}
	return dl, nil
}

// stage writes the payload to the staging directory. Staging is off
// when no directory is configured.
func (f *Fetcher) stage(payload []byte) (string, error) {
	if f.cfg.StagingDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(f.cfg.StagingDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(f.cfg.StagingDir, uuid.NewString())
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// PoliteDelay pauses between documents in a batch so origin sites see
// a human-paced request stream.
func (f *Fetcher) PoliteDelay() {
	f.sleep(f.uniform(f.cfg.PoliteDelayMin, f.cfg.PoliteDelayMax))
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
