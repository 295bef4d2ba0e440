// Package listing retrieves and parses the aggregator's per-company
// document listing page: the discovery stage of the pipeline.
package listing

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"

	"stocklib/internal/config"
	"stocklib/internal/domain"
	"stocklib/internal/fetcher"
	"stocklib/internal/observability"
)

// Client fetches listing pages from the aggregator site.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     observability.Logger
	metrics    observability.Metrics
}

// NewClient creates a listing client.
func NewClient(cfg config.ListingConfig, logger observability.Logger, metrics observability.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// BaseURL returns the aggregator root the client is pointed at.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CompanyPageURL returns the listing page URL for a ticker. It doubles
// as the Referer for subsequent document downloads.
func (c *Client) CompanyPageURL(ticker string) string {
	return fmt.Sprintf("%s/company/%s/consolidated/", c.baseURL, ticker)
}

// FetchListing retrieves the listing page HTML for a ticker. A 404 is
// classified as not_found (the ticker is unknown to the site, a
// user-correctable condition); every other failure is network_error.
func (c *Client) FetchListing(ctx context.Context, ticker string) (string, error) {
	pageURL := c.CompanyPageURL(ticker)

	c.logger.Info(ctx, "Fetching listing page", observability.Fields{
		"ticker": ticker,
		"url":    pageURL,
	})
	c.metrics.StartOperation("listing_fetch")
	defer c.metrics.EndOperation("listing_fetch")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", domain.NewFetchError(domain.FailureNetwork, err.Error(), pageURL)
	}
	req.Header.Set("User-Agent", fetcher.UserAgents[rand.Intn(len(fetcher.UserAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordError("listing_fetch", string(domain.FailureNetwork))
		return "", domain.NewFetchError(domain.FailureNetwork, err.Error(), pageURL)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.metrics.RecordError("listing_fetch", string(domain.FailureNotFound))
		return "", domain.NewFetchError(domain.FailureNotFound,
			fmt.Sprintf("ticker %q not recognized by the listing site", ticker), pageURL)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.metrics.RecordError("listing_fetch", string(domain.FailureNetwork))
		return "", domain.NewFetchError(domain.FailureNetwork,
			fmt.Sprintf("listing page returned status %d", resp.StatusCode), pageURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordError("listing_fetch", string(domain.FailureNetwork))
		return "", domain.NewFetchError(domain.FailureNetwork, err.Error(), pageURL)
	}

	c.metrics.RecordSuccess("listing_fetch")
	return string(body), nil
}
