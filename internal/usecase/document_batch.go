// Package usecase wires the pipeline stages into the one operation the
// service exposes: retrieve every disclosure for a ticker and package
// the lot as a ZIP archive.
package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stocklib/internal/archive"
	"stocklib/internal/batch"
	"stocklib/internal/domain"
	"stocklib/internal/listing"
	"stocklib/internal/observability"
	"stocklib/internal/storage"
)

// failureManifestName is the archive entry recording what could not be
// retrieved.
const failureManifestName = "failed_downloads.json"

// BatchRequest is the input to a document batch run.
type BatchRequest struct {
	// Ticker is the company's listing symbol. Case and surrounding
	// whitespace are normalized away.
	Ticker string `json:"ticker"`

	// Categories restricts the run to the named document categories.
	// Empty means all.
	Categories []string `json:"categories,omitempty"`

	// Store persists the archive through object storage in addition to
	// returning it.
	Store bool `json:"store,omitempty"`
}

// BatchResult is the outcome of a document batch run.
type BatchResult struct {
	Ticker      string                 `json:"ticker"`
	ArchiveName string                 `json:"archive_name,omitempty"`
	Archive     []byte                 `json:"archive,omitempty"`
	Total       int                    `json:"total"`
	Succeeded   int                    `json:"succeeded"`
	Failed      int                    `json:"failed"`
	Failures    []domain.FailureRecord `json:"failures,omitempty"`
	StorageKey  string                 `json:"storage_key,omitempty"`
	DurationMS  int64                  `json:"duration_ms"`
}

// DocumentBatch executes document batch runs.
type DocumentBatch struct {
	listing      *listing.Client
	orchestrator *batch.Orchestrator
	store        storage.ObjectStorage
	logger       observability.Logger
	metrics      observability.Metrics
}

// NewDocumentBatch creates the use case. store may be nil when archive
// persistence is not configured; Store requests then fail.
func NewDocumentBatch(
	listingClient *listing.Client,
	orchestrator *batch.Orchestrator,
	store storage.ObjectStorage,
	logger observability.Logger,
	metrics observability.Metrics,
) *DocumentBatch {
	return &DocumentBatch{
		listing:      listingClient,
		orchestrator: orchestrator,
		store:        store,
		logger:       logger,
		metrics:      metrics,
	}
}

// Execute runs one batch end to end.
func (u *DocumentBatch) Execute(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	start := time.Now()

	// 1. Normalize and validate the request
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	categories, err := parseCategories(req.Categories)
	if err != nil {
		return nil, err
	}
	if req.Store && u.store == nil {
		return nil, fmt.Errorf("archive storage is not configured")
	}

	logger := u.logger.WithFields(observability.Fields{"ticker": ticker})
	logger.Info(ctx, "Starting document batch", observability.Fields{
		"categories": req.Categories,
		"store":      req.Store,
	})

	// 2. Fetch the listing page
	html, err := u.listing.FetchListing(ctx, ticker)
	if err != nil {
		return nil, err
	}

	// 3. Parse it into document refs
	refs := listing.Parse(html, u.listing.BaseURL())
	logger.Info(ctx, "Listing parsed", observability.Fields{"documents": len(refs)})

	// 4. Retrieve the documents
	outcome := u.orchestrator.Run(ctx, refs, categories, u.listing.CompanyPageURL(ticker))

	result := &BatchResult{
		Ticker:    ticker,
		Total:     outcome.Succeeded + outcome.Failed,
		Succeeded: outcome.Succeeded,
		Failed:    outcome.Failed,
		Failures:  outcome.Failures,
	}

	// 5. Assemble the archive, failure manifest included
	entries := outcome.Files
	if len(outcome.Failures) > 0 {
		manifest, mErr := json.MarshalIndent(outcome.Failures, "", "  ")
		if mErr != nil {
			return nil, fmt.Errorf("encode failure manifest: %w", mErr)
		}
		entries[failureManifestName] = manifest
	}

	archiveBytes, err := archive.Build(entries)
	if err != nil {
		return nil, err
	}
	if archiveBytes == nil {
		logger.Info(ctx, "No documents to archive", nil)
		result.DurationMS = time.Since(start).Milliseconds()
		return result, nil
	}
	result.Archive = archiveBytes
	result.ArchiveName = fmt.Sprintf("%s_documents.zip", ticker)

	// 6. Optionally persist the archive
	if req.Store {
		key := result.ArchiveName
		err := u.store.Put(ctx, key, bytes.NewReader(archiveBytes), storage.ObjectMetadata{
			ContentType: "application/zip",
			UserMetadata: map[string]string{
				"ticker":    ticker,
				"documents": fmt.Sprintf("%d", result.Succeeded),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("persist archive: %w", err)
		}
		result.StorageKey = key
	}

	result.DurationMS = time.Since(start).Milliseconds()
	u.metrics.RecordSuccess("document_batch")
	u.metrics.RecordDuration("document_batch", time.Since(start).Seconds())
	u.metrics.RecordFileSize("archive", int64(len(archiveBytes)))

	logger.Info(ctx, "Document batch complete", observability.Fields{
		"total":       result.Total,
		"succeeded":   result.Succeeded,
		"failed":      result.Failed,
		"archive_len": len(archiveBytes),
		"duration_ms": result.DurationMS,
	})
	return result, nil
}

// parseCategories maps request category strings to domain categories,
// case-insensitively. An omitted list means the caller wants every
// category, so it expands rather than selecting nothing.
func parseCategories(names []string) ([]domain.Category, error) {
	if len(names) == 0 {
		return domain.AllCategories(), nil
	}
	out := make([]domain.Category, 0, len(names))
	for _, name := range names {
		matched := false
		for _, c := range domain.AllCategories() {
			if strings.EqualFold(name, string(c)) {
				out = append(out, c)
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("unknown document category: %q", name)
		}
	}
	return out, nil
}
