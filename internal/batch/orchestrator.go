// Package batch runs the per-company retrieval loop: it takes the
// parsed document refs, fetches each one in turn, names the accepted
// payloads and records the failures.
package batch

import (
	"context"
	"fmt"

	"stocklib/internal/domain"
	"stocklib/internal/fetcher"
	"stocklib/internal/naming"
	"stocklib/internal/observability"
)

// DocumentFetcher is the primary (plain HTTP) retrieval strategy.
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL, listingReferer string) (*fetcher.Download, error)
	PoliteDelay()
}

// FallbackFetcher is the last-resort strategy, engaged only after the
// primary has exhausted its attempts. Typically a driven browser.
type FallbackFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Download, error)
}

// Progress is a point-in-time snapshot of a running batch, delivered
// to the progress callback after each document settles.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Outcome is the settled result of a batch.
type Outcome struct {
	// Files maps final archive names to accepted payloads.
	Files map[string][]byte

	Failures []domain.FailureRecord

	Succeeded int
	Failed    int
}

// Orchestrator drives the sequential retrieval loop. Documents are
// fetched one at a time with a polite pause between them; origin
// portals treat parallel bursts as scraping.
type Orchestrator struct {
	primary  DocumentFetcher
	fallback FallbackFetcher
	logger   observability.Logger
	metrics  observability.Metrics

	onProgress func(Progress)
}

// NewOrchestrator creates a batch orchestrator. fallback may be nil
// when no browser session is available. onProgress may be nil.
func NewOrchestrator(primary DocumentFetcher, fallback FallbackFetcher, logger observability.Logger, metrics observability.Metrics, onProgress func(Progress)) *Orchestrator {
	return &Orchestrator{
		primary:    primary,
		fallback:   fallback,
		logger:     logger,
		metrics:    metrics,
		onProgress: onProgress,
	}
}

// Run fetches every ref whose category is in wanted. An empty wanted
// set selects nothing and returns immediately without touching the
// network; callers wanting everything pass domain.AllCategories().
func (o *Orchestrator) Run(ctx context.Context, refs []domain.DocumentRef, wanted []domain.Category, listingReferer string) *Outcome {
	selected := filterRefs(refs, wanted)
	outcome := &Outcome{Files: make(map[string][]byte, len(selected))}
	if len(selected) == 0 {
		return outcome
	}

	o.metrics.StartOperation("batch_run")
	defer o.metrics.EndOperation("batch_run")

	for i, ref := range selected {
		res := o.fetchOne(ctx, ref, listingReferer, outcome.Files)
		if res.OK() {
			outcome.Files[res.FileName] = res.Payload
			outcome.Succeeded++
			o.metrics.RecordSuccess("batch_document")
		} else {
			outcome.Failed++
			outcome.Failures = append(outcome.Failures, domain.FailureRecord{
				URL:      res.Ref.SourceURL,
				Category: res.Ref.Category,
				BaseName: naming.Format(res.Ref.Date, res.Ref.Category),
				Kind:     res.Kind,
				Detail:   res.Detail,
			})
			o.metrics.RecordError("batch_document", string(res.Kind))
		}

		o.report(Progress{
			Completed: i + 1,
			Total:     len(selected),
			Succeeded: outcome.Succeeded,
			Failed:    outcome.Failed,
		})

		if i < len(selected)-1 {
			o.primary.PoliteDelay()
		}
	}

	o.logger.Info(ctx, "Batch complete", observability.Fields{
		"total":     len(selected),
		"succeeded": outcome.Succeeded,
		"failed":    outcome.Failed,
	})
	return outcome
}

func (o *Orchestrator) fetchOne(ctx context.Context, ref domain.DocumentRef, listingReferer string, taken map[string][]byte) domain.RetrievalResult {
	dl, err := o.primary.Fetch(ctx, ref.SourceURL, listingReferer)
	if err != nil && o.fallback != nil {
		primaryErr := err
		dl, err = o.fallback.Fetch(ctx, ref.SourceURL)
		if err != nil {
			err = domain.NewFetchError(domain.FailureExhausted,
				fmt.Sprintf("primary: %v; fallback: %v", primaryErr, err), ref.SourceURL)
		}
	}

	if err != nil {
		kind, detail := domain.FailureNetwork, err.Error()
		if ferr, ok := err.(*domain.FetchError); ok {
			kind, detail = ferr.Kind, ferr.Detail
		}
		return domain.FailureResult(kind, detail, ref)
	}

	ext := naming.ResolveExtension(dl.Headers, dl.FinalURL, ref.Category)
	name := uniqueName(taken, naming.Format(ref.Date, ref.Category), ext)

	if rmErr := dl.RemoveStaging(); rmErr != nil {
		o.logger.Warn(ctx, "Could not remove staged payload", observability.Fields{
			"path":  dl.StagingPath,
			"error": rmErr.Error(),
		})
	}
	return domain.SuccessResult(name, dl.Payload, ref)
}

func (o *Orchestrator) report(p Progress) {
	if o.onProgress != nil {
		o.onProgress(p)
	}
}

// uniqueName appends a numeric suffix before the extension until the
// name is free. Distinct documents can share a base name when several
// disclosures carry the same date label.
func uniqueName(taken map[string][]byte, baseName, ext string) string {
	name := baseName + ext
	for n := 2; ; n++ {
		if _, exists := taken[name]; !exists {
			return name
		}
		name = fmt.Sprintf("%s_%d%s", baseName, n, ext)
	}
}

func filterRefs(refs []domain.DocumentRef, wanted []domain.Category) []domain.DocumentRef {
	allow := make(map[domain.Category]bool, len(wanted))
	for _, c := range wanted {
		allow[c] = true
	}
	out := make([]domain.DocumentRef, 0, len(refs))
	for _, ref := range refs {
		if allow[ref.Category] {
			out = append(out, ref)
		}
	}
	return out
}
