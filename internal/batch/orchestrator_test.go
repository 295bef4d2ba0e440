package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklib/internal/domain"
	"stocklib/internal/fetcher"
	"stocklib/internal/observability/mocks"
)

// stubFetcher scripts per-URL outcomes and records call order.
type stubFetcher struct {
	downloads map[string]*fetcher.Download
	errors    map[string]error
	calls     []string
	delays    int
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL, _ string) (*fetcher.Download, error) {
	s.calls = append(s.calls, rawURL)
	if err, ok := s.errors[rawURL]; ok {
		return nil, err
	}
	if dl, ok := s.downloads[rawURL]; ok {
		return dl, nil
	}
	return nil, domain.NewFetchError(domain.FailureNetwork, "unscripted url", rawURL)
}

func (s *stubFetcher) PoliteDelay() { s.delays++ }

type stubFallback struct {
	downloads map[string]*fetcher.Download
	calls     []string
}

func (s *stubFallback) Fetch(_ context.Context, rawURL string) (*fetcher.Download, error) {
	s.calls = append(s.calls, rawURL)
	if dl, ok := s.downloads[rawURL]; ok {
		return dl, nil
	}
	return nil, domain.NewFetchError(domain.FailureNetwork, "browser timed out", rawURL)
}

func pdfDownload(url string) *fetcher.Download {
	return &fetcher.Download{
		Payload:  []byte("payload for " + url),
		Headers:  map[string]string{"Content-Type": "application/pdf"},
		FinalURL: url,
	}
}

func newOrchestrator(primary DocumentFetcher, fallback FallbackFetcher, onProgress func(Progress)) *Orchestrator {
	return NewOrchestrator(primary, fallback, mocks.NopLogger{}, mocks.NopMetrics{}, onProgress)
}

func TestRun_SequentialWithPoliteDelays(t *testing.T) {
	refs := []domain.DocumentRef{
		{Date: "2024", Category: domain.CategoryAnnualReport, SourceURL: "https://o.test/a"},
		{Date: "2023", Category: domain.CategoryAnnualReport, SourceURL: "https://o.test/b"},
		{Date: "2024-01", Category: domain.CategoryTranscript, SourceURL: "https://o.test/c"},
	}
	primary := &stubFetcher{downloads: map[string]*fetcher.Download{
		"https://o.test/a": pdfDownload("https://o.test/a"),
		"https://o.test/b": pdfDownload("https://o.test/b"),
		"https://o.test/c": pdfDownload("https://o.test/c"),
	}}

	outcome := newOrchestrator(primary, nil, nil).Run(context.Background(), refs, domain.AllCategories(), "")

	assert.Equal(t, []string{"https://o.test/a", "https://o.test/b", "https://o.test/c"}, primary.calls)
	assert.Equal(t, 2, primary.delays, "no pause after the last document")
	assert.Equal(t, 3, outcome.Succeeded)
	assert.Empty(t, outcome.Failures)
	assert.Contains(t, outcome.Files, "2024_Annual_Report.pdf")
	assert.Contains(t, outcome.Files, "2023_Annual_Report.pdf")
	assert.Contains(t, outcome.Files, "2024_01_Transcript.pdf")
}

func TestRun_CategoryFilter(t *testing.T) {
	refs := []domain.DocumentRef{
		{Date: "2024", Category: domain.CategoryAnnualReport, SourceURL: "https://o.test/a"},
		{Date: "2024-01", Category: domain.CategoryTranscript, SourceURL: "https://o.test/t"},
	}
	primary := &stubFetcher{downloads: map[string]*fetcher.Download{
		"https://o.test/t": pdfDownload("https://o.test/t"),
	}}

	outcome := newOrchestrator(primary, nil, nil).Run(context.Background(), refs,
		[]domain.Category{domain.CategoryTranscript}, "")

	assert.Equal(t, []string{"https://o.test/t"}, primary.calls)
	assert.Equal(t, 1, outcome.Succeeded)
}

func TestRun_EmptySelectionSkipsNetwork(t *testing.T) {
	refs := []domain.DocumentRef{
		{Date: "2024", Category: domain.CategoryAnnualReport, SourceURL: "https://o.test/a"},
	}
	primary := &stubFetcher{}

	outcome := newOrchestrator(primary, nil, nil).Run(context.Background(), refs,
		[]domain.Category{domain.CategoryPresentation}, "")

	assert.Empty(t, primary.calls)
	assert.Empty(t, outcome.Files)
	assert.Zero(t, outcome.Failed)
}

func TestRun_NoCategoriesSelectsNothing(t *testing.T) {
	refs := []domain.DocumentRef{
		{Date: "2024", Category: domain.CategoryAnnualReport, SourceURL: "https://o.test/a"},
		{Date: "2024-01", Category: domain.CategoryTranscript, SourceURL: "https://o.test/t"},
	}
	primary := &stubFetcher{}

	outcome := newOrchestrator(primary, nil, nil).Run(context.Background(), refs,
		[]domain.Category{}, "")

	assert.Empty(t, primary.calls)
	assert.Empty(t, outcome.Files)
	assert.Empty(t, outcome.Failures)
	assert.Zero(t, outcome.Succeeded)
	assert.Zero(t, outcome.Failed)
}

func TestRun_CollisionSuffixes(t *testing.T) {
	refs := []domain.DocumentRef{
		{Date: "2024-01", Category: domain.CategoryTranscript, SourceURL: "https://o.test/t1"},
		{Date: "2024-01", Category: domain.CategoryTranscript, SourceURL: "https://o.test/t2"},
		{Date: "2024-01", Category: domain.CategoryTranscript, SourceURL: "https://o.test/t3"},
	}
	primary := &stubFetcher{downloads: map[string]*fetcher.Download{
		"https://o.test/t1": pdfDownload("https://o.test/t1"),
		"https://o.test/t2": pdfDownload("https://o.test/t2"),
		"https://o.test/t3": pdfDownload("https://o.test/t3"),
	}}

	outcome := newOrchestrator(primary, nil, nil).Run(context.Background(), refs, domain.AllCategories(), "")

	require.Len(t, outcome.Files, 3)
	assert.Contains(t, outcome.Files, "2024_01_Transcript.pdf")
	assert.Contains(t, outcome.Files, "2024_01_Transcript_2.pdf")
	assert.Contains(t, outcome.Files, "2024_01_Transcript_3.pdf")
}

func TestRun_FailureRecorded(t *testing.T) {
	refs := []domain.DocumentRef{
		{Date: "2023", Category: domain.CategoryAnnualReport, SourceURL: "https://o.test/blocked"},
	}
	primary := &stubFetcher{errors: map[string]error{
		"https://o.test/blocked": domain.NewFetchError(domain.FailureHTMLPayload, "looks like HTML", "https://o.test/blocked"),
	}}

	outcome := newOrchestrator(primary, nil, nil).Run(context.Background(), refs, domain.AllCategories(), "")

	assert.Zero(t, outcome.Succeeded)
	require.Len(t, outcome.Failures, 1)
	rec := outcome.Failures[0]
	assert.Equal(t, "https://o.test/blocked", rec.URL)
	assert.Equal(t, domain.CategoryAnnualReport, rec.Category)
	assert.Equal(t, "2023_Annual_Report", rec.BaseName)
	assert.Equal(t, domain.FailureHTMLPayload, rec.Kind)
}

func TestRun_FallbackRescues(t *testing.T) {
	refs := []domain.DocumentRef{
		{Date: "2023", Category: domain.CategoryAnnualReport, SourceURL: "https://o.test/hard"},
	}
	primary := &stubFetcher{errors: map[string]error{
		"https://o.test/hard": domain.NewFetchError(domain.FailureHTMLPayload, "block page", "https://o.test/hard"),
	}}
	fallback := &stubFallback{downloads: map[string]*fetcher.Download{
		"https://o.test/hard": pdfDownload("https://o.test/hard"),
	}}

	outcome := newOrchestrator(primary, fallback, nil).Run(context.Background(), refs, domain.AllCategories(), "")

	assert.Equal(t, []string{"https://o.test/hard"}, fallback.calls)
	assert.Equal(t, 1, outcome.Succeeded)
	assert.Empty(t, outcome.Failures)
}

func TestRun_FallbackExhausted(t *testing.T) {
	refs := []domain.DocumentRef{
		{Date: "2023", Category: domain.CategoryAnnualReport, SourceURL: "https://o.test/hopeless"},
	}
	primary := &stubFetcher{errors: map[string]error{
		"https://o.test/hopeless": domain.NewFetchError(domain.FailureTooSmall, "151 bytes", "https://o.test/hopeless"),
	}}
	fallback := &stubFallback{}

	outcome := newOrchestrator(primary, fallback, nil).Run(context.Background(), refs, domain.AllCategories(), "")

	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, domain.FailureExhausted, outcome.Failures[0].Kind)
	assert.Contains(t, outcome.Failures[0].Detail, "primary")
	assert.Contains(t, outcome.Failures[0].Detail, "fallback")
}

func TestRun_ProgressCallback(t *testing.T) {
	refs := []domain.DocumentRef{
		{Date: "2024", Category: domain.CategoryAnnualReport, SourceURL: "https://o.test/ok"},
		{Date: "2023", Category: domain.CategoryAnnualReport, SourceURL: "https://o.test/bad"},
	}
	primary := &stubFetcher{
		downloads: map[string]*fetcher.Download{"https://o.test/ok": pdfDownload("https://o.test/ok")},
		errors: map[string]error{
			"https://o.test/bad": domain.NewFetchError(domain.FailureNetwork, "refused", "https://o.test/bad"),
		},
	}

	var seen []Progress
	newOrchestrator(primary, nil, func(p Progress) { seen = append(seen, p) }).
		Run(context.Background(), refs, domain.AllCategories(), "")

	require.Len(t, seen, 2)
	assert.Equal(t, Progress{Completed: 1, Total: 2, Succeeded: 1, Failed: 0}, seen[0])
	assert.Equal(t, Progress{Completed: 2, Total: 2, Succeeded: 1, Failed: 1}, seen[1])
}
