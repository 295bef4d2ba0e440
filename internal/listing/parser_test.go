package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklib/internal/domain"
)

const listingFixture = `
<html><body>
<div id="documents-annual-reports" class="annual-reports">
  <ul class="list-links">
    <li><a href="https://www.bseindia.com/bseplus/AnnualReport/500570/fy24.pdf">Financial Year 2024 from bse</a></li>
    <li><a href="/company/reports/fy23.pdf">Financial Year 2023 from nse</a></li>
    <li><a href="https://example.com/misc.pdf">Shareholder letter (no year label)</a></li>
  </ul>
</div>
<div id="documents-concall-transcripts-and-presentations" class="concalls">
  <ul class="list-links">
    <li>
      <div class="ink-600 font-size-15">Mar 2024</div>
      <a class="concall-link" href="https://example.com/q4-transcript.pdf">Transcript</a>
      <a class="concall-link" href="https://example.com/q4-ppt.pdf">PPT</a>
    </li>
    <li>
      <div class="ink-600 font-size-15">23 Jan 2024</div>
      <a class="concall-link" href="/concall/q3-transcript.pdf">Transcript Notes</a>
    </li>
    <li>
      <div class="ink-600 font-size-15">Sometime FY24</div>
      <a class="concall-link" href="https://example.com/odd-presentation.pdf">Investor presentation</a>
    </li>
    <li>
      <div class="ink-600 font-size-15">Dec 2023</div>
      <a class="concall-link" href="https://example.com/q2-notes.pdf">Raw notes</a>
    </li>
  </ul>
</div>
</body></html>`

func TestParse_ExtractsTypedRefs(t *testing.T) {
	refs := Parse(listingFixture, "https://www.screener.in")

	byURL := make(map[string]domain.DocumentRef, len(refs))
	for _, r := range refs {
		byURL[r.SourceURL] = r
	}

	// Annual reports: year extracted, unlabeled row dropped.
	ar, ok := byURL["https://www.bseindia.com/bseplus/AnnualReport/500570/fy24.pdf"]
	require.True(t, ok)
	assert.Equal(t, "2024", ar.Date)
	assert.Equal(t, domain.CategoryAnnualReport, ar.Category)

	// Relative href resolved against the base.
	ar23, ok := byURL["https://www.screener.in/company/reports/fy23.pdf"]
	require.True(t, ok)
	assert.Equal(t, "2023", ar23.Date)

	_, ok = byURL["https://example.com/misc.pdf"]
	assert.False(t, ok, "row without a Financial Year label must be dropped")

	// Concall block contributes both categories with the same date.
	tr, ok := byURL["https://example.com/q4-transcript.pdf"]
	require.True(t, ok)
	assert.Equal(t, "2024-03", tr.Date)
	assert.Equal(t, domain.CategoryTranscript, tr.Category)

	ppt, ok := byURL["https://example.com/q4-ppt.pdf"]
	require.True(t, ok)
	assert.Equal(t, "2024-03", ppt.Date)
	assert.Equal(t, domain.CategoryPresentation, ppt.Category)

	// Day-precision label canonicalized, relative URL resolved.
	q3, ok := byURL["https://www.screener.in/concall/q3-transcript.pdf"]
	require.True(t, ok)
	assert.Equal(t, "2024-01-23", q3.Date)

	// Unparseable label kept verbatim; "presentation" matched
	// case-insensitively.
	odd, ok := byURL["https://example.com/odd-presentation.pdf"]
	require.True(t, ok)
	assert.Equal(t, "Sometime FY24", odd.Date)
	assert.Equal(t, domain.CategoryPresentation, odd.Category)

	// Links labeled neither Transcript nor PPT/presentation are ignored.
	_, ok = byURL["https://example.com/q2-notes.pdf"]
	assert.False(t, ok)
}

func TestParse_NewestFirst(t *testing.T) {
	refs := Parse(listingFixture, "https://www.screener.in")
	require.NotEmpty(t, refs)

	// Canonical dates must appear in descending lexicographic order
	// relative to each other.
	var canonical []string
	for _, r := range refs {
		if r.Date != "Sometime FY24" {
			canonical = append(canonical, r.Date)
		}
	}
	for i := 1; i < len(canonical); i++ {
		assert.GreaterOrEqual(t, canonical[i-1], canonical[i])
	}
}

func TestParse_EmptyAndMissingSections(t *testing.T) {
	assert.Empty(t, Parse("", "https://www.screener.in"))
	assert.Empty(t, Parse("<html><body><p>maintenance</p></body></html>", "https://www.screener.in"))
}
