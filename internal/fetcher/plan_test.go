package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlan_DefaultOrigin(t *testing.T) {
	p := buildPlan("https://example.com/reports/fy24.pdf", "https://aggregator.test/company/ACME/consolidated/")

	assert.Empty(t, p.warmup)
	require.Len(t, p.candidates, 1)
	assert.Equal(t, "https://example.com/reports/fy24.pdf", p.candidates[0].url)
	assert.Equal(t, "https://aggregator.test/company/ACME/consolidated/", p.candidates[0].referer)
}

func TestBuildPlan_BSEAttachmentViewer(t *testing.T) {
	p := buildPlan(
		"https://www.bseindia.com/xml-data/corpfiling/AnnPdfOpen.aspx?Pname=532500abc123.pdf",
		"https://aggregator.test/company/ACME/consolidated/",
	)

	assert.Equal(t, []string{"https://www.bseindia.com/"}, p.warmup)
	require.Len(t, p.candidates, 3)
	assert.Equal(t, "https://www.bseindia.com/xml-data/corpfiling/AttachLive/532500abc123.pdf", p.candidates[0].url)
	assert.Equal(t, "https://www.bseindia.com/corporates/annpdf/532500abc123.pdf", p.candidates[1].url)
	assert.Equal(t, "https://www.bseindia.com/xml-data/corpfiling/AnnPdfOpen.aspx?Pname=532500abc123.pdf", p.candidates[2].url)

	// The Referer encodes the scrip code, the first six characters of
	// the attachment name.
	for _, c := range p.candidates {
		assert.Equal(t, "https://www.bseindia.com/corporates/ann.html?scrip=532500", c.referer)
	}
}

func TestBuildPlan_BSEWithoutPname(t *testing.T) {
	p := buildPlan("https://www.bseindia.com/some/direct/file.pdf", "https://aggregator.test/page")

	assert.Equal(t, []string{"https://www.bseindia.com/"}, p.warmup)
	require.Len(t, p.candidates, 1)
	assert.Equal(t, "https://www.bseindia.com/some/direct/file.pdf", p.candidates[0].url)
	assert.Equal(t, "https://aggregator.test/page", p.candidates[0].referer)
}

func TestBuildPlan_NSEWarmup(t *testing.T) {
	p := buildPlan("https://www.nseindia.com/content/something.pdf", "https://aggregator.test/page")

	require.Equal(t, []string{
		"https://www.nseindia.com/",
		"https://www.nseindia.com/companies-listing/corporate-filings-announcements",
	}, p.warmup)
	require.Len(t, p.candidates, 1)
	assert.Equal(t, "https://www.nseindia.com/companies-listing/corporate-filings-announcements", p.candidates[0].referer)
}
