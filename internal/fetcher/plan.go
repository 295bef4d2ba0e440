package fetcher

import (
	"fmt"
	"net/url"
	"strings"
)

// candidate is one concrete URL/Referer pair to attempt for a document.
type candidate struct {
	url     string
	referer string
}

// plan describes how to retrieve a document from its origin: optional
// warm-up URLs that establish session cookies, followed by candidate
// URLs in preference order. Every candidate is tried on every retry
// attempt before backing off.
type plan struct {
	warmup     []string
	candidates []candidate
}

const (
	bseAttachLiveBase = "https://www.bseindia.com/xml-data/corpfiling/AttachLive/%s"
	bseAnnPDFBase     = "https://www.bseindia.com/corporates/annpdf/%s"
	bseRefererBase    = "https://www.bseindia.com/corporates/ann.html?scrip=%s"
	bseRoot           = "https://www.bseindia.com/"
	nseRoot           = "https://www.nseindia.com/"
	nseFilingsPage    = "https://www.nseindia.com/companies-listing/corporate-filings-announcements"
)

// buildPlan maps a document URL to its origin-specific retrieval plan.
// listingReferer is the aggregator page the URL was discovered on; it
// backs the default strategy and any origin without a dedicated one.
func buildPlan(rawURL, listingReferer string) plan {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return plan{candidates: []candidate{{url: rawURL, referer: listingReferer}}}
	}

	host := strings.ToLower(parsed.Hostname())
	switch {
	case strings.HasSuffix(host, "bseindia.com"):
		return buildBSEPlan(rawURL, parsed, listingReferer)
	case strings.HasSuffix(host, "nseindia.com"):
		return plan{
			warmup:     []string{nseRoot, nseFilingsPage},
			candidates: []candidate{{url: rawURL, referer: nseFilingsPage}},
		}
	default:
		return plan{candidates: []candidate{{url: rawURL, referer: listingReferer}}}
	}
}

// buildBSEPlan handles BSE's attachment viewer URLs. An
// AnnPdfOpen.aspx link carries the real attachment name in its Pname
// parameter; the direct attachment endpoints accept that name and are
// far less guarded than the viewer itself, so they are tried first.
func buildBSEPlan(rawURL string, parsed *url.URL, listingReferer string) plan {
	pname := parsed.Query().Get("Pname")
	if pname == "" || !strings.Contains(strings.ToLower(parsed.Path), "annpdfopen.aspx") {
		return plan{
			warmup:     []string{bseRoot},
			candidates: []candidate{{url: rawURL, referer: listingReferer}},
		}
	}

	scrip := pname
	if len(scrip) > 6 {
		scrip = scrip[:6]
	}
	referer := fmt.Sprintf(bseRefererBase, scrip)

	return plan{
		warmup: []string{bseRoot},
		candidates: []candidate{
			{url: fmt.Sprintf(bseAttachLiveBase, pname), referer: referer},
			{url: fmt.Sprintf(bseAnnPDFBase, pname), referer: referer},
			{url: rawURL, referer: referer},
		},
	}
}
