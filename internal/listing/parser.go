package listing

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"stocklib/internal/domain"
)

var fiscalYearPattern = regexp.MustCompile(`Financial Year (\d{4})`)

// Parse converts a listing page into document references, newest
// first. Malformed rows are dropped silently; an empty or unparseable
// page yields an empty slice, never an error.
//
// Ordering uses plain lexicographic comparison on the date strings.
// Canonical dates (years, YYYY-MM) order correctly; raw fallback labels
// sort inconsistently relative to them. That mirrors the source site's
// own loose ordering and is a known, low-impact quirk.
func Parse(html string, baseURL string) []domain.DocumentRef {
	if html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	base, _ := url.Parse(baseURL)

	var refs []domain.DocumentRef
	refs = append(refs, parseAnnualReports(doc, base)...)
	refs = append(refs, parseConcalls(doc, base)...)

	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Date > refs[j].Date
	})
	return refs
}

// parseAnnualReports walks the annual-reports section. Each usable row
// carries a "Financial Year YYYY" label; rows without one are skipped,
// the site publishes the occasional malformed row.
func parseAnnualReports(doc *goquery.Document, base *url.URL) []domain.DocumentRef {
	var refs []domain.DocumentRef

	section := doc.Find("#documents-annual-reports, .annual-reports")
	section.Find("ul.list-links li a").Each(func(_ int, link *goquery.Selection) {
		match := fiscalYearPattern.FindStringSubmatch(strings.TrimSpace(link.Text()))
		if match == nil {
			return
		}
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		ref, err := newRef(match[1], domain.CategoryAnnualReport, href, base)
		if err != nil {
			return
		}
		refs = append(refs, ref)
	})
	return refs
}

// parseConcalls walks the earnings-call section. Entries are grouped
// into sibling blocks, each carrying one date label; a block may
// contribute a transcript, a presentation, both, or neither.
func parseConcalls(doc *goquery.Document, base *url.URL) []domain.DocumentRef {
	var refs []domain.DocumentRef

	section := doc.Find("#documents-concall-transcripts-and-presentations, .concalls")
	section.Find("ul.list-links li").Each(func(_ int, item *goquery.Selection) {
		label := strings.TrimSpace(item.Find(".ink-600.font-size-15").First().Text())
		if label == "" {
			return
		}
		date := normalizeConcallDate(label)

		item.Find("a.concall-link").Each(func(_ int, link *goquery.Selection) {
			href, ok := link.Attr("href")
			if !ok {
				return
			}
			text := link.Text()

			var category domain.Category
			switch {
			case strings.Contains(text, "Transcript"):
				category = domain.CategoryTranscript
			case strings.Contains(text, "PPT") || strings.Contains(strings.ToLower(text), "presentation"):
				category = domain.CategoryPresentation
			default:
				return
			}

			ref, err := newRef(date, category, href, base)
			if err != nil {
				return
			}
			refs = append(refs, ref)
		})
	})
	return refs
}

// normalizeConcallDate canonicalizes a concall date label. "Mar 2024"
// becomes "2024-03" and "23 Mar 2024" becomes "2024-03-23"; anything
// else is kept verbatim so the reference is never lost to a formatting
// change on the site.
func normalizeConcallDate(label string) string {
	if t, err := time.Parse("Jan 2006", label); err == nil {
		return t.Format("2006-01")
	}
	if t, err := time.Parse("2 Jan 2006", label); err == nil {
		return t.Format("2006-01-02")
	}
	return label
}

// newRef resolves a possibly site-relative href against the listing
// base and builds the reference.
func newRef(date string, category domain.Category, href string, base *url.URL) (domain.DocumentRef, error) {
	resolved := href
	if base != nil {
		if parsed, err := url.Parse(href); err == nil {
			resolved = base.ResolveReference(parsed).String()
		}
	}
	return domain.NewDocumentRef(date, category, resolved)
}
