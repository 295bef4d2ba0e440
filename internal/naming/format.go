// Package naming derives archive file names for retrieved documents:
// a deterministic base name from the document's date and category, and
// an extension resolved from response metadata.
package naming

import (
	"regexp"
	"strings"

	"stocklib/internal/domain"
)

var (
	yearPattern      = regexp.MustCompile(`^\d{4}$`)
	yearMonthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
	isoDatePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dmyPattern       = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	unsafeChars      = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

// Format builds the extension-less base name for a document. It is pure
// and total: any date string yields a usable name. Recognized shapes are
// normalized to year-first underscore form; everything else is
// sanitized verbatim.
func Format(date string, category domain.Category) string {
	cat := string(category)

	if yearPattern.MatchString(date) {
		return date + "_" + cat
	}
	if yearMonthPattern.MatchString(date) {
		parts := strings.SplitN(date, "-", 2)
		return parts[0] + "_" + parts[1] + "_" + cat
	}
	if isoDatePattern.MatchString(date) {
		parts := strings.SplitN(date, "-", 3)
		return parts[0] + "_" + parts[1] + "_" + parts[2] + "_" + cat
	}
	if dmyPattern.MatchString(date) {
		// DD/MM/YYYY reordered to year-first.
		parts := strings.SplitN(date, "/", 3)
		return parts[2] + "_" + parts[1] + "_" + parts[0] + "_" + cat
	}

	clean := unsafeChars.ReplaceAllString(date, "_")
	return clean + "_" + cat
}
