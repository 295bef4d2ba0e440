package domain

import "fmt"

// Category identifies the kind of disclosure document. The values double
// as the labels embedded in generated file names.
type Category string

const (
	CategoryAnnualReport Category = "Annual_Report"
	CategoryTranscript   Category = "Transcript"
	CategoryPresentation Category = "PPT"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAnnualReport, CategoryTranscript, CategoryPresentation:
		return true
	}
	return false
}

// AllCategories returns every known category.
func AllCategories() []Category {
	return []Category{CategoryAnnualReport, CategoryTranscript, CategoryPresentation}
}

// DocumentRef points at one downloadable document discovered on a
// listing page. It is constructed once by the parser and never mutated.
//
// Date is free-form: a 4-digit year for annual reports, "YYYY-MM" or
// "YYYY-MM-DD" for parsed concall labels, or the raw label verbatim when
// date parsing failed.
type DocumentRef struct {
	Date      string
	Category  Category
	SourceURL string
}

// NewDocumentRef creates a DocumentRef with validation.
// The source URL must never be empty.
func NewDocumentRef(date string, category Category, sourceURL string) (DocumentRef, error) {
	if sourceURL == "" {
		return DocumentRef{}, fmt.Errorf("document ref requires a source URL (date=%q category=%q)", date, category)
	}
	if !category.Valid() {
		return DocumentRef{}, fmt.Errorf("unknown document category: %q", category)
	}
	return DocumentRef{
		Date:      date,
		Category:  category,
		SourceURL: sourceURL,
	}, nil
}
