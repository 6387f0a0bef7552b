// Package textutil provides filename helpers for saved summaries.
//
// Slug turns an arbitrary video title into a portable file stem, folding
// accents with golang.org/x/text normalization; SanitizeFileName cleans a
// user-supplied name without changing its case.
package textutil
