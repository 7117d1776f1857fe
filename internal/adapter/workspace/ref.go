// Package workspace is the HTTP client for the external document and
// spreadsheet relay.
package workspace

import "strings"

// ExtractSheetRef returns the bare spreadsheet id from a full sheet URL,
// or the input unchanged when it is not a URL.
func ExtractSheetRef(raw string) string {
	return extractRef(raw, "/spreadsheets/d/")
}

// ExtractDocRef returns the bare document id from a full document URL,
// or the input unchanged when it is not a URL.
func ExtractDocRef(raw string) string {
	return extractRef(raw, "/document/d/")
}

// extractRef slices the id following marker, stopping at the next path
// separator or fragment.
func extractRef(raw, marker string) string {
	i := strings.Index(raw, marker)
	if i < 0 {
		return raw
	}
	rest := raw[i+len(marker):]
	if j := strings.IndexAny(rest, "/#"); j >= 0 {
		return rest[:j]
	}
	return rest
}
