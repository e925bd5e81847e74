package scan

import "strings"

// Filter returns the records whose title or OCR text contains the query,
// case-insensitively. An empty query matches every record. Store ordering
// (newest first) is preserved and the input is never mutated.
func Filter(records []ScanRecord, query string) []ScanRecord {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return records
	}

	matched := make([]ScanRecord, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Title), query) ||
			strings.Contains(strings.ToLower(r.OCRText), query) {
			matched = append(matched, r)
		}
	}
	return matched
}
