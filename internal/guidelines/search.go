// Package guidelines serves the healthcare guideline sections, their search
// and the guideline chat assistant.
package guidelines

import (
	"strings"

	"healthmate/internal/catalog"
)

// Search matches entries whose title, content or section contains the query,
// ignoring case. A blank query matches nothing.
func Search(entries []catalog.SearchEntry, query string) []catalog.SearchEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []catalog.SearchEntry{}
	if q == "" {
		return out
	}
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), q) ||
			strings.Contains(strings.ToLower(e.Content), q) ||
			strings.Contains(strings.ToLower(e.Section), q) {
			out = append(out, e)
		}
	}
	return out
}
