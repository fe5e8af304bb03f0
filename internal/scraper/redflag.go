// Package scraper turns external syndication feeds into listings: fetch,
// parse, clean up, drop unwanted and already known entries, then commit.
package scraper

import "strings"

// ContainsBlockedTerm reports whether a cleaned entry mentions any of terms.
// Matching is a case-folded substring search over title and description;
// blank terms never match.
func ContainsBlockedTerm(title, description string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	text := strings.ToLower(title + "\n" + description)
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" && strings.Contains(text, t) {
			return true
		}
	}
	return false
}
