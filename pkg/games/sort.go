package games

import "strings"

// articles that are dropped from the front of a title for sorting.
var articles = map[string]struct{}{
	"a":   {},
	"an":  {},
	"the": {},
}

// SortingTitle returns the title without a leading "A", "An", or "The".
// A single-word title is returned unchanged so nothing sorts as empty.
func SortingTitle(title string) string {
	words := strings.Split(title, " ")
	if len(words) <= 1 {
		return title
	}
	if _, ok := articles[strings.ToLower(words[0])]; ok {
		return strings.Join(words[1:], " ")
	}
	return title
}
