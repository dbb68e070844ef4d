package epic

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// slugReplacer applies the storefront's slug conventions: spaces and
// dash-like characters become hyphens, punctuation and trademark glyphs
// disappear.
var slugReplacer = strings.NewReplacer(
	" ", "-",
	":", "",
	",", "",
	".", "",
	`"`, "",
	"'", "",
	"’", "", // ’
	"‘", "", // ‘
	"“", "", // “
	"”", "", // ”
	"™", "", // ™
	"®", "", // ®
	"!", "",
	"_", "-",
	"–", "-", // –
	">", "",
	"<", "",
)

// Slugify derives the normalized join key used to match a title against
// the catalog's cross-reference slugs: lowercase, hyphenated, stripped of
// punctuation, with accents folded and hyphen runs collapsed. "Game of the
// Year" style suffixes survive; only the separators collapse.
func Slugify(name string) string {
	s := slugReplacer.Replace(strings.ToLower(name))
	s = foldAccents(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.TrimSuffix(s, "_")
	return s
}

// foldAccents decomposes the string and drops combining marks, so
// "pokémon" and "pokemon" produce the same slug.
func foldAccents(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
