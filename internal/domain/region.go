package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// RegionNameToID lowercases the name and joins whitespace-separated words
// with hyphens: "Pacific Islands" -> "pacific-islands".
func RegionNameToID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// RegionIDToName reverses RegionNameToID by title-casing every
// hyphen-delimited token: "pacific-islands" -> "Pacific Islands".
func RegionIDToName(id string) string {
	tokens := strings.Split(id, "-")
	for i, token := range tokens {
		tokens[i] = upperFirst(token)
	}
	return strings.Join(tokens, " ")
}

// TitleCase upper-cases the first letter of each word and lower-cases the
// rest, collapsing runs of whitespace to one space.
func TitleCase(name string) string {
	words := strings.Fields(name)
	for i, word := range words {
		words[i] = upperFirst(strings.ToLower(word))
	}
	return strings.Join(words, " ")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
