package util

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TruncateString truncates a string to maxRunes characters (rune-based, not byte-based)
// If truncated, appends "..." to the result
func TruncateString(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// Normalize performs basic string normalization (lowercase + trim)
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Slugify converts a name to URL-friendly slug format
func Slugify(name string) string {
	name = Normalize(name)
	name = strings.Join(strings.Fields(name), "-")
	name = strings.ReplaceAll(name, "'", "")
	name = strings.ReplaceAll(name, ".", "")
	name = strings.ReplaceAll(name, "!", "")
	name = strings.ReplaceAll(name, ",", "")
	name = strings.ReplaceAll(name, "(", "")
	name = strings.ReplaceAll(name, ")", "")
	name = strings.ReplaceAll(name, "/", "-")
	return name
}

// StripHTML returns the text content of an HTML fragment with whitespace
// collapsed. Unparseable input is returned trimmed as-is.
func StripHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	if !strings.ContainsAny(fragment, "<&") {
		return CollapseSpaces(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return CollapseSpaces(fragment)
	}

	// block-level boundaries would otherwise glue words together
	doc.Find("p, li, br, div").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})

	return CollapseSpaces(doc.Text())
}

// CollapseSpaces trims s and replaces every whitespace run with one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
