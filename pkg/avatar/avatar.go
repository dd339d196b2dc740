// Package avatar derives species avatar references from a species language.
//
// A language is reduced to one or two initials which are then rendered as a
// ui-avatars.com URL. Some initials map to the literal token Placeholder,
// which consumers render with a local image instead of fetching a URL.
package avatar

import (
	"net/url"
	"strings"
)

const (
	// ServiceURL is the avatar service endpoint; initials are appended as the name parameter.
	ServiceURL = "https://eu.ui-avatars.com/api/?name="

	// Placeholder is emitted instead of a URL for initials without an avatar.
	Placeholder = "placeholder"
)

// Initials reduces a language name to its avatar initials.
//
// The language is split on single spaces. A single word yields its first and
// last character (or the word itself when it has at most one character).
// Multiple words yield the first character of the first and of the last word.
func Initials(language string) string {
	words := strings.Split(language, " ")
	if len(words) == 1 {
		runes := []rune(words[0])
		if len(runes) > 1 {
			return string(runes[0]) + string(runes[len(runes)-1])
		}
		return words[0]
	}
	return firstRune(words[0]) + firstRune(words[len(words)-1])
}

// URL maps initials to an avatar URL or Placeholder.
//
// "na" is treated as unknown and becomes Placeholder. "Na" keeps its casing
// while every other value is lowercased, so the two differ on purpose.
func URL(initials string) string {
	final := strings.ToLower(initials)
	switch initials {
	case "na":
		final = "ww"
	case "Na":
		final = "Na"
	}

	if final == "ww" {
		return Placeholder
	}
	return ServiceURL + formEncode(final)
}

// formEscapes turns url.QueryEscape output into the form encoding avatar
// URLs have always used: '*' stays literal and '~' is escaped.
var formEscapes = strings.NewReplacer("%2A", "*", "~", "%7E")

func formEncode(s string) string {
	return formEscapes.Replace(url.QueryEscape(s))
}

// ForLanguage is URL(Initials(language)).
func ForLanguage(language string) string {
	return URL(Initials(language))
}

// IsPlaceholder reports whether ref is the placeholder token rather than a URL.
func IsPlaceholder(ref string) bool {
	return ref == Placeholder
}

func firstRune(word string) string {
	for _, r := range word {
		return string(r)
	}
	return ""
}
