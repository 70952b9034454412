package assistant

import (
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Supported lists the languages the widget offers, English first so it
// is the matcher's fallback.
var Supported = []language.Tag{
	language.English,
	language.Hindi,
	language.Punjabi,
	language.Tamil,
	language.Malayalam,
}

var matcher = language.NewMatcher(Supported)

var scripts = []struct {
	table *unicode.RangeTable
	tag   language.Tag
}{
	{unicode.Devanagari, language.Hindi},
	{unicode.Gurmukhi, language.Punjabi},
	{unicode.Tamil, language.Tamil},
	{unicode.Malayalam, language.Malayalam},
}

// DetectScript returns the language implied by the first Indic script
// letter in text, or English when there is none.
func DetectScript(text string) language.Tag {
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		for _, s := range scripts {
			if unicode.Is(s.table, r) {
				return s.tag
			}
		}
	}
	return language.English
}

// Resolve picks the reply language. A message written in an Indic script
// answers in that language; otherwise the requested preference, which may
// be a tag ("hi") or an Accept-Language header, is matched against
// Supported.
func Resolve(text, requested string) language.Tag {
	if tag := DetectScript(text); tag != language.English {
		return tag
	}
	if requested == "" {
		return language.English
	}
	prefs, _, err := language.ParseAcceptLanguage(requested)
	if err != nil || len(prefs) == 0 {
		return language.English
	}
	_, idx, conf := matcher.Match(prefs...)
	if conf == language.No {
		return language.English
	}
	return Supported[idx]
}

// EnglishName returns the English name of tag, e.g. "Punjabi".
func EnglishName(tag language.Tag) string {
	return display.English.Languages().Name(tag)
}

// NativeName returns the name of tag in its own language, e.g. "தமிழ்".
func NativeName(tag language.Tag) string {
	return display.Self.Name(tag)
}
