package pipeline

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const defaultLanguage = "English"

// languageName renders a BCP-47 tag as an English language name for use
// inside prompts. Text that is not a tag ("Spanish") is used as given.
func languageName(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return defaultLanguage
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Languages().Name(parsed); name != "" {
		return name
	}
	return tag
}
