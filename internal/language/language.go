// Package language normalizes the language codes carried by signups and
// conversations into the short codes used as template and prompt keys.
package language

import (
	"strings"

	"golang.org/x/text/language"
)

// Normalize turns a BCP 47 tag such as "nb-NO" or "EN_us" into its base code.
// Norwegian Bokmål and Nynorsk collapse to "no". It returns "" when raw is not
// a well-formed tag.
func Normalize(raw string) string {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
	if raw == "" {
		return ""
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return ""
	}

	base, _ := tag.Base()
	code := base.String()
	switch code {
	case "nb", "nn":
		return "no"
	case "und":
		return ""
	}
	return code
}

// OrDefault normalizes raw and falls back to def when it is empty or invalid.
func OrDefault(raw, def string) string {
	if code := Normalize(raw); code != "" {
		return code
	}
	return def
}
