package inbound

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// StripHTML removes tags, decodes entities and collapses runs of whitespace
// (including non-breaking spaces) into single spaces.
func StripHTML(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	text := html.UnescapeString(stripPolicy.Sanitize(markup))
	return strings.Join(strings.Fields(text), " ")
}

// ResolveBody prefers the plain-text part and falls back to stripped HTML.
func ResolveBody(text, markup string) string {
	if t := strings.TrimSpace(text); t != "" {
		return t
	}
	return StripHTML(markup)
}
