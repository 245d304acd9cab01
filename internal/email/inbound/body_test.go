package inbound

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraphs", "<p>Hei</p><p>Hvordan går det?</p>", "Hei Hvordan går det?"},
		{"entities", "Fish &amp; chips&nbsp;&lt;3 &quot;yum&quot;", `Fish & chips <3 "yum"`},
		{"line breaks", "one<br>two<br/>three", "one two three"},
		{"script dropped", "<script>alert(1)</script>hello", "hello"},
		{"whitespace collapsed", "<div>\n\t a \n\n b </div>", "a b"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestResolveBody(t *testing.T) {
	assert.Equal(t, "plain", ResolveBody("  plain  ", "<p>html</p>"))
	assert.Equal(t, "html", ResolveBody("   ", "<p>html</p>"))
	assert.Equal(t, "", ResolveBody("", ""))
}
