package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("Hei!\nLinje to\n\n- en\n- to")
	require.NoError(t, err)

	assert.Contains(t, out, "<p>Hei!<br>\nLinje to</p>")
	assert.Contains(t, out, "<li>en</li>")
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	out, err := RenderMarkdown(`<img src=x onerror=alert(1)>`)
	require.NoError(t, err)
	assert.NotContains(t, out, "onerror")
}
