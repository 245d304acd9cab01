package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPromptTable(t *testing.T) {
	table, err := LoadPromptTable()
	require.NoError(t, err)

	assert.Equal(t, "en", table.Fallback)
	for _, lang := range []string{"no", "en", "pl", "ru"} {
		assert.NotEmpty(t, table.Prompts[lang], lang)
	}
	assert.Contains(t, table.For("no"), "Svar alltid på norsk")
	assert.Contains(t, table.For("pl"), "po polsku")
}

func TestPromptTableFallsBackToEnglish(t *testing.T) {
	table, err := LoadPromptTable()
	require.NoError(t, err)

	assert.Equal(t, table.Prompts["en"], table.For("de"))
	assert.Equal(t, table.Prompts["en"], table.For(""))
}

func TestParsePromptTableRequiresFallback(t *testing.T) {
	_, err := ParsePromptTable([]byte("prompts:\n  en: hi\n"))
	assert.Error(t, err)

	_, err = ParsePromptTable([]byte("fallback: de\nprompts:\n  en: hi\n"))
	assert.Error(t, err)

	_, err = ParsePromptTable([]byte("fallback: en\nprompts:\n  en: \"  \"\n"))
	assert.Error(t, err)

	table, err := ParsePromptTable([]byte("fallback: en\nprompts:\n  en: hi\n  de: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "hi", table.For("de"))
}
