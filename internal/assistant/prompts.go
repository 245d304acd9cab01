// Package assistant builds chat completion requests from conversation history
// and asks the language model for a support reply.
package assistant

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// PromptTable maps language codes to system prompts with an explicit fallback.
type PromptTable struct {
	Fallback string            `yaml:"fallback"`
	Prompts  map[string]string `yaml:"prompts"`
}

// LoadPromptTable parses the embedded prompt table.
func LoadPromptTable() (*PromptTable, error) {
	return ParsePromptTable(promptsYAML)
}

// ParsePromptTable parses and validates a YAML prompt table.
func ParsePromptTable(raw []byte) (*PromptTable, error) {
	var table PromptTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("failed to parse prompt table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// Validate ensures the fallback language has a non-empty prompt.
func (t *PromptTable) Validate() error {
	if t.Fallback == "" {
		return fmt.Errorf("prompt table has no fallback language")
	}
	if strings.TrimSpace(t.Prompts[t.Fallback]) == "" {
		return fmt.Errorf("prompt table is missing a prompt for fallback language %q", t.Fallback)
	}
	return nil
}

// For returns the system prompt for lang, or the fallback prompt.
func (t *PromptTable) For(lang string) string {
	if p, ok := t.Prompts[lang]; ok && strings.TrimSpace(p) != "" {
		return p
	}
	return t.Prompts[t.Fallback]
}
