package inbound

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSender(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare string", `"sender@example.com"`, "sender@example.com", true},
		{"padded bare string", `"  sender@example.com  "`, "sender@example.com", true},
		{"display name", `"Jane Doe <jane@example.com>"`, "jane@example.com", true},
		{"quoted display name with comma", `"\"Jane, CFO\" <cfo@example.com>"`, "cfo@example.com", true},
		{"encoded display name", `"=?utf-8?q?Ol=C3=A1?= <ola@example.no>"`, "ola@example.no", true},
		{"angle bracket fallback", `"Broken \"quote <x@example.com>"`, "x@example.com", true},
		{"address object", `{"address":"obj@example.com","name":"Obj"}`, "obj@example.com", true},
		{"email object", `{"email":"alt@example.com"}`, "alt@example.com", true},
		{"address preferred over email", `{"address":"first@example.com","email":"second@example.com"}`, "first@example.com", true},
		{"empty address falls back to email", `{"address":"","email":"second@example.com"}`, "second@example.com", true},
		{"array of string", `["Arr <arr@example.com>", "other@example.com"]`, "arr@example.com", true},
		{"array of object", `[{"address":"ao@example.com"}]`, "ao@example.com", true},
		{"array of address list", `["a@example.com, c@example.com"]`, "", false},
		{"empty array", `[]`, "", false},
		{"nested array", `[["n@example.com"]]`, "", false},
		{"address list", `"a@example.com, c@example.com"`, "", false},
		{"named address list", `"A <a@example.com>, C <c@example.com>"`, "", false},
		{"semicolon separated", `"a@example.com;c@example.com"`, "", false},
		{"broken list with two angle addresses", `"Broken \"quote <a@example.com> <c@example.com>"`, "", false},
		{"blank string", `"   "`, "", false},
		{"no at sign", `"nobody"`, "", false},
		{"too short", `"a@b"`, "", false},
		{"object without fields", `{"name":"Nobody"}`, "", false},
		{"object with wrong types", `{"address":42}`, "", false},
		{"null", `null`, "", false},
		{"number", `42`, "", false},
		{"empty", ``, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractSender(json.RawMessage(tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractSenderParsesArrayElementsWithoutRecursion(t *testing.T) {
	// parseArraySender must not consult the top-level parser list, or nested
	// arrays would be unwrapped.
	got, ok := ExtractSender(json.RawMessage(`[{"email":"first@example.com"}, "second@example.com"]`))
	assert.True(t, ok)
	assert.Equal(t, "first@example.com", got)

	_, ok = ExtractSender(json.RawMessage(`[[["deep@example.com"]]]`))
	assert.False(t, ok)
}
