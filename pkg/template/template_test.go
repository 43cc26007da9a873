package template_test

import (
	"testing"

	"github.com/cadenzahq/cadenza/pkg/template"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	t.Parallel()

	vars := map[string]string{
		"contact.name":  "Ada",
		"contact.email": "ada@example.com",
		"business.name": "Lovelace & Co",
		"empty":         "",
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single token",
			input:    "Hi {contact.name}!",
			expected: "Hi Ada!",
		},
		{
			name:     "multiple tokens",
			input:    "{contact.name} <{contact.email}>",
			expected: "Ada <ada@example.com>",
		},
		{
			name:     "unknown token passes through",
			input:    "Hi {contact.nickname}",
			expected: "Hi {contact.nickname}",
		},
		{
			name:     "empty value expands to nothing",
			input:    "[{empty}]",
			expected: "[]",
		},
		{
			name:     "no tokens",
			input:    "plain text",
			expected: "plain text",
		},
		{
			name:     "unbalanced open brace",
			input:    "curly { but no close",
			expected: "curly { but no close",
		},
		{
			name:     "malformed token is not a placeholder",
			input:    "json {\"key\": \"{contact.name}\"}",
			expected: "json {\"key\": \"Ada\"}",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "adjacent tokens",
			input:    "{contact.name}{contact.name}",
			expected: "AdaAda",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, template.Render(tt.input, vars))
		})
	}
}

func TestRenderNilVars(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hi {name}", template.Render("Hi {name}", nil))
}

func TestHasTokens(t *testing.T) {
	t.Parallel()

	assert.True(t, template.HasTokens("Hello {name}"))
	assert.True(t, template.HasTokens("{a} and {b}"))
	assert.False(t, template.HasTokens("no tokens here"))
	assert.False(t, template.HasTokens("open { only"))
	assert.False(t, template.HasTokens("{not a token}"))
	assert.True(t, template.HasTokens("{\"key\": {now.hour}}"))
}
