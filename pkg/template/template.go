// Package template provides placeholder expansion for dynamic automation configuration.
//
// Templates are plain strings containing {token} placeholders. Tokens are resolved
// against a flat variable map; unknown tokens are left in place verbatim so a
// misconfigured template degrades visibly instead of silently dropping text.
package template

import (
	"strings"
)

// Render expands every {token} placeholder in input using vars.
//
// A token is a run of letters, digits, underscores and dots between a '{' and the
// next '}'. Anything that does not parse as a token (unbalanced braces, empty or
// malformed names) is passed through unchanged.
func Render(input string, vars map[string]string) string {
	if input == "" || !strings.ContainsRune(input, '{') {
		return input
	}

	var out strings.Builder

	out.Grow(len(input))

	for i := 0; i < len(input); {
		open := strings.IndexByte(input[i:], '{')
		if open < 0 {
			out.WriteString(input[i:])

			break
		}

		open += i
		out.WriteString(input[i:open])

		closing := strings.IndexByte(input[open:], '}')
		if closing < 0 {
			out.WriteString(input[open:])

			break
		}

		closing += open

		name := input[open+1 : closing]
		if !validTokenName(name) {
			out.WriteByte('{')
			i = open + 1

			continue
		}

		if value, ok := vars[name]; ok {
			out.WriteString(value)
		} else {
			out.WriteString(input[open : closing+1])
		}

		i = closing + 1
	}

	return out.String()
}

// HasTokens reports whether input contains at least one well-formed placeholder.
func HasTokens(input string) bool {
	for i := 0; i < len(input); {
		open := strings.IndexByte(input[i:], '{')
		if open < 0 {
			return false
		}

		open += i

		closing := strings.IndexByte(input[open:], '}')
		if closing < 0 {
			return false
		}

		closing += open
		if validTokenName(input[open+1 : closing]) {
			return true
		}

		i = open + 1
	}

	return false
}

func validTokenName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '.':
		default:
			return false
		}
	}

	return true
}
