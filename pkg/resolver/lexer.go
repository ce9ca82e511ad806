package resolver

import "strings"

// Prefix introduces a placeholder.
const Prefix = "secret://"

// token is one placeholder found in a value.
type token struct {
	start, end int // byte offsets of the whole placeholder in the value
	key        string
}

func isKeyByte(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_' || c == '-'
}

// scan returns the placeholders in value in order of appearance. A prefix not
// followed by at least one key character is not a placeholder and is skipped.
func scan(value string) []token {
	var tokens []token

	for i := 0; i < len(value); {
		idx := strings.Index(value[i:], Prefix)
		if idx < 0 {
			break
		}
		start := i + idx
		end := start + len(Prefix)
		for end < len(value) && isKeyByte(value[end]) {
			end++
		}

		if end == start+len(Prefix) {
			i = end
			continue
		}

		tokens = append(tokens, token{
			start: start,
			end:   end,
			key:   strings.ToLower(value[start+len(Prefix) : end]),
		})
		i = end
	}

	return tokens
}
