package resolver

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

const basicPrefix = "Basic "

// basicKey extracts the key from a "Basic <base64(secret://key)>" credential.
// ok is false when the value is not such a credential; malformed base64 is
// not an error.
func basicKey(value string) (key string, ok bool) {
	if !strings.HasPrefix(value, basicPrefix) {
		return "", false
	}

	payload := strings.TrimSpace(value[len(basicPrefix):])
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || !utf8.Valid(decoded) {
		return "", false
	}

	text := string(decoded)
	if !strings.HasPrefix(text, Prefix) {
		return "", false
	}
	return strings.ToLower(text[len(Prefix):]), true
}

// resolveBasic handles the nested Basic-auth case. It returns the value
// unchanged when it is not a Basic credential wrapping a placeholder.
func resolveBasic(value string, table Table) (string, error) {
	key, ok := basicKey(value)
	if !ok {
		return value, nil
	}

	secret, found := table.Lookup(key)
	if !found {
		return "", &SecretNotFoundError{Key: key}
	}
	return basicPrefix + base64.StdEncoding.EncodeToString([]byte(secret)), nil
}
