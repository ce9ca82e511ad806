package resolver

import "fmt"

// SecretNotFoundError is returned when a placeholder names a key that has no
// value in the service's table. It carries the key only, never a value.
type SecretNotFoundError struct {
	Key string
}

func (e *SecretNotFoundError) Error() string {
	return fmt.Sprintf("secret %q not found", e.Key)
}
