package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"mercator-hq/vaultgate/pkg/secrets"
)

func TestIsSensitiveKey(t *testing.T) {
	sensitive := []string{"authorization", "Authorization", "proxy-authorization", "password", "client_secret", "refresh_token", "API_KEY", "cookie"}
	for _, k := range sensitive {
		assert.True(t, isSensitiveKey(k), k)
	}

	plain := []string{"secret_keys", "service", "status", "tokens_used", "header_names", "path"}
	for _, k := range plain {
		assert.False(t, isSensitiveKey(k), k)
	}
}

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor()
	assert.Equal(t, "nothing here", r.RedactString("nothing here"))

	r.SetSecrets([]string{"abc123"})
	assert.Equal(t, "got [REDACTED]", r.RedactString("got abc123"))
	assert.Equal(t, "Authorization: Bearer [REDACTED]", r.RedactString("Authorization: Bearer some.jwt.value"))
	assert.Equal(t, "Basic [REDACTED]", r.RedactString("Basic YWxpY2U6cHc="))
}

func TestRedactor_SetSecretsCopies(t *testing.T) {
	r := NewRedactor()
	values := []string{"first"}
	r.SetSecrets(values)
	values[0] = "changed"

	assert.Equal(t, "[REDACTED]", r.RedactString("first"))
}

func TestRedactor_ObserveReload(t *testing.T) {
	r := NewRedactor()

	services, err := secrets.Parse([]byte("svc:\n  apikey: rotated-value\n"))
	assert.NoError(t, err)
	snap := secrets.NewSnapshot(services, "x", testTime(), "d")

	r.ObserveReload(secrets.ReloadEvent{Result: secrets.ResultFailed, Snapshot: snap})
	assert.Equal(t, "rotated-value", r.RedactString("rotated-value"))

	r.ObserveReload(secrets.ReloadEvent{Result: secrets.ResultLoaded, Snapshot: snap})
	assert.Equal(t, "[REDACTED]", r.RedactString("rotated-value"))
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor()
	r.SetSecrets([]string{"s3cr3t"})

	a := r.RedactAttr(slog.Int("status", 200))
	assert.Equal(t, int64(200), a.Value.Int64())

	a = r.RedactAttr(slog.String("token", "anything"))
	assert.Equal(t, "[REDACTED]", a.Value.String())

	a = r.RedactAttr(slog.Group("g", slog.String("inner", "x s3cr3t")))
	assert.Equal(t, "x [REDACTED]", a.Value.Group()[0].Value.String())
}
