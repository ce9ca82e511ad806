// Vaultgate is a secret-injecting HTTP reverse proxy.
//
// Clients send requests to /api-proxy/ with the target in the url query
// parameter and the owning service in the service parameter. Header values
// may reference secrets by key (secret://apikey); vaultgate resolves them
// from the service's table in the secrets file and forwards the request, so
// callers never hold the credentials themselves.
//
// Usage:
//
//	# Start server with default configuration
//	vaultgate run
//
//	# Start with custom configuration and secrets files
//	vaultgate run --config /etc/vaultgate/vaultgate.yaml --secrets /run/secrets/config_secret.yml
//
//	# Validate configuration and secrets file
//	vaultgate validate
//
//	# Check which secret references a header would resolve
//	vaultgate resolve --service crm --header "X-Api-Key: secret://apikey"
//
//	# Query the audit trail
//	vaultgate audit query --service crm --since 24h
//
//	# Show version information
//	vaultgate version
package main

func main() {
	Execute()
}
