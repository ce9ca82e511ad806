// Package config provides configuration management for vaultgate.
//
// Configuration comes from an optional YAML file, environment variable
// overrides and built-in defaults, and is validated as a whole.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("vaultgate.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("vaultgate.yaml")
//
// An empty path loads the defaults, so a deployment can be configured purely
// through the environment.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention VAULTGATE_SECTION_FIELD:
//
//   - VAULTGATE_PROXY_LISTEN_ADDRESS overrides proxy.listen_address
//   - VAULTGATE_SECRETS_FILE_PATH overrides secrets.file_path
//   - VAULTGATE_UPSTREAM_INSECURE_SKIP_VERIFY overrides upstream.insecure_skip_verify
//
// TIMEOUT=true (split upstream timeouts) and LOG_LEVEL are accepted for
// older deployments.
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Legacy environment variables
//  4. VAULTGATE_ environment variables
//  5. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
//	if err := config.Initialize(path); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// Tests should pass explicit *Config values instead.
package config
