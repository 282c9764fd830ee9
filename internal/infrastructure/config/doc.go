// Package config handles loading and validating auth service configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (AUTHSVC_* prefix)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Secrets and key material (refresh secret, RSA private key, broker
//     passwords) should be set via environment variables, not the file
//   - The config file should have restricted permissions (0600)
//   - The refresh secret must be at least 32 characters
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
