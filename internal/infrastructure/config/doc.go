// Package config handles loading and validating Hearth Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (the API password, broker credentials, tokens) should
//     be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - The API password guards every wire operation and must be set before
//     the server will start
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Hub.Name)
package config
