// Package config handles loading and validating the Gray Logic dialogue configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields and cross-section dependencies
//
// Security Considerations:
//   - The Home Assistant token and MQTT password should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Inventory.Source)
package config
