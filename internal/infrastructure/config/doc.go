// Package config loads and validates the spaces server configuration.
//
// Values come from built-in defaults, then an optional YAML file, then
// environment variables (SPACES_SECTION_KEY, with JWT_SECRET and PORT as
// fallbacks). Secrets such as the JWT signing key and broker passwords should
// be supplied through the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.API.Port)
package config
