// Package logging provides structured logging for the spaces server.
//
// It wraps log/slog with JSON or text output, level filtering and default
// service/version fields on every entry. Configure it from the logging
// section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log passwords, password hashes or bearer tokens.
package logging
