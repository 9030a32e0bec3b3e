// Package config handles loading and parsing of configuration from YAML files
// and STRINGSEARCH_* environment variables. It defines the server, request,
// dataset, search, TLS, logging and metrics settings and validates them.
package config
