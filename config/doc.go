// Package config loads and validates orchestrator configuration.
//
// Configuration comes from a YAML file (flowkit.yml), an optional .env
// file, and FLOWKIT_* environment variables, in increasing precedence:
//
//	var cfg config.Config
//	if err := config.Load(&cfg); err != nil { ... }
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil { ... }
//
// Environment overrides use underscore-separated paths, e.g.
// FLOWKIT_EXECUTOR_MAX_PARALLELISM or FLOWKIT_MONITOR_MAX_LAG.
package config
