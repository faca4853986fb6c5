/*
Package config provides type-safe configuration extraction from map[string]any.

config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches gracefully by returning default values.
Keys may be dot paths into nested sections:

	cfg, _ := config.FromYAML([]byte(`
	max_concurrency: 4
	http:
	  timeout: 10s
	  rate_limit: 5
	`))

	cfg.Int("max_concurrency", 0)               // 4
	cfg.Duration("http.timeout", 30*time.Second) // 10s
	cfg.Sub("http").Float("rate_limit", 0)      // 5

# Type Coercion

Duration accepts strings ("30s", "1h30m") and numbers interpreted as seconds.
Int accepts whole floats (YAML and JSON decode numbers differently) and
numeric strings, so values from FromEnv work too.

# Settings

LoadSettings turns a Config into the Settings the wfgraph command runs with,
validating log level, log format, concurrency and retry attempts.
*/
package config
