// Package config defines the Mailkeep configuration model and its
// loading pipeline: YAML parsing, defaults, MAILKEEP_* environment
// overrides, and validation. It also provides a debounced file watcher
// for live configuration reloads.
package config
