// Package config loads qrisk configuration from local and global YAML files.
// Precedence is CLI flags, then the repo-local file, then the global file;
// the CLI maps the merged values into engine options.
package config
