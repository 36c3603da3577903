// Package cmd implements the command-line interface for the bKV embedded
// key-value store. It provides a hierarchical command structure with
// operations for working on store files directly.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value store operations (get, set, delete, dump, perf, etc.)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See bkv -help for a list of all commands.
package cmd
