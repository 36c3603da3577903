// Package util provides utility components for
// storage engines that satisfy the db.Store interface.
//
// The package contains:
//   - statistics: Utility tools for analyzing store characteristics and a SizeHistogram for tracking value size distribution
//   - functions: Hash functions, seed generation and byte-copy helpers
//
// This package is particularly useful for:
//   - Engine developers implementing the db.Store interface
//   - Monitoring code that needs to estimate store size and shard distribution
//
// Each component is designed to work with any implementation of the db.Store
// interface, allowing for consistent measurement across different storage
// backends.
package util
