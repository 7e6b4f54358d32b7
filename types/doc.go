// Package types contains the core records, enums, errors, and dependency
// interfaces shared across the review library.
//
// Keeping these in a leaf package allows internal packages to depend on them
// without importing the root package, avoiding import cycles. The root
// package re-exports the public subset via type aliases.
package types
