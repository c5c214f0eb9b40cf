// Package repository provides the generic repository contract over a
// session, its default Bun-backed implementation, the immutable constructor
// table and the per-unit provider that builds and caches repositories by type.
package repository
