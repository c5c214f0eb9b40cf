// Package database provides connection management for MySQL, PostgreSQL and
// SQLite through Bun, YAML/env configuration, logging, query hooks, SQL error
// classification, a model registry and table bootstrap.
package database
