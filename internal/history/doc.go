// Package history persists delivery outcomes in SQLite so operators can see
// what was printed, where, and what fell back to a file.
//
// The store mirrors the queue database style: WAL journal, embedded
// migrations tracked in schema_migrations, and RFC3339 timestamps.
package history
