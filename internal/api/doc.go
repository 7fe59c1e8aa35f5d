// Package api defines wire-format types and converters for the HTTP API and
// a small client used by the CLI and MCP server.
//
// DTOs use camelCase JSON tags to match the browser client that posts to
// /api/print. Timestamps use RFC3339 with milliseconds. Fallback artifacts
// are exposed by file name only; the server resolves them inside its
// fallback directory.
package api
