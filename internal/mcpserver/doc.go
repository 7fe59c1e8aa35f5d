// Package mcpserver exposes label preview, printing and printer status as
// Model Context Protocol tools over stdio.
package mcpserver
