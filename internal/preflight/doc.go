// Package preflight provides readiness checks for the printers, paths and
// services tagprint depends on.
//
// These checks run in two contexts:
//   - The daemon runs the filesystem checks at startup and logs failures.
//   - The CLI "tagprint doctor" command runs everything and renders the
//     results.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
