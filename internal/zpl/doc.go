// Package zpl interprets the small practical subset of the ZPL label language
// needed for previews: field origins (^FO), field data (^FD ... ^FS), the ^ADN
// font scale/weight hint, and graphic boxes (^GB).
//
// Parsing is best effort. Lines that do not match are skipped silently so an
// unreadable label can still be shown raw and sent to a printer unchanged.
// Device dots are converted to preview pixels with a fixed scale of two.
package zpl
