// Package delivery gets a label payload to a printer using whichever
// transport works first.
//
// A Strategy runs an ordered chain of Attempt steps (USB device link,
// network socket, fallback file) strictly one after another and stops at the
// first success. Step failures are logged and turned into "try the next
// one"; the reporter sees exactly one terminal Outcome per call.
package delivery
