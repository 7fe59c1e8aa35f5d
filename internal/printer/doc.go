// Package printer delivers raw label payloads to a networked label printer
// over a plain TCP socket (the JetDirect style port 9100 protocol).
//
// Client.Send arms a single deadline covering both dial and write and
// settles exactly once: the connection is released on every exit path and a
// hung dial or write is preempted by the timer. Settings holds the
// process-wide printer target behind a lock; callers pass it explicitly.
package printer
