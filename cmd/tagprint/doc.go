// Command tagprint prints serialized unit labels and manages the tagprint
// daemon.
//
// Local commands (print, probe, preview, history, production, mcp) build the
// same transport chain the daemon uses, so they work without a running
// daemon. The --api flag sends print and status requests to a daemon instead.
package main
