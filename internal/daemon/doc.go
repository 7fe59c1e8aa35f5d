// Package daemon coordinates the long-running tagprint process.
//
// It wires configuration, the printer settings, the transport chain, delivery
// history and notifications into a single lifecycle with flock-based locking
// to prevent multiple instances. The HTTP API is the public surface: the
// socket relay used by browser clients, full chain delivery, previews,
// catalog lookups and fallback artifact downloads. A netlink monitor watches
// for USB printers being attached or removed.
//
// Keep orchestration here; transport details live in printer, usblp and
// delivery.
package daemon
