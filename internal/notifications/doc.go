// Package notifications pushes delivery events to ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when no topic is set. Reporter adapts
// the service to delivery outcomes, honouring the per-kind toggles so a busy
// line only pages someone when labels fall back or fail.
package notifications
