package printer

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"tagprint/internal/config"
)

// Target identifies a printer socket.
type Target struct {
	Host string
	Port int
}

// Address renders host:port suitable for dialing.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t Target) String() string {
	return t.Address()
}

// Validate reports whether the target can be dialed.
func (t Target) Validate() error {
	if strings.TrimSpace(t.Host) == "" {
		return fmt.Errorf("printer host is required")
	}
	if t.Port <= 0 || t.Port > 65535 {
		return fmt.Errorf("printer port %d out of range", t.Port)
	}
	return nil
}

// Settings is the mutable printer target shared by the HTTP server, CLI and
// MCP server. Updates are last-write-wins.
type Settings struct {
	mu      sync.RWMutex
	target  Target
	timeout time.Duration
}

// NewSettings builds settings with the given target and send deadline.
func NewSettings(target Target, timeout time.Duration) *Settings {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Settings{target: target, timeout: timeout}
}

// SettingsFromConfig seeds settings from the [printer] config section.
func SettingsFromConfig(cfg *config.Config) *Settings {
	return NewSettings(Target{Host: cfg.Printer.Host, Port: cfg.Printer.Port}, cfg.PrinterTimeout())
}

// Target returns the current printer target.
func (s *Settings) Target() Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// Timeout returns the send deadline.
func (s *Settings) Timeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeout
}

// Resolve applies per-request overrides to the current target without
// storing them. Empty host and non-positive port keep the current values.
func (s *Settings) Resolve(host string, port int) Target {
	target := s.Target()
	if host = strings.TrimSpace(host); host != "" {
		target.Host = host
	}
	if port > 0 {
		target.Port = port
	}
	return target
}

// Update stores a new target. Empty host and non-positive port keep the
// current values. The resulting target is returned.
func (s *Settings) Update(host string, port int) (Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.target
	if host = strings.TrimSpace(host); host != "" {
		next.Host = host
	}
	if port != 0 {
		next.Port = port
	}
	if err := next.Validate(); err != nil {
		return s.target, err
	}
	s.target = next
	return next, nil
}
