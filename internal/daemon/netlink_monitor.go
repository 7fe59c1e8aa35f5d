package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"tagprint/internal/config"
	"tagprint/internal/logging"
	"tagprint/internal/notifications"
	"tagprint/internal/usblp"
)

// netlinkMonitor listens for udev netlink events and reports USB printers
// being attached or removed. The device link rediscovers printers on every
// write, so events only feed logs and notifications.
type netlinkMonitor struct {
	logger    *slog.Logger
	notifier  notifications.Service
	deviceDir string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// newNetlinkMonitor returns nil when the device link is disabled.
func newNetlinkMonitor(cfg *config.Config, logger *slog.Logger, notifier notifications.Service) *netlinkMonitor {
	if cfg == nil || !cfg.Printer.DeviceLink {
		return nil
	}
	return &netlinkMonitor{
		logger:    logging.NewComponentLogger(logger, "netlink-monitor"),
		notifier:  notifier,
		deviceDir: cfg.Printer.DeviceDir,
	}
}

// Start begins listening for udev netlink events. Failing to connect is not
// fatal.
func (m *netlinkMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; printer hotplug events unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "attach and detach notifications disabled"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Info("netlink monitor started",
		logging.String(logging.FieldEventType, "netlink_monitor_started"),
	)
	return nil
}

// Stop shuts down the netlink monitor.
func (m *netlinkMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("netlink monitor stopped",
		logging.String(logging.FieldEventType, "netlink_monitor_stopped"),
	)
}

// Running reports whether the netlink monitor is active.
func (m *netlinkMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *netlinkMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, usblp.NodeMatcher())
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "printer hotplug events may be missed"),
			)
		}
	}
}

// handleEvent processes a matched usbmisc uevent.
func (m *netlinkMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	node := m.nodePath(uevent)
	if node == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}

	var (
		event   notifications.Event
		message string
	)
	switch uevent.Action {
	case netlink.ADD:
		event, message = notifications.EventPrinterAttached, "usb printer attached"
	case netlink.REMOVE:
		event, message = notifications.EventPrinterDetached, "usb printer removed"
	default:
		return
	}

	m.logger.Info(message,
		logging.String(logging.FieldEventType, "netlink_"+string(event)),
		logging.String("device", node),
	)
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, notifications.Payload{"device": node}); err != nil {
		m.logger.Debug("hotplug notification failed", logging.Error(err))
	}
}

// nodePath maps DEVNAME (usb/lp0) under the device directory.
func (m *netlinkMonitor) nodePath(uevent netlink.UEvent) string {
	devname := strings.TrimSpace(uevent.Env["DEVNAME"])
	if devname == "" {
		return ""
	}
	if filepath.IsAbs(devname) {
		return devname
	}
	return filepath.Join(m.deviceDir, strings.TrimPrefix(devname, "usb/"))
}
