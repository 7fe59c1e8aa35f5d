package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tagprint/internal/catalog"
	"tagprint/internal/config"
	"tagprint/internal/delivery"
	"tagprint/internal/history"
	"tagprint/internal/logging"
	"tagprint/internal/notifications"
	"tagprint/internal/preflight"
	"tagprint/internal/printer"
	"tagprint/internal/usblp"
)

// Daemon owns the printing services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *history.Store
	settings *printer.Settings
	client   *printer.Client
	link     *usblp.Link
	device   delivery.DeviceWriter
	strategy *delivery.Strategy
	catalog  *catalog.Source
	notifier notifications.Service
	monitor  *netlinkMonitor
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option customizes daemon wiring.
type Option func(*Daemon)

// WithPrinterClient replaces the socket client.
func WithPrinterClient(c *printer.Client) Option {
	return func(d *Daemon) {
		if c != nil {
			d.client = c
		}
	}
}

// WithDeviceWriter replaces the USB device link in the transport chain.
func WithDeviceWriter(w delivery.DeviceWriter) Option {
	return func(d *Daemon) {
		d.device = w
	}
}

// WithNotifier replaces the ntfy service.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) {
		if n != nil {
			d.notifier = n
		}
	}
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	LockFilePath   string
	HistoryDBPath  string
	CatalogPath    string
	Printer        printer.Target
	Timeout        time.Duration
	Transports     []string
	HotplugRunning bool
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		settings: printer.SettingsFromConfig(cfg),
		client:   printer.NewClient(printer.WithLogger(logger)),
		catalog:  catalog.NewSource(cfg.Paths.CatalogPath),
		notifier: notifications.NewService(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	if cfg.Printer.DeviceLink {
		d.link = usblp.NewLink(cfg, logger)
		d.device = d.link
	}
	for _, opt := range opts {
		opt(d)
	}

	reporters := delivery.Reporters{
		store.Reporter(logger),
		notifications.Reporter(d.notifier, cfg, logger),
	}
	d.strategy = delivery.NewStrategy(delivery.Chain(cfg, d.device, d.client), reporters, logger)
	d.monitor = newNetlinkMonitor(cfg, logger, d.notifier)

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock and brings up the API and hotplug monitor.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tagprint daemon instance is already running")
	}

	for _, check := range preflight.Failed(preflight.Filesystem(d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldErrorHint, "fix directory permissions in the [paths] section"),
			logging.String(logging.FieldImpact, "fallback files may not be written"),
		)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api: %w", err)
	}
	if err := d.monitor.Start(d.ctx); err != nil {
		d.logger.Warn("hotplug monitor unavailable", logging.Error(err))
	}

	d.running.Store(true)
	target := d.settings.Target()
	d.logger.Info("tagprint daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldPrinter, target.Address()),
		logging.Any("transports", d.strategy.Transports()),
	)
	return nil
}

// Stop stops the API server and monitor and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.monitor.Stop()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("tagprint daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the API listen address once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Settings returns the shared printer settings.
func (d *Daemon) Settings() *printer.Settings {
	return d.settings
}

// Client returns the socket client used for relays and probes.
func (d *Daemon) Client() *printer.Client {
	return d.client
}

// Catalog returns the production catalog source.
func (d *Daemon) Catalog() *catalog.Source {
	return d.catalog
}

// Store returns the delivery history.
func (d *Daemon) Store() *history.Store {
	return d.store
}

// Strategy returns the transport chain.
func (d *Daemon) Strategy() *delivery.Strategy {
	return d.strategy
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		LockFilePath:   d.lockPath,
		HistoryDBPath:  d.store.Path(),
		CatalogPath:    d.catalog.Path(),
		Printer:        d.settings.Target(),
		Timeout:        d.settings.Timeout(),
		Transports:     d.strategy.Transports(),
		HotplugRunning: d.monitor.Running(),
	}
}

// Job builds a delivery job against the current target with optional
// per-request overrides.
func (d *Daemon) Job(payload []byte, unitID, host string, port int) delivery.Job {
	return delivery.Job{
		Payload:  payload,
		UnitID:   unitID,
		Target:   d.settings.Resolve(host, port),
		Deadline: d.settings.Timeout(),
	}
}

// Devices lists attached USB printers. It returns nil when the device link
// is disabled.
func (d *Daemon) Devices() ([]usblp.Device, error) {
	if d.link == nil {
		return nil, nil
	}
	return d.link.Devices()
}

// TestNotification sends a test ntfy message.
func (d *Daemon) TestNotification(ctx context.Context) error {
	return d.notifier.Publish(ctx, notifications.EventTestNotification, nil)
}
