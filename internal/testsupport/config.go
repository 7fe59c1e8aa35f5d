package testsupport

import (
	"path/filepath"
	"testing"

	"tagprint/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The device link points at an empty fake sysfs tree, so no real hardware is
// touched unless a test adds a printer with WriteUSBPrinter.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.FallbackDir = filepath.Join(base, "labels")
	cfgVal.Paths.CatalogPath = filepath.Join(base, "data.json")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Paths.APIToken = ""
	cfgVal.Printer.SysfsRoot = filepath.Join(base, "sys", "bus", "usb", "devices")
	cfgVal.Printer.DeviceDir = filepath.Join(base, "dev", "usb")
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithPrinter overrides the network printer target.
func WithPrinter(host string, port int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Printer.Host = host
		b.cfg.Printer.Port = port
	}
}

// WithTimeout overrides the printer deadline in milliseconds.
func WithTimeout(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Printer.TimeoutMS = ms
	}
}

// WithoutDeviceLink disables the USB device link.
func WithoutDeviceLink() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Printer.DeviceLink = false
	}
}

// WithAPIToken enables bearer token auth on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithNtfyTopic points notifications at the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
