package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"tagprint/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("TAGPRINT_PRINTER_HOST", "")
	t.Setenv("TAGPRINT_PRINTER_PORT", "")
	t.Setenv("NTFY_TOPIC", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantFallback := filepath.Join(tempHome, ".local", "share", "tagprint", "labels")
	if cfg.Paths.FallbackDir != wantFallback {
		t.Fatalf("unexpected fallback dir: got %q want %q", cfg.Paths.FallbackDir, wantFallback)
	}
	if cfg.Paths.APIBind != "127.0.0.1:3000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Printer.Host != "192.168.1.100" || cfg.Printer.Port != 9100 {
		t.Fatalf("unexpected printer target: %s:%d", cfg.Printer.Host, cfg.Printer.Port)
	}
	if cfg.PrinterTimeout() != 5*time.Second {
		t.Fatalf("unexpected printer timeout: %s", cfg.PrinterTimeout())
	}
	if !cfg.Printer.DeviceLink {
		t.Fatal("expected device link enabled by default")
	}
	if cfg.HistoryDBPath() != filepath.Join(tempHome, ".local", "share", "tagprint", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryDBPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.FallbackDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tagprint.toml")

	type payload struct {
		Paths struct {
			FallbackDir string `toml:"fallback_dir"`
		} `toml:"paths"`
		Printer struct {
			Host      string `toml:"host"`
			Port      int    `toml:"port"`
			TimeoutMS int    `toml:"timeout_ms"`
		} `toml:"printer"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.FallbackDir = filepath.Join(tempDir, "labels")
	custom.Printer.Host = "10.0.0.7"
	custom.Printer.Port = 6101
	custom.Printer.TimeoutMS = 750
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TAGPRINT_PRINTER_HOST", "")

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Printer.Host != "10.0.0.7" || cfg.Printer.Port != 6101 {
		t.Fatalf("unexpected printer target: %s:%d", cfg.Printer.Host, cfg.Printer.Port)
	}
	if cfg.PrinterTimeout() != 750*time.Millisecond {
		t.Fatalf("unexpected timeout: %s", cfg.PrinterTimeout())
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized log format, got %q", cfg.Logging.Format)
	}
	if cfg.Paths.FallbackDir != filepath.Join(tempDir, "labels") {
		t.Fatalf("unexpected fallback dir: %q", cfg.Paths.FallbackDir)
	}
}

func TestLoadHonoursPrinterEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TAGPRINT_PRINTER_HOST", "zebra.local")
	t.Setenv("TAGPRINT_PRINTER_PORT", "9200")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Printer.Host != "zebra.local" || cfg.Printer.Port != 9200 {
		t.Fatalf("expected env printer target, got %s:%d", cfg.Printer.Host, cfg.Printer.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"port", func(c *config.Config) { c.Printer.Port = 70000 }, "printer.port"},
		{"host", func(c *config.Config) { c.Printer.Host = "" }, "printer.host"},
		{"bind", func(c *config.Config) { c.Paths.APIBind = "nope" }, "paths.api_bind"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"ntfy", func(c *config.Config) { c.Notifications.NtfyTopic = "topic" }, "ntfy_topic"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TAGPRINT_PRINTER_HOST", "")
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Printer.Port != 9100 {
		t.Fatalf("unexpected sample port: %d", cfg.Printer.Port)
	}
}
