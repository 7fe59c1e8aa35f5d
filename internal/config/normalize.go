package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizePrinter(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.FallbackDir) == "" {
		c.Paths.FallbackDir = defaultFallbackDir
	}
	if c.Paths.FallbackDir, err = expandPath(c.Paths.FallbackDir); err != nil {
		return fmt.Errorf("paths.fallback_dir: %w", err)
	}
	if c.Paths.CatalogPath, err = expandPath(strings.TrimSpace(c.Paths.CatalogPath)); err != nil {
		return fmt.Errorf("paths.catalog_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("TAGPRINT_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizePrinter() error {
	if value, ok := os.LookupEnv("TAGPRINT_PRINTER_HOST"); ok && strings.TrimSpace(value) != "" {
		c.Printer.Host = value
	}
	if value, ok := os.LookupEnv("TAGPRINT_PRINTER_PORT"); ok && strings.TrimSpace(value) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("TAGPRINT_PRINTER_PORT: %w", err)
		}
		c.Printer.Port = port
	}
	c.Printer.Host = strings.TrimSpace(c.Printer.Host)
	if c.Printer.Port == 0 {
		c.Printer.Port = defaultPrinterPort
	}
	if c.Printer.TimeoutMS <= 0 {
		c.Printer.TimeoutMS = defaultPrinterTimeoutMS
	}
	c.Printer.SysfsRoot = strings.TrimSpace(c.Printer.SysfsRoot)
	if c.Printer.SysfsRoot == "" {
		c.Printer.SysfsRoot = defaultSysfsRoot
	}
	c.Printer.DeviceDir = strings.TrimSpace(c.Printer.DeviceDir)
	if c.Printer.DeviceDir == "" {
		c.Printer.DeviceDir = defaultDeviceDir
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
