package preflight

import (
	"context"
	"time"

	"tagprint/internal/config"
	"tagprint/internal/printer"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Prober is satisfied by *printer.Client.
type Prober interface {
	Probe(ctx context.Context, target printer.Target, deadline time.Duration) error
}

// Filesystem checks the directories deliveries write into.
func Filesystem(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Fallback directory", cfg.Paths.FallbackDir),
	}
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, prober Prober) []Result {
	if cfg == nil {
		return nil
	}

	results := Filesystem(cfg)
	results = append(results, CheckCatalog(cfg.Paths.CatalogPath))

	if prober != nil {
		target := printer.Target{Host: cfg.Printer.Host, Port: cfg.Printer.Port}
		results = append(results, CheckPrinter(ctx, prober, target, cfg.PrinterTimeout()))
	}
	if cfg.Printer.DeviceLink {
		results = append(results, CheckUSB(cfg.Printer.SysfsRoot, cfg.Printer.DeviceDir))
	}
	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
