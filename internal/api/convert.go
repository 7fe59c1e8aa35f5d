package api

import (
	"path/filepath"
	"time"

	"tagprint/internal/catalog"
	"tagprint/internal/delivery"
	"tagprint/internal/printer"
	"tagprint/internal/usblp"
	"tagprint/internal/zpl"
)

// FromOutcome converts a delivery outcome. The artifact path is reduced to
// its file name.
func FromOutcome(o delivery.Outcome) Outcome {
	out := Outcome{
		JobID:      o.JobID,
		UnitID:     o.UnitID,
		Kind:       string(o.Kind),
		Transport:  o.Transport,
		Printer:    o.Printer,
		Reason:     o.Reason,
		Bytes:      o.Bytes,
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Path != "" {
		out.Artifact = filepath.Base(o.Path)
	}
	if !o.StartedAt.IsZero() {
		out.StartedAt = o.StartedAt.UTC().Format(dateTimeFormat)
	}
	return out
}

// FromOutcomes converts a slice, keeping nil as an empty list.
func FromOutcomes(outcomes []delivery.Outcome) []Outcome {
	out := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, FromOutcome(o))
	}
	return out
}

// NewDeliverResponse wraps an outcome with its status line.
func NewDeliverResponse(o delivery.Outcome) DeliverResponse {
	dto := FromOutcome(o)
	return DeliverResponse{Outcome: dto, Status: o.StatusMessage(), Artifact: dto.Artifact}
}

// FromStats converts history counts keyed by kind.
func FromStats(stats map[delivery.Kind]int) map[string]int {
	out := make(map[string]int, len(stats))
	for kind, count := range stats {
		out[string(kind)] = count
	}
	return out
}

// FromSettings converts the current printer settings.
func FromSettings(s *printer.Settings) PrinterConfig {
	target := s.Target()
	return PrinterConfig{IP: target.Host, Port: target.Port, Timeout: s.Timeout().Milliseconds()}
}

// FromDevices converts discovered USB printers.
func FromDevices(devices []usblp.Device) []USBDevice {
	out := make([]USBDevice, 0, len(devices))
	for _, d := range devices {
		out = append(out, USBDevice{
			Node:         d.Node,
			Interface:    d.Interface,
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
			Serial:       d.Serial,
		})
	}
	return out
}

// FromProduction converts a catalog production.
func FromProduction(p catalog.Production) Production {
	units := make([]Unit, 0, len(p.SerialNumbers))
	for _, u := range p.SerialNumbers {
		units = append(units, Unit{
			SerialNumber: u.SerialNumber,
			TagCode:      u.TagCode,
			Display:      zpl.FormatForDisplay(u.TagCode),
		})
	}
	return Production{
		ProductionNumber: p.ProductionNumber,
		Description:      p.Description,
		Units:            units,
	}
}

// NewHealth builds the health payload at now.
func NewHealth(now time.Time) Health {
	return Health{Status: "healthy", Timestamp: now.UTC().Format(dateTimeFormat), Version: ServiceVersion}
}
