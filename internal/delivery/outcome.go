package delivery

import (
	"errors"
	"time"

	"tagprint/internal/printer"
)

// Kind is the terminal state of a delivery.
type Kind string

const (
	KindDelivered      Kind = "delivered"
	KindTimedOut       Kind = "timed_out"
	KindTransportError Kind = "transport_error"
	KindFellBack       Kind = "fell_back_to_file"
	KindFailed         Kind = "failed"
)

// Transport names.
const (
	TransportDevice = "device"
	TransportSocket = "socket"
	TransportFile   = "file"
)

// Outcome is one terminal delivery result.
type Outcome struct {
	JobID     string        `json:"job_id"`
	UnitID    string        `json:"unit_id,omitempty"`
	Kind      Kind          `json:"kind"`
	Transport string        `json:"transport,omitempty"`
	Printer   string        `json:"printer,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Path      string        `json:"path,omitempty"`
	Bytes     int           `json:"bytes"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Succeeded reports whether the payload reached a printer or a file.
func (o Outcome) Succeeded() bool {
	return o.Kind == KindDelivered || o.Kind == KindFellBack
}

// StatusMessage is the single line shown to the operator.
func (o Outcome) StatusMessage() string {
	unit := o.UnitID
	if unit == "" {
		unit = "label"
	}
	switch o.Kind {
	case KindDelivered:
		return "Tag code printed successfully for: " + unit
	case KindFellBack:
		return "ZPL file downloaded for: " + unit
	default:
		reason := o.Reason
		if reason == "" {
			reason = "unknown error"
		}
		return "Print failed completely: " + reason
	}
}

// PendingMessage is shown while a delivery is in flight.
func PendingMessage(unitID string) string {
	if unitID == "" {
		unitID = "label"
	}
	return "Printing tag code for: " + unitID
}

// kindForError classifies a single transport failure.
func kindForError(err error) Kind {
	if errors.Is(err, printer.ErrTimedOut) {
		return KindTimedOut
	}
	return KindTransportError
}
