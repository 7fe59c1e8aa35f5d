package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "1.0.0"

// PrintRequest is the body of POST /api/print and POST /api/deliver.
type PrintRequest struct {
	ZPL         string `json:"zpl"`
	PrinterIP   string `json:"printerIP,omitempty"`
	PrinterPort int    `json:"printerPort,omitempty"`
	UnitID      string `json:"unitId,omitempty"`
}

// PrintResponse answers the socket relay.
type PrintResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Printer string `json:"printer,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Outcome is a delivery outcome in transport form.
type Outcome struct {
	JobID      string `json:"jobId"`
	UnitID     string `json:"unitId,omitempty"`
	Kind       string `json:"kind"`
	Transport  string `json:"transport,omitempty"`
	Printer    string `json:"printer,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Artifact   string `json:"artifact,omitempty"`
	Bytes      int    `json:"bytes"`
	StartedAt  string `json:"startedAt,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

// DeliverResponse answers POST /api/deliver and unit print requests.
type DeliverResponse struct {
	Outcome  Outcome `json:"outcome"`
	Status   string  `json:"status"`
	Artifact string  `json:"artifact,omitempty"`
}

// PrinterStatus answers GET /api/printer/status.
type PrinterStatus struct {
	Status  string `json:"status"`
	Printer string `json:"printer"`
	Error   string `json:"error,omitempty"`
}

// PrinterConfigRequest is the body of POST /api/printer/config.
type PrinterConfigRequest struct {
	IP   string `json:"ip,omitempty"`
	Port int    `json:"port,omitempty"`
}

// PrinterConfig is the current network target and deadline in milliseconds.
type PrinterConfig struct {
	IP      string `json:"ip"`
	Port    int    `json:"port"`
	Timeout int64  `json:"timeout"`
}

// PrinterConfigResponse answers POST /api/printer/config.
type PrinterConfigResponse struct {
	Success bool          `json:"success"`
	Config  PrinterConfig `json:"config"`
	Error   string        `json:"error,omitempty"`
}

// USBDevice describes an attached USB printer.
type USBDevice struct {
	Node         string `json:"node"`
	Interface    string `json:"interface"`
	VendorID     string `json:"vendorId,omitempty"`
	ProductID    string `json:"productId,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Product      string `json:"product,omitempty"`
	Serial       string `json:"serial,omitempty"`
}

// DevicesResponse answers GET /api/printer/devices.
type DevicesResponse struct {
	Enabled bool        `json:"enabled"`
	Devices []USBDevice `json:"devices"`
}

// Health answers GET /api/health.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HistoryResponse answers GET /api/history.
type HistoryResponse struct {
	Items []Outcome      `json:"items"`
	Stats map[string]int `json:"stats"`
}

// Unit is one serialized unit with its markup and display form.
type Unit struct {
	SerialNumber string `json:"serialNumber"`
	TagCode      string `json:"tagCode"`
	Display      string `json:"display"`
}

// Production answers GET /api/productions/{number}.
type Production struct {
	ProductionNumber string `json:"productionNumber"`
	Description      string `json:"description"`
	Units            []Unit `json:"units"`
}

// PreviewFallback is returned when a label cannot be rendered.
type PreviewFallback struct {
	Fallback bool   `json:"fallback"`
	Raw      string `json:"raw"`
	Error    string `json:"error,omitempty"`
}

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
