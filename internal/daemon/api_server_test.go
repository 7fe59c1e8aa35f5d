package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"tagprint/internal/api"
	"tagprint/internal/config"
	"tagprint/internal/delivery"
	"tagprint/internal/logging"
	"tagprint/internal/printer"
	"tagprint/internal/testsupport"
	"tagprint/internal/zpl"
)

const testLabel = "^XA^FO50,50^ADN,36,20^FDTest Label^FS^XZ"

type hangingDialer struct{ release chan struct{} }

func (d hangingDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	<-d.release
	return nil, errors.New("released")
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) (*Daemon, *httptest.Server) {
	t.Helper()
	store := testsupport.MustOpenHistory(t, cfg)
	d, err := New(cfg, store, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(d.api.routes())
	t.Cleanup(ts.Close)
	return d, ts
}

// fakePrinter accepts one connection and returns everything written to it.
func fakePrinter(t *testing.T) (string, int, <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()
	host, portText, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portText)
	return host, port, received
}

// closedPort returns a local port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	_, ts := newTestServer(t, cfg)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var health api.Health
	decode(t, resp, &health)
	if health.Status != "healthy" || health.Version != api.ServiceVersion {
		t.Fatalf("unexpected health payload: %+v", health)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	_, ts := newTestServer(t, cfg)

	resp, err := http.Get(ts.URL + "/api/printer/config")
	if err != nil {
		t.Fatalf("GET config: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/printer/config", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET config with token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestPrintRequiresZPL(t *testing.T) {
	_, ts := newTestServer(t, testsupport.NewConfig(t))

	resp := postJSON(t, ts.URL+"/api/print", api.PrintRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body api.ErrorResponse
	decode(t, resp, &body)
	if body.Success || body.Error != "ZPL content is required" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestPrintRelaysToPrinter(t *testing.T) {
	host, port, received := fakePrinter(t)
	d, ts := newTestServer(t, testsupport.NewConfig(t, testsupport.WithoutDeviceLink()))

	resp := postJSON(t, ts.URL+"/api/print", api.PrintRequest{ZPL: testLabel, PrinterIP: host, PrinterPort: port})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body api.PrintResponse
	decode(t, resp, &body)
	if !body.Success || body.Message != "Print job sent successfully" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Printer != net.JoinHostPort(host, strconv.Itoa(port)) {
		t.Fatalf("unexpected printer %q", body.Printer)
	}

	select {
	case data := <-received:
		if string(data) != testLabel {
			t.Fatalf("printer received %q", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("printer never received payload")
	}

	if got := d.settings.Target(); got.Host == host && got.Port == port {
		t.Fatal("per-request override must not change the stored target")
	}
}

func TestPrintRefusedReturnsServerError(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutDeviceLink(), testsupport.WithPrinter("127.0.0.1", closedPort(t)))
	_, ts := newTestServer(t, cfg)

	resp := postJSON(t, ts.URL+"/api/print", api.PrintRequest{ZPL: testLabel})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var body api.PrintResponse
	decode(t, resp, &body)
	if body.Success || !strings.HasPrefix(body.Error, "Connection error") {
		t.Fatalf("unexpected body: %+v", body)
	}

	entries, err := os.ReadDir(cfg.Paths.FallbackDir)
	if err != nil {
		t.Fatalf("read fallback dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("relay must not fall back to a file, found %d entries", len(entries))
	}
}

func TestPrintTimeoutReturnsGatewayTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	client := printer.NewClient(printer.WithDialer(hangingDialer{release: release}))
	cfg := testsupport.NewConfig(t, testsupport.WithoutDeviceLink(), testsupport.WithTimeout(200))
	_, ts := newTestServer(t, cfg, WithPrinterClient(client))

	resp := postJSON(t, ts.URL+"/api/print", api.PrintRequest{ZPL: testLabel})
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", resp.StatusCode)
	}
	var body api.PrintResponse
	decode(t, resp, &body)
	if body.Success || body.Error != "Connection timeout" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestDeliverFallsBackToDownloadableArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutDeviceLink(), testsupport.WithPrinter("127.0.0.1", closedPort(t)))
	_, ts := newTestServer(t, cfg)

	resp := postJSON(t, ts.URL+"/api/deliver", api.PrintRequest{ZPL: testLabel, UnitID: "SN-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body api.DeliverResponse
	decode(t, resp, &body)
	if body.Outcome.Kind != string(delivery.KindFellBack) {
		t.Fatalf("expected fallback outcome, got %+v", body.Outcome)
	}
	if body.Status != "ZPL file downloaded for: SN-1" {
		t.Fatalf("unexpected status %q", body.Status)
	}
	if !delivery.IsArtifactName(body.Artifact) {
		t.Fatalf("unexpected artifact name %q", body.Artifact)
	}

	artifact, err := http.Get(ts.URL + "/api/artifacts/" + body.Artifact)
	if err != nil {
		t.Fatalf("GET artifact: %v", err)
	}
	defer artifact.Body.Close()
	if artifact.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for artifact, got %d", artifact.StatusCode)
	}
	if cd := artifact.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("expected attachment disposition, got %q", cd)
	}
	data, _ := io.ReadAll(artifact.Body)
	if string(data) != testLabel {
		t.Fatalf("artifact content mismatch: %q", data)
	}

	history, err := http.Get(ts.URL + "/api/history?limit=5")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	defer history.Body.Close()
	var hist api.HistoryResponse
	decode(t, history, &hist)
	if len(hist.Items) != 1 || hist.Items[0].JobID != body.Outcome.JobID {
		t.Fatalf("expected delivery in history, got %+v", hist.Items)
	}
	if hist.Stats[string(delivery.KindFellBack)] != 1 {
		t.Fatalf("unexpected stats %+v", hist.Stats)
	}
}

func TestArtifactRejectsUnknownNames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, ts := newTestServer(t, cfg)
	if err := os.WriteFile(filepath.Join(cfg.Paths.FallbackDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	for _, name := range []string{"notes.txt", "tagcode_missing_1.zpl", "..%2Fdata.json"} {
		resp, err := http.Get(ts.URL + "/api/artifacts/" + name)
		if err != nil {
			t.Fatalf("GET %s: %v", name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", name, resp.StatusCode)
		}
	}
}

func TestPrinterConfigUpdate(t *testing.T) {
	d, ts := newTestServer(t, testsupport.NewConfig(t))

	resp := postJSON(t, ts.URL+"/api/printer/config", api.PrinterConfigRequest{IP: "10.0.0.9", Port: 6101})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body api.PrinterConfigResponse
	decode(t, resp, &body)
	if !body.Success || body.Config.IP != "10.0.0.9" || body.Config.Port != 6101 || body.Config.Timeout != 5000 {
		t.Fatalf("unexpected config: %+v", body)
	}
	if got := d.settings.Target(); got.Host != "10.0.0.9" || got.Port != 6101 {
		t.Fatalf("settings not updated: %+v", got)
	}

	bad := postJSON(t, ts.URL+"/api/printer/config", api.PrinterConfigRequest{Port: 70000})
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid port, got %d", bad.StatusCode)
	}
	if got := d.settings.Target(); got.Port != 6101 {
		t.Fatalf("invalid update must keep previous target, got %+v", got)
	}
}

func TestPrinterStatusOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPrinter("127.0.0.1", closedPort(t)))
	_, ts := newTestServer(t, cfg)

	resp, err := http.Get(ts.URL + "/api/printer/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	var body api.PrinterStatus
	decode(t, resp, &body)
	if body.Status != "offline" || body.Error == "" {
		t.Fatalf("expected offline status, got %+v", body)
	}
}

func TestPrinterStatusOnline(t *testing.T) {
	host, port, received := fakePrinter(t)
	_, ts := newTestServer(t, testsupport.NewConfig(t, testsupport.WithPrinter(host, port)))

	resp, err := http.Get(ts.URL + "/api/printer/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	var body api.PrinterStatus
	decode(t, resp, &body)
	if body.Status != "online" {
		t.Fatalf("expected online status, got %+v", body)
	}
	if data := <-received; string(data) != zpl.Probe {
		t.Fatalf("expected probe command, got %q", data)
	}
}

func TestDevicesListsUSBPrinters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteUSBPrinter(t, cfg, testsupport.ZebraPrinter())
	_, ts := newTestServer(t, cfg)

	resp, err := http.Get(ts.URL + "/api/printer/devices")
	if err != nil {
		t.Fatalf("GET devices: %v", err)
	}
	defer resp.Body.Close()
	var body api.DevicesResponse
	decode(t, resp, &body)
	if !body.Enabled || len(body.Devices) != 1 {
		t.Fatalf("expected one device, got %+v", body)
	}
	if body.Devices[0].VendorID != "0a5f" {
		t.Fatalf("unexpected device %+v", body.Devices[0])
	}
}

func TestPreviewFormats(t *testing.T) {
	_, ts := newTestServer(t, testsupport.NewConfig(t))

	resp, err := http.Post(ts.URL+"/api/preview?format=svg", "text/plain", strings.NewReader(testLabel))
	if err != nil {
		t.Fatalf("POST preview: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Fatalf("unexpected content type %q", ct)
	}
	svg, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(svg), "Test Label") {
		t.Fatalf("expected label text in svg, got %s", svg)
	}

	bad, err := http.Post(ts.URL+"/api/preview?format=pdf", "text/plain", strings.NewReader(testLabel))
	if err != nil {
		t.Fatalf("POST preview: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", bad.StatusCode)
	}
}

func TestPreviewFallsBackToRawText(t *testing.T) {
	_, ts := newTestServer(t, testsupport.NewConfig(t))

	label := "^XA^FO0,0^FDx^FS^GB9000,10,1^XZ"
	resp, err := http.Post(ts.URL+"/api/preview?format=png", "text/plain", strings.NewReader(label))
	if err != nil {
		t.Fatalf("POST preview: %v", err)
	}
	defer resp.Body.Close()
	var body api.PreviewFallback
	decode(t, resp, &body)
	if !body.Fallback || !strings.Contains(body.Raw, "\n^GB9000,10,1") {
		t.Fatalf("expected raw fallback, got %+v", body)
	}
}

func TestProductionLookupAndUnitPrint(t *testing.T) {
	host, port, received := fakePrinter(t)
	cfg := testsupport.NewConfig(t, testsupport.WithoutDeviceLink(), testsupport.WithPrinter(host, port))
	testsupport.WriteCatalog(t, cfg, `{"productions":[{"productionNumber":"PN-100","description":"Pumps",`+
		`"serialNumbers":[{"serialNumber":"SN-7","tagCode":"^XA^FO1,1^FDSN-7^FS^XZ"}]}]}`)
	_, ts := newTestServer(t, cfg)

	resp, err := http.Get(ts.URL + "/api/productions/pn-100")
	if err != nil {
		t.Fatalf("GET production: %v", err)
	}
	defer resp.Body.Close()
	var production api.Production
	decode(t, resp, &production)
	if production.ProductionNumber != "PN-100" || len(production.Units) != 1 {
		t.Fatalf("unexpected production: %+v", production)
	}
	if production.Units[0].Display != "^XA\n\n^FO1,1\n^FDSN-7\n^FS\n^XZ" {
		t.Fatalf("unexpected display text %q", production.Units[0].Display)
	}

	printResp := postJSON(t, ts.URL+"/api/productions/PN-100/units/SN-7/print", nil)
	var body api.DeliverResponse
	decode(t, printResp, &body)
	if body.Status != "Tag code printed successfully for: SN-7" {
		t.Fatalf("unexpected status %q (%+v)", body.Status, body.Outcome)
	}
	if data := <-received; string(data) != "^XA^FO1,1^FDSN-7^FS^XZ" {
		t.Fatalf("printer received %q", data)
	}

	missing, err := http.Get(ts.URL + "/api/productions/PN-404")
	if err != nil {
		t.Fatalf("GET missing production: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}

	unit := postJSON(t, ts.URL+"/api/productions/PN-100/units/SN-404/print", nil)
	if unit.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown unit, got %d", unit.StatusCode)
	}
}

func TestProductionCatalogUnavailable(t *testing.T) {
	_, ts := newTestServer(t, testsupport.NewConfig(t))

	resp, err := http.Get(ts.URL + "/api/productions/PN-100")
	if err != nil {
		t.Fatalf("GET production: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestServer(t, testsupport.NewConfig(t, testsupport.WithAPIToken("secret")))

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/print", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header")
	}
}
