package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"tagprint/internal/api"
	"tagprint/internal/catalog"
	"tagprint/internal/config"
	"tagprint/internal/delivery"
	"tagprint/internal/logging"
	"tagprint/internal/printer"
	"tagprint/internal/scene"
)

// maxLabelBytes bounds request bodies carrying label markup.
const maxLabelBytes = 4 << 20

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, errors.New("api server requires config and daemon")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address is required")
	}

	srv := &apiServer{
		bind:   bind,
		token:  cfg.Paths.APIToken,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	protect := func(h http.HandlerFunc) http.HandlerFunc { return authMiddleware(s.token, h) }

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/print", protect(s.handlePrint))
	mux.HandleFunc("POST /api/deliver", protect(s.handleDeliver))
	mux.HandleFunc("GET /api/printer/status", protect(s.handlePrinterStatus))
	mux.HandleFunc("GET /api/printer/config", protect(s.handleGetPrinterConfig))
	mux.HandleFunc("POST /api/printer/config", protect(s.handleSetPrinterConfig))
	mux.HandleFunc("GET /api/printer/devices", protect(s.handleDevices))
	mux.HandleFunc("POST /api/preview", protect(s.handlePreview))
	mux.HandleFunc("GET /api/artifacts/{name}", protect(s.handleArtifact))
	mux.HandleFunc("GET /api/history", protect(s.handleHistory))
	mux.HandleFunc("GET /api/productions/{number}", protect(s.handleProduction))
	mux.HandleFunc("POST /api/productions/{number}/units/{serial}/print", protect(s.handlePrintUnit))
	return corsMiddleware(mux)
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.NewHealth(time.Now()))
}

// handlePrint relays markup straight to the network printer. It never falls
// through to the device or file steps.
func (s *apiServer) handlePrint(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePrintRequest(w, r)
	if !ok {
		return
	}
	job := s.daemon.Job([]byte(req.ZPL), req.UnitID, req.PrinterIP, req.PrinterPort)
	outcome, err := s.daemon.strategy.Direct(r.Context(), job, delivery.TransportSocket)
	if err != nil {
		status := http.StatusInternalServerError
		message := "Connection error: " + err.Error()
		if errors.Is(err, printer.ErrTimedOut) {
			status = http.StatusGatewayTimeout
			message = "Connection timeout"
		}
		s.writeJSON(w, status, api.PrintResponse{Success: false, Printer: job.Target.Address(), Error: message})
		return
	}
	s.writeJSON(w, http.StatusOK, api.PrintResponse{
		Success: true,
		Message: "Print job sent successfully",
		Printer: outcome.Printer,
	})
}

func (s *apiServer) handleDeliver(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePrintRequest(w, r)
	if !ok {
		return
	}
	job := s.daemon.Job([]byte(req.ZPL), req.UnitID, req.PrinterIP, req.PrinterPort)
	outcome := s.daemon.strategy.Deliver(r.Context(), job)
	s.writeJSON(w, http.StatusOK, api.NewDeliverResponse(outcome))
}

func (s *apiServer) decodePrintRequest(w http.ResponseWriter, r *http.Request) (api.PrintRequest, bool) {
	var req api.PrintRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxLabelBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if strings.TrimSpace(req.ZPL) == "" {
		s.writeError(w, http.StatusBadRequest, "ZPL content is required")
		return req, false
	}
	return req, true
}

func (s *apiServer) handlePrinterStatus(w http.ResponseWriter, r *http.Request) {
	target := s.daemon.settings.Target()
	payload := api.PrinterStatus{Status: "online", Printer: target.Address()}
	if err := s.daemon.client.Probe(r.Context(), target, s.daemon.settings.Timeout()); err != nil {
		payload.Status = "offline"
		payload.Error = err.Error()
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleGetPrinterConfig(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.PrinterConfigResponse{Success: true, Config: api.FromSettings(s.daemon.settings)})
}

func (s *apiServer) handleSetPrinterConfig(w http.ResponseWriter, r *http.Request) {
	var req api.PrinterConfigRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	target, err := s.daemon.settings.Update(req.IP, req.Port)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, api.PrinterConfigResponse{
			Success: false,
			Config:  api.FromSettings(s.daemon.settings),
			Error:   err.Error(),
		})
		return
	}
	s.log().Info("printer target updated", logging.String(logging.FieldPrinter, target.Address()))
	s.writeJSON(w, http.StatusOK, api.PrinterConfigResponse{Success: true, Config: api.FromSettings(s.daemon.settings)})
}

func (s *apiServer) handleDevices(w http.ResponseWriter, _ *http.Request) {
	devices, err := s.daemon.Devices()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.DevicesResponse{
		Enabled: s.daemon.link != nil,
		Devices: api.FromDevices(devices),
	})
}

func (s *apiServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	format, err := scene.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLabelBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "label too large")
		return
	}

	result := scene.Preview(string(body), format)
	if result.Fallback {
		s.log().Debug("preview fell back to raw text", logging.Error(result.Err))
		payload := api.PreviewFallback{Fallback: true, Raw: result.Raw}
		if result.Err != nil {
			payload.Error = result.Err.Error()
		}
		s.writeJSON(w, http.StatusOK, payload)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Body)
}

func (s *apiServer) handleArtifact(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !delivery.IsArtifactName(name) {
		s.writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	f, err := os.Open(filepath.Join(s.daemon.cfg.Paths.FallbackDir, name))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	var (
		items []delivery.Outcome
		err   error
	)
	if unit := strings.TrimSpace(r.URL.Query().Get("unit")); unit != "" {
		items, err = s.daemon.store.ForUnit(r.Context(), unit)
	} else {
		items, err = s.daemon.store.Recent(r.Context(), limit)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats, err := s.daemon.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{Items: api.FromOutcomes(items), Stats: api.FromStats(stats)})
}

func (s *apiServer) handleProduction(w http.ResponseWriter, r *http.Request) {
	production, ok := s.findProduction(w, r.PathValue("number"))
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromProduction(production))
}

func (s *apiServer) handlePrintUnit(w http.ResponseWriter, r *http.Request) {
	production, ok := s.findProduction(w, r.PathValue("number"))
	if !ok {
		return
	}
	unit, err := production.Unit(r.PathValue("serial"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	job := s.daemon.Job([]byte(unit.TagCode), unit.SerialNumber, "", 0)
	outcome := s.daemon.strategy.Deliver(r.Context(), job)
	s.writeJSON(w, http.StatusOK, api.NewDeliverResponse(outcome))
}

func (s *apiServer) findProduction(w http.ResponseWriter, number string) (catalog.Production, bool) {
	production, err := s.daemon.catalog.Find(number)
	switch {
	case err == nil:
		return production, true
	case errors.Is(err, catalog.ErrProductionNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log().Warn("catalog unavailable",
			logging.String("path", s.daemon.catalog.Path()),
			logging.Error(err),
			logging.String(logging.FieldEventType, "catalog_unavailable"),
			logging.String(logging.FieldErrorHint, "check paths.catalog_path"),
		)
		s.writeError(w, http.StatusServiceUnavailable, "production catalog unavailable")
	}
	return catalog.Production{}, false
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Success: false, Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}
