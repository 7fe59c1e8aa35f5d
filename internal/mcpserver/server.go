package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tagprint/internal/api"
	"tagprint/internal/catalog"
	"tagprint/internal/delivery"
	"tagprint/internal/logging"
	"tagprint/internal/printer"
	"tagprint/internal/scene"
)

const serverName = "tagprint"

// Backend carries the services the tools call into.
type Backend struct {
	Settings *printer.Settings
	Client   *printer.Client
	Strategy *delivery.Strategy
	Catalog  *catalog.Source
}

// Server is a stdio MCP tool server.
type Server struct {
	backend Backend
	logger  *slog.Logger
	mcp     *server.MCPServer
}

// New registers the tools against backend.
func New(backend Backend, logger *slog.Logger) *Server {
	s := &Server{
		backend: backend,
		logger:  logging.NewComponentLogger(logger, "mcp"),
		mcp:     server.NewMCPServer(serverName, api.ServiceVersion, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("preview_label",
		mcp.WithDescription("Render ZPL label markup as SVG, PNG or a JSON scene"),
		mcp.WithString("zpl", mcp.Required(), mcp.Description("Label markup")),
		mcp.WithString("format", mcp.Description("svg (default), png or json")),
	), s.previewLabel)

	s.mcp.AddTool(mcp.NewTool("print_label",
		mcp.WithDescription("Deliver a label through the USB, network and file transports in order"),
		mcp.WithString("zpl", mcp.Required(), mcp.Description("Label markup")),
		mcp.WithString("unit_id", mcp.Description("Serial number the label belongs to")),
		mcp.WithString("printer_ip", mcp.Description("Override the configured printer host")),
		mcp.WithNumber("printer_port", mcp.Description("Override the configured printer port")),
	), s.printLabel)

	s.mcp.AddTool(mcp.NewTool("printer_status",
		mcp.WithDescription("Probe the configured network printer"),
	), s.printerStatus)

	if backend.Catalog != nil {
		s.mcp.AddTool(mcp.NewTool("lookup_production",
			mcp.WithDescription("List the units and tag codes of a production"),
			mcp.WithString("number", mcp.Required(), mcp.Description("Production number")),
		), s.lookupProduction)
	}
	return s
}

// Serve answers requests on in/out until ctx is cancelled or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("mcp server listening on stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func (s *Server) previewLabel(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("zpl")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := scene.ParseFormat(req.GetString("format", string(scene.FormatSVG)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := scene.Preview(text, format)
	if result.Fallback {
		message := "label could not be rendered; raw markup follows\n\n" + result.Raw
		return mcp.NewToolResultText(message), nil
	}
	if format == scene.FormatPNG {
		encoded := base64.StdEncoding.EncodeToString(result.Body)
		return mcp.NewToolResultImage("label preview", encoded, format.ContentType()), nil
	}
	return mcp.NewToolResultText(string(result.Body)), nil
}

func (s *Server) printLabel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("zpl")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	job := delivery.Job{
		Payload:  []byte(text),
		UnitID:   req.GetString("unit_id", ""),
		Target:   s.backend.Settings.Resolve(req.GetString("printer_ip", ""), req.GetInt("printer_port", 0)),
		Deadline: s.backend.Settings.Timeout(),
	}
	outcome := s.backend.Strategy.Deliver(ctx, job)
	if !outcome.Succeeded() {
		return mcp.NewToolResultError(outcome.StatusMessage()), nil
	}
	return mcp.NewToolResultText(outcome.StatusMessage()), nil
}

func (s *Server) printerStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := s.backend.Settings.Target()
	if err := s.backend.Client.Probe(ctx, target, s.backend.Settings.Timeout()); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("offline: %s (%v)", target, err)), nil
	}
	return mcp.NewToolResultText("online: " + target.String()), nil
}

func (s *Server) lookupProduction(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, err := req.RequireString("number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	production, err := s.backend.Catalog.Find(number)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := json.MarshalIndent(api.FromProduction(production), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode production: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
