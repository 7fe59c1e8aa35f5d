package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrAPIUnavailable reports that no daemon API is configured or reachable.
var ErrAPIUnavailable = errors.New("tagprint API unavailable")

// StatusError carries a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Code)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Message)
}

// Client talks to a running tagprint daemon.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient builds a client for bind (host:port or URL). An empty bind yields
// a nil client.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Health calls GET /api/health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &out)
	return out, err
}

// Print relays payload to the network printer via POST /api/print.
func (c *Client) Print(ctx context.Context, req PrintRequest) (PrintResponse, error) {
	var out PrintResponse
	err := c.do(ctx, http.MethodPost, "/api/print", nil, req, &out)
	return out, err
}

// Deliver runs the full transport chain via POST /api/deliver.
func (c *Client) Deliver(ctx context.Context, req PrintRequest) (DeliverResponse, error) {
	var out DeliverResponse
	err := c.do(ctx, http.MethodPost, "/api/deliver", nil, req, &out)
	return out, err
}

// PrinterStatus probes the configured printer.
func (c *Client) PrinterStatus(ctx context.Context) (PrinterStatus, error) {
	var out PrinterStatus
	err := c.do(ctx, http.MethodGet, "/api/printer/status", nil, nil, &out)
	return out, err
}

// SetPrinter updates the daemon's printer target.
func (c *Client) SetPrinter(ctx context.Context, req PrinterConfigRequest) (PrinterConfigResponse, error) {
	var out PrinterConfigResponse
	err := c.do(ctx, http.MethodPost, "/api/printer/config", nil, req, &out)
	return out, err
}

// Devices lists USB printers seen by the daemon.
func (c *Client) Devices(ctx context.Context) (DevicesResponse, error) {
	var out DevicesResponse
	err := c.do(ctx, http.MethodGet, "/api/printer/devices", nil, nil, &out)
	return out, err
}

// History lists recent outcomes.
func (c *Client) History(ctx context.Context, limit int) (HistoryResponse, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var out HistoryResponse
	err := c.do(ctx, http.MethodGet, "/api/history", values, nil, &out)
	return out, err
}

// Production looks up a production by number.
func (c *Client) Production(ctx context.Context, number string) (Production, error) {
	var out Production
	err := c.do(ctx, http.MethodGet, "/api/productions/"+url.PathEscape(number), nil, nil, &out)
	return out, err
}

// PrintUnit delivers one unit's label from the catalog.
func (c *Client) PrintUnit(ctx context.Context, number, serial string) (DeliverResponse, error) {
	var out DeliverResponse
	path := "/api/productions/" + url.PathEscape(number) + "/units/" + url.PathEscape(serial) + "/print"
	err := c.do(ctx, http.MethodPost, path, nil, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return ErrAPIUnavailable
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		// Relay failures still carry a typed body; decode it for the caller.
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		var e ErrorResponse
		_ = json.Unmarshal(data, &e)
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(e.Error)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
