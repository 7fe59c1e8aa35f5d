package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"tagprint/internal/zpl"
)

// Format selects the preview encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
)

// ParseFormat maps a query value onto a Format, defaulting to JSON.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "json":
		return FormatJSON, nil
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported preview format %q", value)
	}
}

// ContentType returns the MIME type of an encoded preview.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	default:
		return "application/json"
	}
}

// PreviewResult is either an encoded scene or, when Fallback is set, the raw
// command text formatted for display.
type PreviewResult struct {
	Format   Format
	Body     []byte
	Scene    Scene
	Fallback bool
	Raw      string
	Err      error
}

// Encoder renders a scene in one Format.
type Encoder func(*bytes.Buffer, Scene) error

var encoders = map[Format]Encoder{
	FormatJSON: func(buf *bytes.Buffer, s Scene) error { return json.NewEncoder(buf).Encode(s) },
	FormatSVG:  func(buf *bytes.Buffer, s Scene) error { return WriteSVG(buf, s) },
	FormatPNG:  func(buf *bytes.Buffer, s Scene) error { return WritePNG(buf, s) },
}

// Preview parses, renders and encodes text. Any error or panic along the way
// yields a fallback result carrying the raw command text instead.
func Preview(text string, format Format) PreviewResult {
	return preview(text, format, encoders[format])
}

func preview(text string, format Format, encode Encoder) (result PreviewResult) {
	defer func() {
		if r := recover(); r != nil {
			result = fallback(text, format, fmt.Errorf("render panic: %v", r))
		}
	}()
	if encode == nil {
		return fallback(text, format, fmt.Errorf("no encoder for format %q", format))
	}

	s := Render(zpl.Parse(text))
	var buf bytes.Buffer
	if err := encode(&buf, s); err != nil {
		return fallback(text, format, err)
	}
	return PreviewResult{Format: format, Body: buf.Bytes(), Scene: s}
}

func fallback(text string, format Format, err error) PreviewResult {
	return PreviewResult{
		Format:   format,
		Fallback: true,
		Raw:      zpl.FormatForDisplay(text),
		Err:      err,
	}
}
