package scene_test

import (
	"bytes"
	"encoding/json"
	"image/png"
	"reflect"
	"strings"
	"testing"

	"tagprint/internal/scene"
	"tagprint/internal/zpl"
)

const sampleLabel = "^XA\n^FO50,50^ADN,40,25^FDHi & <bye>^FS^GB100,50,2\n^XZ"

func TestRenderMapsInstructionsInOrder(t *testing.T) {
	s := scene.Render([]zpl.Instruction{
		zpl.Text(100, 100, "Hi", 20, true),
		zpl.Box(100, 100, 200, 100, 2),
		zpl.Text(10, 20, "lo", 9, false),
	})
	if len(s.Primitives) != 3 {
		t.Fatalf("expected 3 primitives, got %d", len(s.Primitives))
	}
	text := s.Primitives[0]
	if text.Kind != scene.PrimitiveText || text.FontWeight != "bold" || text.FontFamily != scene.FontFamily || text.FontSizePx != 20 {
		t.Fatalf("unexpected text primitive: %+v", text)
	}
	box := s.Primitives[1]
	if box.Kind != scene.PrimitiveBox || box.X != 100 || box.Y != 100 || box.Width != 200 || box.Height != 100 {
		t.Fatalf("unexpected box primitive: %+v", box)
	}
	if s.Primitives[2].FontWeight != "normal" || s.Primitives[2].Text != "lo" {
		t.Fatalf("unexpected trailing primitive: %+v", s.Primitives[2])
	}
	if s.Width != scene.LabelWidth || s.Height != scene.LabelHeight {
		t.Fatalf("unexpected canvas %dx%d", s.Width, s.Height)
	}
}

func TestRenderIsPure(t *testing.T) {
	instructions := zpl.Parse(sampleLabel)
	first := scene.Render(instructions)
	second := scene.Render(instructions)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("render not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestRenderGrowsCanvas(t *testing.T) {
	s := scene.Render([]zpl.Instruction{zpl.Box(700, 300, 400, 200, 1)})
	if s.Width != 1100 || s.Height != 500 {
		t.Fatalf("expected canvas to fit box, got %dx%d", s.Width, s.Height)
	}
}

func TestWriteSVGEscapesText(t *testing.T) {
	var buf bytes.Buffer
	if err := scene.WriteSVG(&buf, scene.Render(zpl.Parse(sampleLabel))); err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Hi &amp; &lt;bye&gt;") {
		t.Fatalf("expected escaped text, got %s", out)
	}
	if !strings.Contains(out, `font-weight="bold"`) {
		t.Fatalf("expected bold weight, got %s", out)
	}
	if !strings.Contains(out, `<rect x="100" y="100" width="200" height="100" fill="none" stroke="#000" stroke-width="2"/>`) {
		t.Fatalf("expected box outline, got %s", out)
	}
}

func TestPreviewPNGDecodes(t *testing.T) {
	result := scene.Preview(sampleLabel, scene.FormatPNG)
	if result.Fallback {
		t.Fatalf("unexpected fallback: %v", result.Err)
	}
	img, err := png.Decode(bytes.NewReader(result.Body))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != scene.LabelWidth || b.Dy() != scene.LabelHeight {
		t.Fatalf("unexpected png bounds %v", b)
	}
	// Top edge of the box is inked.
	if r, _, _, _ := img.At(150, 100).RGBA(); r > 0x8000 {
		t.Fatalf("expected dark pixel on box edge, got r=%#x", r)
	}
	// Inside the box stays white.
	if r, _, _, _ := img.At(250, 180).RGBA(); r < 0x8000 {
		t.Fatalf("expected white pixel inside box, got r=%#x", r)
	}
}

func TestPreviewJSON(t *testing.T) {
	result := scene.Preview(sampleLabel, scene.FormatJSON)
	if result.Fallback {
		t.Fatalf("unexpected fallback: %v", result.Err)
	}
	var decoded scene.Scene
	if err := json.Unmarshal(result.Body, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(decoded.Primitives) != 2 || decoded.Primitives[0].Kind != scene.PrimitiveText {
		t.Fatalf("unexpected scene: %+v", decoded)
	}
}

func TestPreviewFallsBackOnOversizedCanvas(t *testing.T) {
	result := scene.Preview("^FO1,1^FDx^FS^GB9000,10,1", scene.FormatPNG)
	if !result.Fallback {
		t.Fatal("expected fallback for oversized raster")
	}
	if result.Err == nil {
		t.Fatal("expected fallback error")
	}
	if result.Raw != zpl.FormatForDisplay("^FO1,1^FDx^FS^GB9000,10,1") {
		t.Fatalf("unexpected raw text %q", result.Raw)
	}
}

func TestPreviewUnknownFormatFallsBack(t *testing.T) {
	result := scene.Preview("^XA^XZ", scene.Format("gif"))
	if !result.Fallback || result.Raw != "^XA\n\n^XZ" {
		t.Fatalf("expected fallback with raw text, got %+v", result)
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]scene.Format{"": scene.FormatJSON, "SVG": scene.FormatSVG, " png ": scene.FormatPNG} {
		got, err := scene.ParseFormat(input)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := scene.ParseFormat("bmp"); err == nil {
		t.Fatal("expected error for bmp")
	}
	if scene.FormatSVG.ContentType() != "image/svg+xml" {
		t.Fatalf("unexpected content type %q", scene.FormatSVG.ContentType())
	}
}
