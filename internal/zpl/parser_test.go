package zpl_test

import (
	"reflect"
	"strings"
	"testing"

	"tagprint/internal/zpl"
)

func TestParseTextWithFont(t *testing.T) {
	got := zpl.Parse("^FO50,50^ADN,36,20^FDTest Label^FS")
	want := []zpl.Instruction{zpl.Text(100, 100, "Test Label", 18, false)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected instructions:\n got %+v\nwant %+v", got, want)
	}
}

func TestParseBoldTextFollowedByBox(t *testing.T) {
	got := zpl.Parse("^FO50,50^ADN,40,25^FDHi^FS^GB100,50,2")
	want := []zpl.Instruction{
		zpl.Text(100, 100, "Hi", 20, true),
		zpl.Box(100, 100, 200, 100, 2),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected instructions:\n got %+v\nwant %+v", got, want)
	}
}

func TestParseDefaultsWithoutFont(t *testing.T) {
	got := zpl.Parse("^FO10,20^FDPlain^FS")
	if len(got) != 1 {
		t.Fatalf("expected one instruction, got %d", len(got))
	}
	if got[0].FontSizePx != 12 || got[0].Bold {
		t.Fatalf("expected default font, got %+v", got[0])
	}
	if got[0].X != 20 || got[0].Y != 40 {
		t.Fatalf("expected scaled origin, got %d,%d", got[0].X, got[0].Y)
	}
}

func TestParseMultiLineLabel(t *testing.T) {
	label := strings.Join([]string{
		"^XA",
		"^FO50,50^ADN,36,20^FDTest Label^FS",
		"^FO50,100^ADN,18,10^FDProd: TEST123^FS",
		"^GB300,4,4",
		"^XZ",
	}, "\n")
	got := zpl.Parse(label)
	want := []zpl.Instruction{
		zpl.Text(100, 100, "Test Label", 18, false),
		zpl.Text(100, 200, "Prod: TEST123", 9, false),
		zpl.Box(100, 200, 600, 8, 4),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected instructions:\n got %+v\nwant %+v", got, want)
	}
}

func TestParseDropsUnanchoredBoxes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"box first", "^GB100,50,2", 0},
		{"box after box", "^FO1,1^FDa^FS^GB1,1,1\n^GB2,2,2", 2},
		{"box after origin only", "^FO5,5\n^GB10,10,1", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := zpl.Parse(tc.input)
			if len(got) != tc.want {
				t.Fatalf("expected %d instructions, got %+v", tc.want, got)
			}
		})
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	inputs := []string{
		"",
		"\n\n",
		"^XA^XZ",
		"^ADN,36,20",
		"^FO50,50^ADN,36,20",
		"^FOx,50^FDbad^FS",
		"^FD no origin ^FS",
		"^FO50,50^FDunterminated",
		"^FO99999999999999999999,1^FDhuge^FS",
		"garbage ^^^ ,,,",
	}
	for _, input := range inputs {
		if got := zpl.Parse(input); len(got) != 0 {
			t.Fatalf("expected no instructions for %q, got %+v", input, got)
		}
	}
}

func TestParseOverflowingFontKeepsText(t *testing.T) {
	got := zpl.Parse("^FO1,2^ADN,99999999999999999999,30^FDkeep^FS")
	if len(got) != 1 {
		t.Fatalf("expected text instruction, got %+v", got)
	}
	if got[0].FontSizePx != 12 || got[0].Bold {
		t.Fatalf("expected font pattern to be ignored, got %+v", got[0])
	}
}

func TestParseRejectsCoordinatesThatWouldOverflow(t *testing.T) {
	if got := zpl.Parse("^FO5000000000000000000,50^FDx^FS^GB5000000000000000000,1,1"); len(got) != 0 {
		t.Fatalf("expected oversized origin to be skipped, got %+v", got)
	}

	got := zpl.Parse("^FO2147483647,0^FDedge^FS^GB2147483648,1,1")
	if len(got) != 1 {
		t.Fatalf("expected only the text instruction, got %+v", got)
	}
	if int64(got[0].X) != int64(2147483647)*zpl.DotScale {
		t.Fatalf("expected scaled origin without overflow, got %d", got[0].X)
	}
}

func TestParseKeepsFieldDataVerbatim(t *testing.T) {
	got := zpl.Parse("^FO0,0^FD<b>&amp; 50%^FS")
	if len(got) != 1 || got[0].Text != "<b>&amp; 50%" {
		t.Fatalf("expected verbatim text, got %+v", got)
	}
}

func TestFormatForDisplay(t *testing.T) {
	got := zpl.FormatForDisplay("^XA^FO50,50^ADN,36,20^FDTest^FS^XZ")
	want := "^XA\n\n^FO50,50\n^ADN,36,20\n^FDTest\n^FS\n^XZ"
	if got != want {
		t.Fatalf("unexpected display text:\n got %q\nwant %q", got, want)
	}
}
