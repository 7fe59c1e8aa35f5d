package zpl

import (
	"regexp"
	"strconv"
	"strings"
)

// Probe is an empty label: header and footer only. Printers accept it without
// feeding media, which makes it a reachability check.
const Probe = "^XA^XZ"

var (
	fieldOriginPattern = regexp.MustCompile(`\^FO(\d+),(\d+)`)
	fieldDataPattern   = regexp.MustCompile(`\^FD(.+?)\^FS`)
	fontPattern        = regexp.MustCompile(`\^ADN,(\d+),(\d+)`)
	graphicBoxPattern  = regexp.MustCompile(`\^GB(\d+),(\d+),(\d+)`)
)

// Parse converts a command stream into drawing instructions in source order.
// It never fails: unrecognized or malformed lines contribute nothing.
//
// A ^GB box takes its origin from the instruction emitted just before it, and
// only when that instruction is text. Boxes with no preceding text are dropped.
func Parse(text string) []Instruction {
	var out []Instruction
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if inst, ok := parseText(line); ok {
			out = append(out, inst)
		}
		if inst, ok := parseBox(line, out); ok {
			out = append(out, inst)
		}
	}
	return out
}

func parseText(line string) (Instruction, bool) {
	origin, ok := matchInts(fieldOriginPattern, line)
	if !ok {
		return Instruction{}, false
	}
	data := fieldDataPattern.FindStringSubmatch(line)
	if data == nil {
		return Instruction{}, false
	}

	size, bold := defaultFontSizePx, false
	if font, ok := matchInts(fontPattern, line); ok {
		size = float64(font[0]) * fontScale
		bold = font[1] > boldWidthCutoff
	}
	return Text(origin[0]*DotScale, origin[1]*DotScale, data[1], size, bold), true
}

func parseBox(line string, emitted []Instruction) (Instruction, bool) {
	dims, ok := matchInts(graphicBoxPattern, line)
	if !ok || len(emitted) == 0 {
		return Instruction{}, false
	}
	anchor := emitted[len(emitted)-1]
	if anchor.Kind != KindText {
		return Instruction{}, false
	}
	return Box(anchor.X, anchor.Y, dims[0]*DotScale, dims[1]*DotScale, dims[2]), true
}

// matchInts returns the integer capture groups of the first match. Values
// outside int32 make the whole pattern a non-match, so scaling by DotScale
// cannot overflow.
func matchInts(pattern *regexp.Regexp, line string) ([]int, bool) {
	groups := pattern.FindStringSubmatch(line)
	if groups == nil {
		return nil, false
	}
	values := make([]int, 0, len(groups)-1)
	for _, raw := range groups[1:] {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, false
		}
		values = append(values, int(n))
	}
	return values, true
}
