package zpl

// Kind discriminates the drawing instruction variants.
type Kind string

const (
	KindText Kind = "text"
	KindBox  Kind = "box"
)

// DotScale converts device dots into preview pixels.
const DotScale = 2

const (
	defaultFontSizePx = 12.0
	fontScale         = 0.5
	boldWidthCutoff   = 20
)

// Instruction is one positioned drawing element. Fields that do not apply to
// the instruction's Kind are zero.
type Instruction struct {
	Kind Kind `json:"type"`
	X    int  `json:"x"`
	Y    int  `json:"y"`

	Text       string  `json:"text,omitempty"`
	FontSizePx float64 `json:"fontSize,omitempty"`
	Bold       bool    `json:"bold,omitempty"`

	Width     int `json:"width,omitempty"`
	Height    int `json:"height,omitempty"`
	Thickness int `json:"thickness,omitempty"`
}

// Text builds a text instruction.
func Text(x, y int, text string, fontSizePx float64, bold bool) Instruction {
	return Instruction{Kind: KindText, X: x, Y: y, Text: text, FontSizePx: fontSizePx, Bold: bold}
}

// Box builds a box instruction.
func Box(x, y, width, height, thickness int) Instruction {
	return Instruction{Kind: KindBox, X: x, Y: y, Width: width, Height: height, Thickness: thickness}
}
