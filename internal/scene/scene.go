package scene

import "tagprint/internal/zpl"

const (
	// FontFamily is used for every text primitive.
	FontFamily = "Arial, sans-serif"

	// LabelWidth and LabelHeight size the preview canvas: a 4"x2" label at
	// preview scale. The canvas grows when primitives fall outside it.
	LabelWidth  = 800
	LabelHeight = 400
)

// PrimitiveKind discriminates scene primitives.
type PrimitiveKind string

const (
	PrimitiveText PrimitiveKind = "text"
	PrimitiveBox  PrimitiveKind = "box"
)

// Primitive is one absolutely positioned element of the scene.
type Primitive struct {
	Kind PrimitiveKind `json:"type"`
	X    int           `json:"x"`
	Y    int           `json:"y"`

	Text       string  `json:"text,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSizePx float64 `json:"fontSize,omitempty"`
	FontWeight string  `json:"fontWeight,omitempty"`

	Width     int `json:"width,omitempty"`
	Height    int `json:"height,omitempty"`
	Thickness int `json:"thickness,omitempty"`
}

// Scene is the ordered set of primitives plus the canvas they sit on.
type Scene struct {
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Primitives []Primitive `json:"primitives"`
}

// Render maps instructions to primitives one to one, preserving order.
func Render(instructions []zpl.Instruction) Scene {
	s := Scene{
		Width:      LabelWidth,
		Height:     LabelHeight,
		Primitives: make([]Primitive, 0, len(instructions)),
	}
	for _, inst := range instructions {
		var p Primitive
		switch inst.Kind {
		case zpl.KindText:
			weight := "normal"
			if inst.Bold {
				weight = "bold"
			}
			p = Primitive{
				Kind:       PrimitiveText,
				X:          inst.X,
				Y:          inst.Y,
				Text:       inst.Text,
				FontFamily: FontFamily,
				FontSizePx: inst.FontSizePx,
				FontWeight: weight,
			}
			s.grow(inst.X, inst.Y+int(inst.FontSizePx+0.5))
		case zpl.KindBox:
			p = Primitive{
				Kind:      PrimitiveBox,
				X:         inst.X,
				Y:         inst.Y,
				Width:     inst.Width,
				Height:    inst.Height,
				Thickness: inst.Thickness,
			}
			s.grow(inst.X+inst.Width, inst.Y+inst.Height)
		default:
			continue
		}
		s.Primitives = append(s.Primitives, p)
	}
	return s
}

func (s *Scene) grow(x, y int) {
	if x > s.Width {
		s.Width = x
	}
	if y > s.Height {
		s.Height = y
	}
}

// strokeWidth is the outline width drawn for a box.
func (p Primitive) strokeWidth() int {
	if p.Thickness < 1 {
		return 1
	}
	return p.Thickness
}
