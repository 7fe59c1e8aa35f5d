package scene

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sync"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// maxRasterSide bounds PNG output so a hostile label cannot exhaust memory.
const maxRasterSide = 8000

type fontSet struct {
	regular *opentype.Font
	bold    *opentype.Font
}

var (
	fontsOnce sync.Once
	fonts     fontSet
	fontsErr  error
)

func loadFonts() (fontSet, error) {
	fontsOnce.Do(func() {
		regular, err := opentype.Parse(goregular.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("parse regular font: %w", err)
			return
		}
		bold, err := opentype.Parse(gobold.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("parse bold font: %w", err)
			return
		}
		fonts = fontSet{regular: regular, bold: bold}
	})
	return fonts, fontsErr
}

// Raster draws the scene onto a white RGBA canvas.
func Raster(s Scene) (*image.RGBA, error) {
	if s.Width <= 0 || s.Height <= 0 || s.Width > maxRasterSide || s.Height > maxRasterSide {
		return nil, fmt.Errorf("raster: canvas %dx%d out of range", s.Width, s.Height)
	}
	set, err := loadFonts()
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(s.Width, s.Height, img, img.Bounds())
	dasher := rasterx.NewDasher(s.Width, s.Height, scanner)
	dasher.SetColor(color.Black)

	for _, p := range s.Primitives {
		switch p.Kind {
		case PrimitiveBox:
			strokeBox(dasher, p)
		case PrimitiveText:
			if err := drawText(img, set, p); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("raster: unknown primitive %q", p.Kind)
		}
	}
	return img, nil
}

// WritePNG rasterizes the scene and encodes it as PNG.
func WritePNG(w io.Writer, s Scene) error {
	img, err := Raster(s)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func strokeBox(dasher *rasterx.Dasher, p Primitive) {
	dasher.Clear()
	width := fixed.I(p.strokeWidth())
	dasher.SetStroke(width, 4*fixed.I(1), rasterx.ButtCap, nil, rasterx.FlatGap, rasterx.Miter, nil, 0)
	rasterx.AddRect(float64(p.X), float64(p.Y), float64(p.X+p.Width), float64(p.Y+p.Height), 0, dasher)
	dasher.Draw()
}

func drawText(dst draw.Image, set fontSet, p Primitive) error {
	if p.FontSizePx <= 0 {
		return nil
	}
	f := set.regular
	if p.FontWeight == "bold" {
		f = set.bold
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    p.FontSizePx,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("font face %.1fpx: %w", p.FontSizePx, err)
	}
	defer face.Close()

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(p.X), Y: fixed.I(p.Y) + face.Metrics().Ascent},
	}
	drawer.DrawString(p.Text)
	return nil
}
