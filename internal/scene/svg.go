package scene

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// WriteSVG encodes the scene as a standalone SVG document. Text is placed by
// its top-left corner to match the absolute-positioned preview.
func WriteSVG(w io.Writer, s Scene) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		s.Width, s.Height, s.Width, s.Height)
	fmt.Fprintf(bw, `<rect x="0" y="0" width="%d" height="%d" fill="#fff"/>`+"\n", s.Width, s.Height)
	for _, p := range s.Primitives {
		switch p.Kind {
		case PrimitiveText:
			fmt.Fprintf(bw, `<text x="%d" y="%d" dominant-baseline="hanging" font-family="%s" font-size="%s" font-weight="%s" fill="#000">`,
				p.X, p.Y, p.FontFamily, strconv.FormatFloat(p.FontSizePx, 'f', -1, 64), p.FontWeight)
			if err := xml.EscapeText(bw, []byte(p.Text)); err != nil {
				return fmt.Errorf("escape text: %w", err)
			}
			bw.WriteString("</text>\n")
		case PrimitiveBox:
			fmt.Fprintf(bw, `<rect x="%d" y="%d" width="%d" height="%d" fill="none" stroke="#000" stroke-width="%d"/>`+"\n",
				p.X, p.Y, p.Width, p.Height, p.strokeWidth())
		default:
			return fmt.Errorf("svg: unknown primitive %q", p.Kind)
		}
	}
	bw.WriteString("</svg>\n")
	return bw.Flush()
}
