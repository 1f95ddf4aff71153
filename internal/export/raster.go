// Package export renders the wizard summary to an image and to a paged A4
// PDF.
package export

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"cpq-console/internal/wizard"
)

// Raster layout, in pixels.
const (
	RasterWidth   = 794 // A4 width at 96 dpi
	rasterPadding = 24
	lineHeight    = 18
	indent        = 16
)

var (
	headingColor = color.RGBA{R: 0x1f, G: 0x3a, B: 0x5f, A: 0xff}
	labelColor   = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}
	ruleColor    = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
)

type line struct {
	text  string
	x     int
	color color.Color
	rule  bool
}

// Rasterize draws the summary onto a white image RasterWidth pixels wide and
// as tall as the content needs.
func Rasterize(s wizard.Summary) *image.RGBA {
	face := basicfont.Face7x13
	maxChars := (RasterWidth - 2*rasterPadding - indent) / face.Advance

	lines := []line{{text: s.Title, x: rasterPadding, color: headingColor}, {rule: true}}
	for _, sec := range s.Sections {
		lines = append(lines, line{text: strings.ToUpper(sec.Heading), x: rasterPadding, color: headingColor})
		for _, row := range sec.Rows {
			for i, part := range wrap(row.Label+": "+row.Value, maxChars) {
				c := color.Color(color.Black)
				if i == 0 {
					c = labelColor
				}
				lines = append(lines, line{text: part, x: rasterPadding + indent, color: c})
			}
		}
		lines = append(lines, line{rule: true})
	}

	height := 2*rasterPadding + len(lines)*lineHeight
	img := image.NewRGBA(image.Rect(0, 0, RasterWidth, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for i, l := range lines {
		baseline := rasterPadding + (i+1)*lineHeight - (lineHeight-face.Ascent)/2
		if l.rule {
			y := baseline - face.Ascent/2
			draw.Draw(img, image.Rect(rasterPadding, y, RasterWidth-rasterPadding, y+1), image.NewUniform(ruleColor), image.Point{}, draw.Src)
			continue
		}
		d := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(l.color),
			Face: face,
			Dot:  fixed.P(l.x, baseline),
		}
		d.DrawString(l.text)
	}
	return img
}

// wrap splits s on spaces into lines of at most width characters. Words
// longer than width are cut.
func wrap(s string, width int) []string {
	if width <= 0 || len(s) <= width {
		return []string{s}
	}
	var out []string
	var cur strings.Builder
	for _, word := range strings.Fields(s) {
		for len(word) > width {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			out = append(out, word[:width])
			word = word[width:]
		}
		switch {
		case cur.Len() == 0:
			cur.WriteString(word)
		case cur.Len()+1+len(word) <= width:
			cur.WriteByte(' ')
			cur.WriteString(word)
		default:
			out = append(out, cur.String())
			cur.Reset()
			cur.WriteString(word)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
