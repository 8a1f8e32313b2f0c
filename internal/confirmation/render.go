package confirmation

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Card geometry in unscaled pixels. The finished image is scaled by
// renderScale.
const (
	cardWidth    = 360
	cardPadding  = 16
	headerHeight = 44
	lineHeight   = 18
	renderScale  = 2
)

var (
	colorBackground = color.RGBA{R: 0xfe, G: 0xf2, B: 0xf2, A: 0xff}
	colorHeader     = color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}
	colorAccent     = color.RGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff}
	colorText       = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	colorMuted      = color.RGBA{R: 0x4b, G: 0x55, B: 0x63, A: 0xff}
)

type textLine struct {
	text  string
	color color.Color
	gap   int // extra space above the line
}

// layout lists the lines of the card body. Action controls are never part of
// the rendered region.
func layout(c *Card) []textLine {
	lines := []textLine{
		{text: "[ " + c.BloodType.Label() + " ]", color: colorAccent, gap: 8},
		{text: c.DonorName, color: colorText, gap: 12},
		{text: c.DateLine(), color: colorMuted},
	}
	maxChars := (cardWidth - 2*cardPadding) / basicfont.Face7x13.Advance
	for _, l := range wrap(c.Location.Address(), maxChars) {
		lines = append(lines, textLine{text: l, color: colorMuted})
	}
	lines = append(lines, textLine{text: "Thank you for your life-saving donation!", color: colorAccent, gap: 12})
	return lines
}

// wrap breaks s on spaces so that no line exceeds width runes, hard-splitting
// longer words.
func wrap(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}
	var (
		out     []string
		current []rune
	)
	flush := func() {
		if len(current) > 0 {
			out = append(out, string(current))
			current = current[:0]
		}
	}
	for _, word := range strings.Fields(s) {
		w := []rune(word)
		for len(w) > width {
			flush()
			out = append(out, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(current) == 0:
			current = append(current, w...)
		case len(current)+1+len(w) <= width:
			current = append(current, ' ')
			current = append(current, w...)
		default:
			flush()
			current = append(current, w...)
		}
	}
	flush()
	return out
}

// Rasterize draws the card.
func Rasterize(c *Card) image.Image {
	lines := layout(c)
	height := headerHeight + cardPadding
	for _, l := range lines {
		height += l.gap + lineHeight
	}
	height += cardPadding

	src := image.NewRGBA(image.Rect(0, 0, cardWidth, height))
	xdraw.Draw(src, src.Bounds(), image.NewUniform(colorBackground), image.Point{}, xdraw.Src)
	xdraw.Draw(src, image.Rect(0, 0, cardWidth, headerHeight), image.NewUniform(colorHeader), image.Point{}, xdraw.Src)

	drawCentered(src, "Blood Donation Confirmation", headerHeight/2+5, color.White)

	y := headerHeight + cardPadding
	for _, l := range lines {
		y += l.gap + lineHeight
		drawCentered(src, l.text, y-5, l.color)
	}

	dst := image.NewRGBA(image.Rect(0, 0, cardWidth*renderScale, height*renderScale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func drawCentered(dst *image.RGBA, text string, baseline int, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(text).Ceil()
	x := (dst.Bounds().Dx() - width) / 2
	if x < cardPadding {
		x = cardPadding
	}
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)
}

// RenderJPEG rasterizes the card into a JPEG.
func RenderJPEG(c *Card) ([]byte, error) {
	return encodeJPEG(Rasterize(c))
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
