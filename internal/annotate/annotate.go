// Package annotate draws detection boxes and status text onto frames.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Blue   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Cyan   = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	shadow = color.RGBA{A: 160}
)

const (
	boxThickness = 2
	textPadding  = 5
	// StatusOffset is the distance of the status line above a face box
	StatusOffset = 30
)

// Canvas is a mutable copy of a frame
type Canvas struct {
	img  *image.RGBA
	face font.Face
}

// NewCanvas copies frame into a drawable RGBA image with the same bounds, so
// rectangles in frame coordinates land on the same pixels.
func NewCanvas(frame image.Image) *Canvas {
	b := frame.Bounds()
	img := image.NewRGBA(b)
	draw.Draw(img, b, frame, b.Min, draw.Src)
	return &Canvas{img: img, face: basicfont.Face7x13}
}

// Image returns the annotated frame
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Box outlines r
func (c *Canvas) Box(r image.Rectangle, col color.Color) {
	r = r.Intersect(c.img.Bounds())
	if r.Empty() {
		return
	}
	u := image.NewUniform(col)
	for i := range boxThickness {
		edges := []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y+i, r.Max.X, r.Min.Y+i+1),
			image.Rect(r.Min.X, r.Max.Y-i-1, r.Max.X, r.Max.Y-i),
			image.Rect(r.Min.X+i, r.Min.Y, r.Min.X+i+1, r.Max.Y),
			image.Rect(r.Max.X-i-1, r.Min.Y, r.Max.X-i, r.Max.Y),
		}
		for _, e := range edges {
			draw.Draw(c.img, e, u, image.Point{}, draw.Src)
		}
	}
}

// Text draws s with its baseline starting at pt, over a translucent backdrop
// so it stays readable on bright frames.
func (c *Canvas) Text(pt image.Point, s string, col color.Color) {
	if s == "" {
		return
	}
	d := &font.Drawer{Dst: c.img, Src: image.NewUniform(col), Face: c.face}
	width := d.MeasureString(s).Ceil()
	m := c.face.Metrics()
	bg := image.Rect(pt.X-1, pt.Y-m.Ascent.Ceil()-1, pt.X+width+1, pt.Y+m.Descent.Ceil()+1)
	draw.Draw(c.img, bg, image.NewUniform(shadow), image.Point{}, draw.Over)

	d.Dot = fixed.P(pt.X, pt.Y)
	d.DrawString(s)
}

// Banner writes a status line in the top-left corner. line 0 is the topmost.
func (c *Canvas) Banner(line int, s string, col color.Color) {
	c.Text(c.img.Bounds().Min.Add(image.Pt(10, 30+line*30)), s, col)
}

// Face draws a recognition result: box, name above it, confidence inside the
// bottom edge and an optional status line further up.
func (c *Canvas) Face(r image.Rectangle, name, confidence, status string, col color.Color) {
	c.Box(r, col)
	c.Text(image.Pt(r.Min.X+textPadding, r.Min.Y-textPadding), name, White)
	c.Text(image.Pt(r.Min.X+textPadding, r.Max.Y-textPadding), confidence, Cyan)
	if status != "" {
		c.Text(image.Pt(r.Min.X, r.Min.Y-StatusOffset), status, Green)
	}
}

// ConfidenceText formats a distance-like confidence: "NN%" for accepted
// matches, "Low: NN" otherwise.
func ConfidenceText(confidence, threshold float64) string {
	if confidence < threshold {
		return fmt.Sprintf("%d%%", int(math.Round(100-confidence)))
	}
	return fmt.Sprintf("Low: %d", int(math.Round(confidence)))
}
