package vision

import (
	"image"

	"golang.org/x/image/draw"
)

// CropMargin is the fraction of the box size added around a face before cropping.
const CropMargin = 0.2

// Crop copies the region of frame around rect, grown by margin on every side
// and clamped to the frame bounds. The returned image does not alias frame.
func Crop(frame image.Image, rect image.Rectangle, margin float64) image.Image {
	dx := int(float64(rect.Dx()) * margin)
	dy := int(float64(rect.Dy()) * margin)
	r := image.Rect(rect.Min.X-dx, rect.Min.Y-dy, rect.Max.X+dx, rect.Max.Y+dy).Intersect(frame.Bounds())
	if r.Empty() {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, frame, r, draw.Src, nil)
	return dst
}

// Grayscale converts img to an 8-bit grayscale image, scaling it down so
// neither side exceeds maxSide (0 keeps the original size).
func Grayscale(img image.Image, maxSide int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		if w >= h {
			h = h * maxSide / w
			w = maxSide
		} else {
			w = w * maxSide / h
			h = maxSide
		}
	}

	dst := image.NewGray(image.Rect(0, 0, max(w, 1), max(h, 1)))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
