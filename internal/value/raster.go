package value

import (
	"fmt"
	"image"
	"image/color"
)

// Raster is an uncompressed RGBA image with linear float channels, stored
// row-major. It is the pixel currency of every raster node.
type Raster struct {
	Width  int
	Height int
	Pix    []Color
}

// NewRaster allocates a zeroed (transparent black) raster of the given size.
func NewRaster(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster dimensions must be positive, got %dx%d", width, height)
	}
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]Color, width*height),
	}, nil
}

// At returns the pixel at (x, y). Out-of-bounds reads return transparent black.
func (r *Raster) At(x, y int) Color {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return Color{}
	}
	return r.Pix[y*r.Width+x]
}

// Set writes the pixel at (x, y). Out-of-bounds writes are ignored.
func (r *Raster) Set(x, y int, c Color) {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return
	}
	r.Pix[y*r.Width+x] = c
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	pix := make([]Color, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Pix: pix}
}

// Map returns a new raster with f applied to every pixel. The receiver is
// not modified; node implementations must never mutate their inputs.
func (r *Raster) Map(f func(Color) Color) *Raster {
	out := &Raster{Width: r.Width, Height: r.Height, Pix: make([]Color, len(r.Pix))}
	for i, c := range r.Pix {
		out.Pix[i] = f(c)
	}
	return out
}

// ToNRGBA converts to a standard library image with 8-bit gamma-encoded
// channels, for PNG encoding and x/image interop.
func (r *Raster) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			g := r.At(x, y).Clamp().ToGammaSRGB()
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(g.R*255 + 0.5),
				G: uint8(g.G*255 + 0.5),
				B: uint8(g.B*255 + 0.5),
				A: uint8(g.A*255 + 0.5),
			})
		}
	}
	return img
}

// FromImage converts any standard library image into a linear raster.
func FromImage(src image.Image) *Raster {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := &Raster{Width: w, Height: h, Pix: make([]Color, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cr, cg, cb, ca := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// RGBA returns alpha-premultiplied 16-bit channels.
			a := float64(ca) / 0xffff
			var col Color
			if a > 0 {
				col = Color{
					R: SRGBToLinear(float64(cr) / float64(ca)),
					G: SRGBToLinear(float64(cg) / float64(ca)),
					B: SRGBToLinear(float64(cb) / float64(ca)),
					A: a,
				}
			}
			out.Pix[y*w+x] = col
		}
	}
	return out
}
