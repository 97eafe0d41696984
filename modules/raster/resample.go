package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/vk/rastergraph/internal/value"
)

// scalers maps method names to the x/image/draw interpolators.
var scalers = map[string]draw.Scaler{
	"nearest":         draw.NearestNeighbor,
	"approx_bilinear": draw.ApproxBiLinear,
	"bilinear":        draw.BiLinear,
	"catmull_rom":     draw.CatmullRom,
}

// toNRGBA64 stores the raster's linear channels in 16 bits, so scalers
// interpolate in linear light. Out-of-range channels clip.
func toNRGBA64(r *value.Raster) *image.NRGBA64 {
	img := image.NewNRGBA64(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			c := r.At(x, y).Clamp()
			img.SetNRGBA64(x, y, color.NRGBA64{
				R: uint16(math.Round(c.R * 0xffff)),
				G: uint16(math.Round(c.G * 0xffff)),
				B: uint16(math.Round(c.B * 0xffff)),
				A: uint16(math.Round(c.A * 0xffff)),
			})
		}
	}
	return img
}

func fromNRGBA64(img *image.NRGBA64) (*value.Raster, error) {
	b := img.Bounds()
	out, err := value.NewRaster(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := img.NRGBA64At(b.Min.X+x, b.Min.Y+y)
			out.Set(x, y, value.Color{
				R: float64(c.R) / 0xffff,
				G: float64(c.G) / 0xffff,
				B: float64(c.B) / 0xffff,
				A: float64(c.A) / 0xffff,
			})
		}
	}
	return out, nil
}

// resampleRaster scales the raster to the target size with the named
// interpolator.
func resampleRaster(r *value.Raster, width, height int, method string) (*value.Raster, error) {
	scaler, ok := scalers[method]
	if !ok {
		return nil, fmt.Errorf("unknown resample method %q", method)
	}
	src := toNRGBA64(r)
	dst := image.NewNRGBA64(image.Rect(0, 0, width, height))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return fromNRGBA64(dst)
}
