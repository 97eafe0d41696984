package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/rastergraph/internal/value"
)

var (
	red  = value.Color{R: 1, A: 1}
	blue = value.Color{B: 1, A: 1}
)

func TestRasterizeEmptyPath(t *testing.T) {
	img, err := rasterize(&value.Path{})
	require.NoError(t, err)
	assert.Equal(t, 1, img.Width)
	assert.Equal(t, 1, img.Height)
	assert.Equal(t, value.Color{}, img.Pix[0])
}

func TestRasterizeFillsRectangle(t *testing.T) {
	p := rectanglePath(4, 3)
	p.Style.Fill = &red

	img, err := rasterize(p)
	require.NoError(t, err)
	require.Equal(t, 4, img.Width)
	require.Equal(t, 3, img.Height)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, red, img.At(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestRasterizeEllipseCoverage(t *testing.T) {
	p := ellipsePath(3, 3)
	p.Style.Fill = &red

	img, err := rasterize(p)
	require.NoError(t, err)
	require.Equal(t, 6, img.Width)
	require.Equal(t, 6, img.Height)

	// Near the center the disc is solid; the far corner stays empty.
	assert.Equal(t, red, img.At(2, 2))
	assert.Equal(t, red, img.At(3, 3))
	assert.Equal(t, value.Color{}, img.At(0, 0))
	assert.Equal(t, value.Color{}, img.At(5, 5))
}

func TestRasterizeStrokesLine(t *testing.T) {
	p := linePath(0, 2, 6, 2)
	p.Style.Stroke = &blue
	p.Style.StrokeWidth = 2

	img, err := rasterize(p)
	require.NoError(t, err)
	require.Equal(t, 7, img.Width)
	require.Equal(t, 3, img.Height)

	// Pixel centers within one unit of the segment take the stroke.
	assert.Equal(t, blue, img.At(3, 1))
	assert.Equal(t, blue, img.At(6, 1))
	assert.Equal(t, blue, img.At(3, 2))
	assert.Equal(t, value.Color{}, img.At(3, 0))
}

func TestRasterizeStrokePaintsOverFill(t *testing.T) {
	p := rectanglePath(4, 3)
	p.Style.Fill = &red
	p.Style.Stroke = &blue
	p.Style.StrokeWidth = 2

	img, err := rasterize(p)
	require.NoError(t, err)
	// Stroke overhang widens the canvas.
	require.Equal(t, 5, img.Width)
	require.Equal(t, 4, img.Height)

	assert.Equal(t, blue, img.At(0, 0), "border pixel takes the stroke")
	assert.Equal(t, red, img.At(2, 1), "interior pixel keeps the fill")
}

func TestSegmentDistance(t *testing.T) {
	a := value.Point{X: 0, Y: 0}
	b := value.Point{X: 10, Y: 0}

	assert.InDelta(t, 1.5, segmentDistance(value.Point{X: 5, Y: 1.5}, a, b), 1e-12)
	assert.InDelta(t, 5, segmentDistance(value.Point{X: 15, Y: 0}, a, b), 1e-12)
	assert.InDelta(t, 2, segmentDistance(value.Point{X: 2, Y: 0}, a, a), 1e-12, "degenerate segment measures to the point")
}
