package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestDigestValueDeterministic(t *testing.T) {
	v := cty.ObjectVal(map[string]cty.Value{
		"b": cty.NumberIntVal(2),
		"a": cty.StringVal("x"),
	})

	d1, err := DigestValue(v)
	require.NoError(t, err)
	d2, err := DigestValue(v)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestDigestDistinguishesTypes(t *testing.T) {
	num, err := DigestValue(cty.NumberIntVal(1))
	require.NoError(t, err)
	str, err := DigestValue(cty.StringVal("1"))
	require.NoError(t, err)
	assert.NotEqual(t, num, str)
}

func TestDigestCapsules(t *testing.T) {
	t.Run("raster content sensitivity", func(t *testing.T) {
		r1, err := NewRaster(2, 2)
		require.NoError(t, err)
		r2 := r1.Clone()

		d1, err := DigestValue(RasterVal(r1))
		require.NoError(t, err)
		d2, err := DigestValue(RasterVal(r2))
		require.NoError(t, err)
		assert.Equal(t, d1, d2, "identical pixel content must digest identically")

		r2.Set(0, 0, White)
		d3, err := DigestValue(RasterVal(r2))
		require.NoError(t, err)
		assert.NotEqual(t, d1, d3)
	})

	t.Run("path style sensitivity", func(t *testing.T) {
		p := &Path{Subpaths: []Subpath{{Points: []Point{{0, 0}, {1, 1}}}}}
		d1, err := DigestValue(PathVal(p))
		require.NoError(t, err)

		styled := p.Clone()
		red := Color{1, 0, 0, 1}
		styled.Style.Fill = &red
		d2, err := DigestValue(PathVal(styled))
		require.NoError(t, err)
		assert.NotEqual(t, d1, d2)
	})

	t.Run("color and transform", func(t *testing.T) {
		d1, err := DigestValue(ColorVal(Color{0.1, 0.2, 0.3, 1}))
		require.NoError(t, err)
		d2, err := DigestValue(ColorVal(Color{0.1, 0.2, 0.3, 0.5}))
		require.NoError(t, err)
		assert.NotEqual(t, d1, d2)

		td, err := DigestValue(TransformVal(Translation(1, 2)))
		require.NoError(t, err)
		assert.NotEqual(t, d1, td)
	})
}

func TestDigestValuesOrderSensitive(t *testing.T) {
	a := cty.NumberIntVal(1)
	b := cty.NumberIntVal(2)

	d1, err := DigestValues([]cty.Value{a, b})
	require.NoError(t, err)
	d2, err := DigestValues([]cty.Value{b, a})
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestDigestRejectsUnknown(t *testing.T) {
	_, err := DigestValue(cty.UnknownVal(cty.String))
	require.Error(t, err)
}

func TestDigestNull(t *testing.T) {
	d, err := DigestValue(cty.NullVal(cty.Number))
	require.NoError(t, err)
	assert.NotEqual(t, Digest{}, d)
}
