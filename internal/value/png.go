package value

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
)

// EncodePNG writes the raster as a PNG stream.
func EncodePNG(r *Raster, w io.Writer) error {
	if err := png.Encode(w, r.ToNRGBA()); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// DecodePNG reads a PNG stream into a linear raster.
func DecodePNG(rd io.Reader) (*Raster, error) {
	img, err := png.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to decode png: %w", err)
	}
	return FromImage(img), nil
}

// DecodePNGBytes is DecodePNG over an in-memory buffer, the common case for
// embedded image data and service responses.
func DecodePNGBytes(data []byte) (*Raster, error) {
	return DecodePNG(bytes.NewReader(data))
}
