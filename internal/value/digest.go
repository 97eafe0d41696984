package value

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"math"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Digest is a canonical content hash of a value. Two values with the same
// digest are treated as interchangeable by the memoization layer, so every
// byte that contributes to a value's meaning must be hashed here.
type Digest [sha256.Size]byte

// String returns the digest as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// DigestValue computes the canonical digest of a single value.
func DigestValue(v cty.Value) (Digest, error) {
	h := sha256.New()
	if err := writeValue(h, v); err != nil {
		return Digest{}, err
	}
	var d Digest
	h.Sum(d[:0])
	return d, nil
}

// DigestValues computes one digest over an ordered sequence of values.
// The sequence position is part of the hash, so swapping two inputs
// produces a different digest.
func DigestValues(vals []cty.Value) (Digest, error) {
	h := sha256.New()
	writeUint64(h, uint64(len(vals)))
	for i, v := range vals {
		writeUint64(h, uint64(i))
		if err := writeValue(h, v); err != nil {
			return Digest{}, err
		}
	}
	var d Digest
	h.Sum(d[:0])
	return d, nil
}

func writeValue(h hash.Hash, v cty.Value) error {
	if v == cty.NilVal {
		return fmt.Errorf("cannot digest nil value")
	}
	if !v.IsKnown() {
		return fmt.Errorf("cannot digest unknown value")
	}
	if v.IsNull() {
		writeTag(h, "null")
		return nil
	}

	t := v.Type()
	if t.IsCapsuleType() {
		return writeCapsule(h, v, t)
	}

	// Standard values serialize deterministically through ctyjson: object
	// attributes iterate in sorted order, so identical values always yield
	// identical bytes. The type is hashed alongside the payload to keep
	// e.g. the string "1" distinct from the number 1.
	tb, err := ctyjson.MarshalType(t)
	if err != nil {
		return fmt.Errorf("cannot digest value of type %s: %w", t.FriendlyName(), err)
	}
	vb, err := ctyjson.Marshal(v, t)
	if err != nil {
		return fmt.Errorf("cannot digest value of type %s: %w", t.FriendlyName(), err)
	}
	writeTag(h, "cty")
	writeBytes(h, tb)
	writeBytes(h, vb)
	return nil
}

func writeCapsule(h hash.Hash, v cty.Value, t cty.Type) error {
	switch {
	case t.Equals(RasterType):
		r := v.EncapsulatedValue().(*Raster)
		writeTag(h, "raster")
		writeUint64(h, uint64(r.Width))
		writeUint64(h, uint64(r.Height))
		for _, c := range r.Pix {
			writeColor(h, c)
		}
	case t.Equals(PathType):
		writeTag(h, "path")
		writePath(h, v.EncapsulatedValue().(*Path))
	case t.Equals(GroupType):
		g := v.EncapsulatedValue().(*Group)
		writeTag(h, "group")
		writeUint64(h, uint64(len(g.Elements)))
		for _, el := range g.Elements {
			writeTransform(h, el.Transform)
			if el.Path != nil {
				writeTag(h, "path")
				writePath(h, el.Path)
			}
			if el.Raster != nil {
				writeTag(h, "raster")
				writeUint64(h, uint64(el.Raster.Width))
				writeUint64(h, uint64(el.Raster.Height))
				for _, c := range el.Raster.Pix {
					writeColor(h, c)
				}
			}
		}
	case t.Equals(ColorType):
		writeTag(h, "color")
		writeColor(h, *v.EncapsulatedValue().(*Color))
	case t.Equals(TransformType):
		writeTag(h, "transform")
		writeTransform(h, *v.EncapsulatedValue().(*Transform))
	default:
		return fmt.Errorf("cannot digest capsule type %s", t.FriendlyName())
	}
	return nil
}

func writePath(h hash.Hash, p *Path) {
	writeUint64(h, uint64(len(p.Subpaths)))
	for _, sp := range p.Subpaths {
		if sp.Closed {
			writeUint64(h, 1)
		} else {
			writeUint64(h, 0)
		}
		writeUint64(h, uint64(len(sp.Points)))
		for _, pt := range sp.Points {
			writeFloat64(h, pt.X)
			writeFloat64(h, pt.Y)
		}
	}
	if p.Style.Fill != nil {
		writeTag(h, "fill")
		writeColor(h, *p.Style.Fill)
	}
	if p.Style.Stroke != nil {
		writeTag(h, "stroke")
		writeColor(h, *p.Style.Stroke)
		writeFloat64(h, p.Style.StrokeWidth)
	}
}

func writeColor(h hash.Hash, c Color) {
	writeFloat64(h, c.R)
	writeFloat64(h, c.G)
	writeFloat64(h, c.B)
	writeFloat64(h, c.A)
}

func writeTransform(h hash.Hash, t Transform) {
	writeFloat64(h, t.A)
	writeFloat64(h, t.B)
	writeFloat64(h, t.C)
	writeFloat64(h, t.D)
	writeFloat64(h, t.E)
	writeFloat64(h, t.F)
}

func writeTag(h hash.Hash, tag string) {
	writeUint64(h, uint64(len(tag)))
	h.Write([]byte(tag))
}

func writeBytes(h hash.Hash, b []byte) {
	writeUint64(h, uint64(len(b)))
	h.Write(b)
}

func writeUint64(h hash.Hash, n uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	h.Write(buf[:])
}

func writeFloat64(h hash.Hash, f float64) {
	writeUint64(h, math.Float64bits(f))
}
