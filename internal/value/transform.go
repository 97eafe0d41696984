package value

import "math"

// Transform is a 2D affine transform:
//
//	| A C E |
//	| B D F |
//
// applied as x' = A*x + C*y + E, y' = B*x + D*y + F.
type Transform struct {
	A, B, C, D, E, F float64
}

// IdentityTransform returns the identity transform.
func IdentityTransform() Transform {
	return Transform{A: 1, D: 1}
}

// Translation returns a pure translation.
func Translation(tx, ty float64) Transform {
	return Transform{A: 1, D: 1, E: tx, F: ty}
}

// Rotation returns a rotation about the origin by the given angle in radians.
func Rotation(angle float64) Transform {
	sin, cos := math.Sincos(angle)
	return Transform{A: cos, B: sin, C: -sin, D: cos}
}

// Scaling returns a non-uniform scale about the origin.
func Scaling(sx, sy float64) Transform {
	return Transform{A: sx, D: sy}
}

// Shearing returns a horizontal/vertical shear about the origin.
func Shearing(shx, shy float64) Transform {
	return Transform{A: 1, B: shy, C: shx, D: 1}
}

// Mul composes the receiver with other, so the returned transform applies
// other first and the receiver second.
func (t Transform) Mul(other Transform) Transform {
	return Transform{
		A: t.A*other.A + t.C*other.B,
		B: t.B*other.A + t.D*other.B,
		C: t.A*other.C + t.C*other.D,
		D: t.B*other.C + t.D*other.D,
		E: t.A*other.E + t.C*other.F + t.E,
		F: t.B*other.E + t.D*other.F + t.F,
	}
}

// Apply transforms a single point.
func (t Transform) Apply(p Point) Point {
	return Point{
		X: t.A*p.X + t.C*p.Y + t.E,
		Y: t.B*p.X + t.D*p.Y + t.F,
	}
}

// Invert returns the inverse transform. ok is false for a degenerate
// transform that collapses the plane onto a line or point.
func (t Transform) Invert() (Transform, bool) {
	det := t.A*t.D - t.B*t.C
	if math.Abs(det) < 1e-12 {
		return Transform{}, false
	}
	inv := Transform{
		A: t.D / det,
		B: -t.B / det,
		C: -t.C / det,
		D: t.A / det,
	}
	inv.E = -(inv.A*t.E + inv.C*t.F)
	inv.F = -(inv.B*t.E + inv.D*t.F)
	return inv, true
}

// IsIdentity reports whether the transform is exactly the identity.
func (t Transform) IsIdentity() bool {
	return t == Transform{A: 1, D: 1}
}
