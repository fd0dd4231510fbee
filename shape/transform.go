package shape

import (
	"math"

	"github.com/akmonengine/proximity/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Transform places a shape in n-dimensional space: a rotation followed by a translation.
// A nil Rotation is the identity, which is the common case and skips the matrix products.
type Transform struct {
	Position *mgl64.VecN
	Rotation *mgl64.MatMxN // orthonormal n×n matrix
}

// Identity creates an identity transform
func Identity(n int) Transform {
	return Transform{Position: geom.Zero(n)}
}

func Translation(position *mgl64.VecN) Transform {
	return Transform{Position: position}
}

// FromVec3Quat builds a 3D transform from a position and an orientation quaternion.
func FromVec3Quat(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	m := rotation.Normalize().Mat4().Mat3()
	return Transform{
		Position: geom.FromVec3(position),
		Rotation: mgl64.NewMatrixFromData(m[:], 3, 3),
	}
}

// FromVec2Angle builds a 2D transform from a position and a rotation angle in radians.
func FromVec2Angle(position mgl64.Vec2, angle float64) Transform {
	m := mgl64.Rotate2D(angle)
	return Transform{
		Position: geom.FromVec2(position),
		Rotation: mgl64.NewMatrixFromData(m[:], 2, 2),
	}
}

func (t Transform) Dimension() int {
	return t.Position.Size()
}

// Rotate applies the rotation only.
func (t Transform) Rotate(v *mgl64.VecN) *mgl64.VecN {
	if t.Rotation == nil {
		return geom.Clone(v)
	}
	return t.Rotation.MulNx1(nil, v)
}

// InverseRotate applies the inverse rotation, which is the transpose for an orthonormal matrix.
func (t Transform) InverseRotate(v *mgl64.VecN) *mgl64.VecN {
	if t.Rotation == nil {
		return geom.Clone(v)
	}
	return t.Rotation.Transpose(nil).MulNx1(nil, v)
}

// Apply maps a point from local to world space.
func (t Transform) Apply(p *mgl64.VecN) *mgl64.VecN {
	return t.Rotate(p).Add(nil, t.Position)
}

// Translated returns the transform moved by delta.
func (t Transform) Translated(delta *mgl64.VecN) Transform {
	return Transform{Position: t.Position.Add(nil, delta), Rotation: t.Rotation}
}

// PlaneRotation returns the n×n rotation by angle radians in the plane of axes i and j,
// leaving every other axis untouched. In 2D, PlaneRotation(2, 0, 1, a) is the usual
// counter-clockwise rotation.
func PlaneRotation(n, i, j int, angle float64) *mgl64.MatMxN {
	if i == j || i < 0 || j < 0 || i >= n || j >= n {
		panic("shape: invalid rotation plane")
	}

	// Column-major storage: element (row, col) lives at col*n+row.
	data := make([]float64, n*n)
	for k := 0; k < n; k++ {
		data[k*n+k] = 1
	}
	sin, cos := math.Sincos(angle)
	data[i*n+i] = cos
	data[j*n+j] = cos
	data[i*n+j] = sin
	data[j*n+i] = -sin

	return mgl64.NewMatrixFromData(data, n, n)
}
