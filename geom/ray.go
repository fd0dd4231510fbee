package geom

import "github.com/go-gl/mathgl/mgl64"

// Ray is the half-line Origin + t*Dir, t >= 0.
type Ray struct {
	Origin *mgl64.VecN
	Dir    *mgl64.VecN
}

func NewRay(origin, dir *mgl64.VecN) Ray {
	MustSameDimension(origin, dir)
	return Ray{Origin: origin, Dir: dir}
}

// At returns the point reached at parameter t.
func (r Ray) At(t float64) *mgl64.VecN {
	return AddScaled(r.Origin, t, r.Dir)
}
