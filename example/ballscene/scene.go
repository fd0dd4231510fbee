package main

import (
	"math"
	"math/rand/v2"
	"os"

	"github.com/akmonengine/proximity/geom"
	"github.com/akmonengine/proximity/gjk"
	"github.com/akmonengine/proximity/simplex"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Scene describes a box of side 2*Extent centred on the origin, filled with moving balls
// and static oriented cuboids.
type Scene struct {
	Dimension int     `yaml:"dimension"`
	Extent    float64 `yaml:"extent"`
	Dt        float64 `yaml:"dt"`
	Steps     int     `yaml:"steps"`
	// Margin by which ball volumes are enlarged in the dynamic tree, so that small moves
	// do not require an update.
	Margin float64 `yaml:"margin"`

	GJK       GJKConfig        `yaml:"gjk"`
	Balls     []BallConfig     `yaml:"balls"`
	Obstacles []ObstacleConfig `yaml:"obstacles"`
}

// GJKConfig overrides the default GJK options. Zero fields keep the default.
type GJKConfig struct {
	MaxIterations     int     `yaml:"max_iterations"`
	Epsilon           float64 `yaml:"epsilon"`
	RelativeTolerance float64 `yaml:"relative_tolerance"`
}

type BallConfig struct {
	Position []float64 `yaml:"position"`
	Velocity []float64 `yaml:"velocity"`
	Radius   float64   `yaml:"radius"`
}

// ObstacleConfig is a cuboid, rotated by Angle radians in the plane of the first two axes.
type ObstacleConfig struct {
	Position    []float64 `yaml:"position"`
	HalfExtents []float64 `yaml:"half_extents"`
	Angle       float64   `yaml:"angle"`
}

func (c GJKConfig) Options() gjk.Options {
	opts := gjk.DefaultOptions()
	if c.MaxIterations != 0 {
		opts.MaxIterations = c.MaxIterations
	}
	if c.Epsilon != 0 {
		opts.Epsilon = c.Epsilon
	}
	if c.RelativeTolerance != 0 {
		opts.RelativeTolerance = c.RelativeTolerance
	}
	return opts
}

// LoadScene reads and validates a YAML scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scene %q", path)
	}

	var scene Scene
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return nil, errors.Wrapf(err, "decoding scene %q", path)
	}
	if err := scene.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid scene %q", path)
	}
	return &scene, nil
}

// Validate checks the whole scene and returns every problem found.
func (s *Scene) Validate() error {
	var err error
	if s.Dimension < 1 || s.Dimension > simplex.MaxDimension {
		err = multierr.Append(err, errors.Errorf("dimension must be within [1, %d], got %d", simplex.MaxDimension, s.Dimension))
	}
	if !(s.Extent > 0) {
		err = multierr.Append(err, errors.Errorf("extent must be positive, got %v", s.Extent))
	}
	if !(s.Dt > 0) {
		err = multierr.Append(err, errors.Errorf("dt must be positive, got %v", s.Dt))
	}
	if s.Steps < 0 {
		err = multierr.Append(err, errors.Errorf("steps must not be negative, got %d", s.Steps))
	}
	if s.Margin < 0 || math.IsNaN(s.Margin) {
		err = multierr.Append(err, errors.Errorf("margin must not be negative, got %v", s.Margin))
	}
	if optsErr := s.GJK.Options().Validate(); optsErr != nil {
		err = multierr.Append(err, errors.Wrap(optsErr, "gjk"))
	}

	for i, b := range s.Balls {
		if len(b.Position) != s.Dimension {
			err = multierr.Append(err, errors.Errorf("ball %d: position has %d coordinates, want %d", i, len(b.Position), s.Dimension))
		}
		if len(b.Velocity) != 0 && len(b.Velocity) != s.Dimension {
			err = multierr.Append(err, errors.Errorf("ball %d: velocity has %d coordinates, want %d", i, len(b.Velocity), s.Dimension))
		}
		if !(b.Radius > 0) {
			err = multierr.Append(err, errors.Errorf("ball %d: radius must be positive, got %v", i, b.Radius))
		}
	}

	for i, o := range s.Obstacles {
		if len(o.Position) != s.Dimension {
			err = multierr.Append(err, errors.Errorf("obstacle %d: position has %d coordinates, want %d", i, len(o.Position), s.Dimension))
		}
		if len(o.HalfExtents) != s.Dimension {
			err = multierr.Append(err, errors.Errorf("obstacle %d: half_extents has %d coordinates, want %d", i, len(o.HalfExtents), s.Dimension))
		} else if lo.SomeBy(o.HalfExtents, func(h float64) bool { return !(h > 0) }) {
			err = multierr.Append(err, errors.Errorf("obstacle %d: half_extents must be positive, got %v", i, o.HalfExtents))
		}
		if o.Angle != 0 && s.Dimension < 2 {
			err = multierr.Append(err, errors.Errorf("obstacle %d: cannot rotate in dimension %d", i, s.Dimension))
		}
	}

	return err
}

// RandomScene generates a valid scene with the given number of balls and obstacles.
func RandomScene(rng *rand.Rand, dimension, balls, obstacles int) *Scene {
	const extent = 50.0

	coords := func(scale float64) []float64 {
		return lo.Times(dimension, func(int) float64 {
			return (rng.Float64()*2 - 1) * scale
		})
	}

	scene := &Scene{
		Dimension: dimension,
		Extent:    extent,
		Dt:        0.05,
		Steps:     200,
		Margin:    0.5,
	}
	scene.Balls = lo.Times(balls, func(int) BallConfig {
		return BallConfig{
			Position: coords(extent * 0.9),
			Velocity: coords(10),
			Radius:   0.5 + rng.Float64()*2,
		}
	})
	scene.Obstacles = lo.Times(obstacles, func(int) ObstacleConfig {
		o := ObstacleConfig{
			Position: coords(extent * 0.8),
			HalfExtents: lo.Times(dimension, func(int) float64 {
				return 1 + rng.Float64()*4
			}),
		}
		if dimension >= 2 {
			o.Angle = rng.Float64() * math.Pi
		}
		return o
	})
	return scene
}

func toVec(coords []float64, dimension int) *mgl64.VecN {
	if len(coords) == 0 {
		return geom.Zero(dimension)
	}
	return geom.Vec(coords...)
}
