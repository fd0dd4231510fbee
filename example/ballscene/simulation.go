package main

import (
	"math"

	"github.com/akmonengine/proximity"
	"github.com/akmonengine/proximity/bounding"
	"github.com/akmonengine/proximity/geom"
	"github.com/akmonengine/proximity/gjk"
	"github.com/akmonengine/proximity/partitioning"
	"github.com/akmonengine/proximity/shape"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type ball struct {
	transform shape.Transform
	shape     shape.Ball
	velocity  *mgl64.VecN

	handle partitioning.Handle
	// enlarged volume stored in the dynamic tree
	fat bounding.AABB
}

type obstacle struct {
	transform shape.Transform
	shape     shape.Cuboid
}

// StepReport summarises one simulation step.
type StepReport struct {
	Step int
	// Reinserted counts the balls that left their enlarged volume.
	Reinserted int
	// Candidates counts the pairs whose tree volumes overlap, ball-ball and ball-obstacle.
	Candidates    int
	Contacts      int
	NonConvergent int
	// MinDistance is the smallest gap between two separated balls, +Inf if none was measured.
	MinDistance float64
	Iterations  int
}

// Simulation moves balls inside the scene box. Balls are indexed by a DBVT updated every
// step, obstacles by a BVT built once. Candidate pairs come from the dual-tree traversals
// and are confirmed by GJK.
type Simulation struct {
	scene   *Scene
	opts    gjk.Options
	workers int
	logger  *zap.Logger

	balls     []*ball
	obstacles []obstacle

	dynamic *partitioning.DBVT[bounding.AABB, int]
	static  *partitioning.BVT[bounding.AABB, int] // nil without obstacles

	step int
}

func NewSimulation(scene *Scene, workers int, logger *zap.Logger) (*Simulation, error) {
	if err := scene.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid scene")
	}

	s := &Simulation{
		scene:   scene,
		opts:    scene.GJK.Options(),
		workers: workers,
		logger:  logger,
		dynamic: partitioning.NewDBVT[bounding.AABB, int](),
	}

	for i, cfg := range scene.Balls {
		b := &ball{
			transform: shape.Translation(toVec(cfg.Position, scene.Dimension)),
			shape:     shape.Ball{Radius: cfg.Radius},
			velocity:  toVec(cfg.Velocity, scene.Dimension),
		}
		b.fat = b.shape.AABB(b.transform).Loosened(scene.Margin)
		b.handle = s.dynamic.Insert(b.fat, i)
		s.balls = append(s.balls, b)
	}

	for _, cfg := range scene.Obstacles {
		t := shape.Translation(toVec(cfg.Position, scene.Dimension))
		if cfg.Angle != 0 {
			t.Rotation = shape.PlaneRotation(scene.Dimension, 0, 1, cfg.Angle)
		}
		s.obstacles = append(s.obstacles, obstacle{transform: t, shape: shape.Cuboid{HalfExtents: geom.Vec(cfg.HalfExtents...)}})
	}

	if len(s.obstacles) > 0 {
		leaves := lo.Map(s.obstacles, func(o obstacle, i int) partitioning.Leaf[bounding.AABB, int] {
			return partitioning.NewLeaf(shape.AABBOf(o.shape, o.transform), i)
		})
		// Split on the obstacle positions rather than on the box centres: rotated boxes
		// are centred on their position anyway.
		s.static = partitioning.NewBVT(leaves, partitioning.MedianPartitionerWithCenters(func(l partitioning.Leaf[bounding.AABB, int]) *mgl64.VecN {
			return s.obstacles[l.Payload].transform.Position
		}))
	}

	logger.Info("scene ready",
		zap.Int("dimension", scene.Dimension),
		zap.Int("balls", len(s.balls)),
		zap.Int("obstacles", len(s.obstacles)),
		zap.Int("dynamicTreeHeight", s.dynamic.Height()),
	)
	return s, nil
}

// Step advances the simulation by one time step.
func (s *Simulation) Step() StepReport {
	s.step++
	report := StepReport{Step: s.step, MinDistance: math.Inf(1)}

	report.Reinserted = s.integrate()

	ballPairs := s.dynamic.SelfPairs()
	var obstaclePairs []partitioning.Pair[int]
	if s.static != nil {
		obstaclePairs = partitioning.CrossPairs[bounding.AABB, int](s.static.Root(), s.dynamic.Root())
	}
	report.Candidates = len(ballPairs) + len(obstaclePairs)

	results := proximity.ClosestPointsAll(proximity.PairQueries(ballPairs, s.placedBall), s.workers, s.opts)
	for i, res := range results {
		a, b := s.balls[ballPairs[i].A], s.balls[ballPairs[i].B]
		s.record(&report, res, zap.Int("ballA", ballPairs[i].A), zap.Int("ballB", ballPairs[i].B))

		switch res.Status {
		case gjk.Intersecting:
			bounceBalls(a, b)
		case gjk.Converged:
			report.MinDistance = math.Min(report.MinDistance, res.Distance)
		}
	}

	queries := lo.Map(obstaclePairs, func(p partitioning.Pair[int], _ int) proximity.Query {
		o, b := s.obstacles[p.A], s.balls[p.B]
		return proximity.Query{TransformA: o.transform, ShapeA: o.shape, TransformB: b.transform, ShapeB: b.shape}
	})
	results = proximity.ClosestPointsAll(queries, s.workers, s.opts)
	for i, res := range results {
		s.record(&report, res, zap.Int("obstacle", obstaclePairs[i].A), zap.Int("ball", obstaclePairs[i].B))

		if res.Status == gjk.Intersecting {
			bounceObstacle(s.obstacles[obstaclePairs[i].A], s.balls[obstaclePairs[i].B])
		}
	}

	return report
}

func (s *Simulation) record(report *StepReport, res gjk.Result, fields ...zap.Field) {
	report.Iterations += res.Iterations
	switch res.Status {
	case gjk.Intersecting:
		report.Contacts++
	case gjk.NonConvergent:
		report.NonConvergent++
		s.logger.Warn("gjk did not converge",
			append(fields,
				zap.Int("step", s.step),
				zap.Stringer("status", res.Status),
				zap.Float64("distance", res.Distance),
				zap.Int("iterations", res.Iterations),
			)...,
		)
	}
}

func (s *Simulation) placedBall(i int) (shape.Transform, shape.SupportMap) {
	return s.balls[i].transform, s.balls[i].shape
}

// integrate moves every ball, bounces it off the walls of the scene box and refreshes
// its tree volume when needed. It returns the number of tree updates.
func (s *Simulation) integrate() int {
	reinserted := 0
	for _, b := range s.balls {
		position := geom.AddScaled(b.transform.Position, s.scene.Dt, b.velocity)

		for axis := 0; axis < s.scene.Dimension; axis++ {
			limit := s.scene.Extent - b.shape.Radius
			p, v := position.Get(axis), b.velocity.Get(axis)
			if (p > limit && v > 0) || (p < -limit && v < 0) {
				velocity := geom.Clone(b.velocity)
				velocity.Set(axis, -v)
				b.velocity = velocity
			}
		}
		b.transform = shape.Translation(position)

		tight := b.shape.AABB(b.transform)
		if !b.fat.Contains(tight) {
			b.fat = tight.Loosened(s.scene.Margin)
			s.dynamic.Update(b.handle, b.fat)
			reinserted++
		}
	}
	return reinserted
}

// bounceBalls exchanges the velocities of two approaching balls, as an elastic head-on
// collision between equal masses would.
func bounceBalls(a, b *ball) {
	relativeVelocity := b.velocity.Sub(nil, a.velocity)
	offset := b.transform.Position.Sub(nil, a.transform.Position)
	if relativeVelocity.Dot(offset) < 0 {
		a.velocity, b.velocity = b.velocity, a.velocity
	}
}

// bounceObstacle reverses a ball moving toward an obstacle.
func bounceObstacle(o obstacle, b *ball) {
	offset := b.transform.Position.Sub(nil, o.transform.Position)
	if b.velocity.Dot(offset) < 0 {
		b.velocity = geom.Neg(b.velocity)
	}
}

// CastRay returns the obstacles and the balls whose tree volumes are crossed by the ray
// before maxToi.
func (s *Simulation) CastRay(ray geom.Ray, maxToi float64) (obstacles, balls []int) {
	if s.static != nil {
		collector := partitioning.NewRayInterferencesCollector[bounding.AABB, int](ray, maxToi)
		s.static.Visit(collector)
		obstacles = collector.Hits
	}

	collector := partitioning.NewRayInterferencesCollector[bounding.AABB, int](ray, maxToi)
	s.dynamic.Visit(collector)
	return obstacles, collector.Hits
}

// BallsInside returns the balls whose tree volume intersects volume.
func (s *Simulation) BallsInside(volume bounding.AABB) []int {
	collector := partitioning.NewVolumeInterferencesCollector[bounding.AABB, int](volume)
	s.dynamic.Visit(collector)
	return collector.Hits
}

// Check validates the dynamic tree and verifies that no ball left the scene box.
func (s *Simulation) Check() error {
	if err := s.dynamic.CheckInvariants(); err != nil {
		return errors.Wrap(err, "dynamic tree")
	}

	box := bounding.NewAABB(geom.Splat(s.scene.Dimension, -s.scene.Extent), geom.Splat(s.scene.Dimension, s.scene.Extent))
	outside := s.scene.Extent * 0.1
	for i, b := range s.balls {
		if !box.Loosened(outside).ContainsPoint(b.transform.Position) {
			return errors.Errorf("ball %d escaped the scene at %v", i, b.transform.Position)
		}
	}
	return nil
}
