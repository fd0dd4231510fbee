package partitioning

import (
	"github.com/akmonengine/proximity/bounding"
	"github.com/akmonengine/proximity/geom"
)

// VisitStatus tells a tree traversal whether to descend into an internal node.
type VisitStatus int

const (
	Continue VisitStatus = iota
	// Stop skips the children of the internal node just visited.
	Stop
)

// Visitor is called by BVT.Visit and DBVT.Visit.
type Visitor[B any, T any] interface {
	VisitInternal(volume B) VisitStatus
	VisitLeaf(volume B, payload T)
}

// RayInterferencesCollector collects the payloads of the leaves whose volume is hit by
// a ray before MaxToi.
type RayInterferencesCollector[B bounding.Volume[B], T any] struct {
	Ray    geom.Ray
	MaxToi float64
	Hits   []T
}

func NewRayInterferencesCollector[B bounding.Volume[B], T any](ray geom.Ray, maxToi float64) *RayInterferencesCollector[B, T] {
	return &RayInterferencesCollector[B, T]{Ray: ray, MaxToi: maxToi}
}

func (c *RayInterferencesCollector[B, T]) VisitInternal(volume B) VisitStatus {
	if volume.IntersectsRay(c.Ray, c.MaxToi) {
		return Continue
	}
	return Stop
}

func (c *RayInterferencesCollector[B, T]) VisitLeaf(volume B, payload T) {
	if volume.IntersectsRay(c.Ray, c.MaxToi) {
		c.Hits = append(c.Hits, payload)
	}
}

// VolumeInterferencesCollector collects the payloads of the leaves whose volume
// intersects Volume.
type VolumeInterferencesCollector[B bounding.Volume[B], T any] struct {
	Volume B
	Hits   []T
}

func NewVolumeInterferencesCollector[B bounding.Volume[B], T any](volume B) *VolumeInterferencesCollector[B, T] {
	return &VolumeInterferencesCollector[B, T]{Volume: volume}
}

func (c *VolumeInterferencesCollector[B, T]) VisitInternal(volume B) VisitStatus {
	if volume.Intersects(c.Volume) {
		return Continue
	}
	return Stop
}

func (c *VolumeInterferencesCollector[B, T]) VisitLeaf(volume B, payload T) {
	if volume.Intersects(c.Volume) {
		c.Hits = append(c.Hits, payload)
	}
}
