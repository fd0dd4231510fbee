// Package proximity runs batches of independent closest-point queries between convex
// shapes. The algorithms themselves live in the subpackages: simplex, gjk, shape,
// bounding and partitioning.
package proximity

import (
	"github.com/akmonengine/proximity/gjk"
	"github.com/akmonengine/proximity/partitioning"
	"github.com/akmonengine/proximity/shape"
)

const DEFAULT_WORKERS = 1

// Query is a pair of positioned shapes whose closest points are wanted.
type Query struct {
	TransformA shape.Transform
	ShapeA     shape.SupportMap
	TransformB shape.Transform
	ShapeB     shape.SupportMap
}

// ClosestPointsAll runs gjk.ClosestPoints on every query, spread over workers goroutines.
// results[i] answers queries[i]. A non-positive workers count falls back to
// DEFAULT_WORKERS. Invalid options panic before any query starts.
//
// Queries share nothing but the simplex pools: each one runs on its own simplex, so the
// results are identical to running the queries one after another.
func ClosestPointsAll(queries []Query, workers int, opts gjk.Options) []gjk.Result {
	if err := opts.Validate(); err != nil {
		panic(err)
	}
	if workers <= 0 {
		workers = DEFAULT_WORKERS
	}

	results := make([]gjk.Result, len(queries))
	task(workers, queries, func(i int, q Query) {
		smp := gjk.AcquireSimplex(q.TransformA.Dimension())
		defer gjk.ReleaseSimplex(smp)

		results[i] = gjk.ClosestPoints(q.TransformA, q.ShapeA, q.TransformB, q.ShapeB, smp, opts)
	})
	return results
}

// PairQueries turns candidate pairs, typically produced by a dual-tree traversal, into
// queries. lookup returns the placed shape behind a payload.
func PairQueries[T any](pairs []partitioning.Pair[T], lookup func(T) (shape.Transform, shape.SupportMap)) []Query {
	queries := make([]Query, len(pairs))
	for i, pair := range pairs {
		queries[i].TransformA, queries[i].ShapeA = lookup(pair.A)
		queries[i].TransformB, queries[i].ShapeB = lookup(pair.B)
	}
	return queries
}
