// Package bkd implements the BKD forest: a partitioning of a point array
// into one or more disjoint longitude bands, each indexed by its own
// static kdb.Tree. Queries dispatch to every tree in the forest and
// concatenate results; no dedup is needed because the trees' slices never
// overlap.
package bkd

import (
	"fmt"
	"sort"

	"github.com/kass/bkd-geo-index/pkg/geom"
	"github.com/kass/bkd-geo-index/pkg/kdb"
)

// tree is the single capability every member of a Forest must provide —
// see spec §9: "model this as a tiny behavior abstraction, not deep
// inheritance."
type tree interface {
	Contains(upper, lower geom.Point, collector *kdb.Collector)
}

// Forest is an ordered, immutable list of KDB trees whose slices partition
// the full point sequence in longitude-sorted order. Bulk-built once from
// the full input; never mutated afterward.
type Forest struct {
	points []geom.Point
	trees  []tree
}

// NewForest sorts points by longitude once and bites off successive
// full-or-tail KDB trees from the front until the whole sequence is
// consumed. points is sorted in place and becomes owned by the Forest.
func NewForest(points []geom.Point, maxDocsPerLeaf int) (*Forest, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("bkd: empty point sequence")
	}
	if maxDocsPerLeaf < 2 {
		return nil, fmt.Errorf("bkd: maxDocsPerLeaf must be >= 2, got %d", maxDocsPerLeaf)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Lon < points[j].Lon
	})

	f := &Forest{points: points}

	cursor := 0
	total := len(points)
	for cursor < total {
		remaining := total - cursor
		take := nextTreeSize(remaining, maxDocsPerLeaf)

		t, err := kdb.Build(points, cursor, cursor+take, maxDocsPerLeaf, true)
		if err != nil {
			return nil, fmt.Errorf("bkd: building tree at offset %d: %w", cursor, err)
		}
		f.trees = append(f.trees, t)
		cursor += take
	}

	return f, nil
}

// nextTreeSize returns how many points the next KDB tree should consume
// from a remaining run of length remaining: the whole remainder if it fits
// in one leaf-level node, otherwise half the capacity of the smallest
// power-of-two-leaf tree that could hold the whole remainder. When remaining
// is itself exactly a full tree's capacity, this takes half of it.
func nextTreeSize(remaining, maxDocsPerLeaf int) int {
	if remaining <= maxDocsPerLeaf {
		return remaining
	}

	level := 2
	for (1<<(level-1))*maxDocsPerLeaf < remaining {
		level++
	}
	return (1 << (level - 2)) * maxDocsPerLeaf
}

// Contains dispatches the query to every tree in the forest in order,
// appending results to a single collector.
func (f *Forest) Contains(upper, lower geom.Point, collector *kdb.Collector) {
	for _, t := range f.trees {
		t.Contains(upper, lower, collector)
	}
}

// NumTrees returns the number of KDB trees in the forest.
func (f *Forest) NumTrees() int { return len(f.trees) }

// Len returns the total number of points in the forest.
func (f *Forest) Len() int { return len(f.points) }
