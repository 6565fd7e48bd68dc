// Package kdb implements a single static, complete binary KDB tree over a
// contiguous slice of a shared point array. A tree is bulk-built once from
// a sorted-or-unsorted input slice and is immutable and read-only
// thereafter; navigation is implicit (left=2n, right=2n+1, parent=n/2) over
// flat bounds arrays indexed by nodeId-1, so there is no pointer-chasing
// and no per-tree mutable cursor state.
package kdb

import (
	"fmt"
	"sort"

	"github.com/kass/bkd-geo-index/pkg/geom"
)

// Tree is a static KDB tree over points[start:end]. Points is shared with
// sibling trees in a forest; Tree sorts only its own slice during
// construction and only reads it afterward.
type Tree struct {
	points []geom.Point
	start  int
	end    int

	maxLevel  int
	numLeaves int
	minDocs   int
	extras    int

	minBounds []geom.Point
	maxBounds []geom.Point
}

// Build bulk-constructs a KDB tree over points[start:end]. maxDocsPerLeaf
// must be >= 2 and the slice must be non-empty. If sorted is true, the
// slice is assumed already sorted by longitude ascending (as a forest
// guarantees for every tree after its own single whole-sequence sort) and
// the longitude sort pass is skipped.
func Build(points []geom.Point, start, end, maxDocsPerLeaf int, sorted bool) (*Tree, error) {
	n := end - start
	if n <= 0 {
		return nil, fmt.Errorf("kdb: empty slice [%d,%d)", start, end)
	}
	if maxDocsPerLeaf < 2 {
		return nil, fmt.Errorf("kdb: maxDocsPerLeaf must be >= 2, got %d", maxDocsPerLeaf)
	}

	t := &Tree{points: points, start: start, end: end}
	t.maxLevel = levelCount(n, maxDocsPerLeaf)
	t.numLeaves = 1 << (t.maxLevel - 1)
	t.minDocs = n / t.numLeaves
	t.extras = n % t.numLeaves

	slice := points[start:end]

	if !sorted {
		sort.SliceStable(slice, func(i, j int) bool {
			return slice[i].Lon < slice[j].Lon
		})
	}

	t.sortLeafGroupsByLatitude(slice)

	numNodes := 2*t.numLeaves - 1
	t.minBounds = make([]geom.Point, numNodes)
	t.maxBounds = make([]geom.Point, numNodes)

	t.computeLeafBounds()
	t.computeInternalBounds()

	return t, nil
}

// levelCount returns the smallest L>=1 such that 2^(L-1)*maxDocsPerLeaf >= n.
func levelCount(n, maxDocsPerLeaf int) int {
	level := 1
	for (1<<(level-1))*maxDocsPerLeaf < n {
		level++
	}
	return level
}

// leafStart returns the start offset (relative to t.start) of leaf i, for
// i in [0, numLeaves]; leafStart(numLeaves) == end-start.
func (t *Tree) leafStart(i int) int {
	return i*t.minDocs + minInt(i, t.extras)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// sortLeafGroupsByLatitude splits slice into P=2^(maxLevel/2) equal leaf
// groups (each spanning numLeaves/P consecutive leaves) and sorts each
// group independently by latitude ascending.
func (t *Tree) sortLeafGroupsByLatitude(slice []geom.Point) {
	p := 1 << (t.maxLevel / 2)
	if p > t.numLeaves {
		p = t.numLeaves
	}
	leavesPerGroup := t.numLeaves / p

	for g := 0; g < p; g++ {
		firstLeaf := g * leavesPerGroup
		lastLeaf := firstLeaf + leavesPerGroup
		if g == p-1 {
			lastLeaf = t.numLeaves
		}
		lo := t.leafStart(firstLeaf)
		hi := t.leafStart(lastLeaf)
		group := slice[lo:hi]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Lat < group[j].Lat
		})
	}
}

// nodeLeafRange returns the [firstLeaf, lastLeaf) range of leaves under
// node n, using the complete-tree property: at level ℓ (root=1), n is the
// k = (n - 2^(ℓ-1))-th node on its level, with leaf range
// [k*2^(maxLevel-ℓ), (k+1)*2^(maxLevel-ℓ)).
func (t *Tree) nodeLeafRange(n int) (int, int) {
	level := nodeLevel(n)
	k := n - (1 << (level - 1))
	span := 1 << (t.maxLevel - level)
	return k * span, (k + 1) * span
}

func nodeLevel(n int) int {
	level := 0
	for m := n; m > 0; m >>= 1 {
		level++
	}
	return level
}

// sliceOf returns the [start,end) slice (relative to t.points) owned by
// node n.
func (t *Tree) sliceOf(n int) (int, int) {
	firstLeaf, lastLeaf := t.nodeLeafRange(n)
	return t.start + t.leafStart(firstLeaf), t.start + t.leafStart(lastLeaf)
}

func (t *Tree) computeLeafBounds() {
	for i := 0; i < t.numLeaves; i++ {
		lo := t.start + t.leafStart(i)
		hi := t.start + t.leafStart(i+1)
		nodeID := t.numLeaves + i

		min, max := boundsOf(t.points[lo:hi])
		t.minBounds[nodeID-1] = min
		t.maxBounds[nodeID-1] = max
	}
}

func boundsOf(pts []geom.Point) (geom.Point, geom.Point) {
	mn := geom.Point{Lon: pts[0].Lon, Lat: pts[0].Lat}
	mx := geom.Point{Lon: pts[0].Lon, Lat: pts[0].Lat}
	for _, p := range pts[1:] {
		if p.Lon < mn.Lon {
			mn.Lon = p.Lon
		}
		if p.Lat < mn.Lat {
			mn.Lat = p.Lat
		}
		if p.Lon > mx.Lon {
			mx.Lon = p.Lon
		}
		if p.Lat > mx.Lat {
			mx.Lat = p.Lat
		}
	}
	return mn, mx
}

func (t *Tree) computeInternalBounds() {
	for level := t.maxLevel - 1; level >= 1; level-- {
		lo := 1 << (level - 1)
		hi := (1 << level) - 1
		for n := lo; n <= hi; n++ {
			left, right := 2*n, 2*n+1
			lMin, rMin := t.minBounds[left-1], t.minBounds[right-1]
			lMax, rMax := t.maxBounds[left-1], t.maxBounds[right-1]

			t.minBounds[n-1] = geom.Point{Lon: fmin(lMin.Lon, rMin.Lon), Lat: fmin(lMin.Lat, rMin.Lat)}
			t.maxBounds[n-1] = geom.Point{Lon: fmax(lMax.Lon, rMax.Lon), Lat: fmax(lMax.Lat, rMax.Lat)}
		}
	}
}

func fmin(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func fmax(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// isLeaf reports whether nodeId is a leaf: nodeId >= numLeaves.
func (t *Tree) isLeaf(nodeID int) bool {
	return nodeID >= t.numLeaves
}

// boxOf returns node n's rolled-up bounding box.
func (t *Tree) boxOf(n int) geom.Box {
	return geom.Box{Upper: t.maxBounds[n-1], Lower: t.minBounds[n-1]}
}

// Contains walks the implicit tree starting at the root, appending every
// point inside [upper,lower] to collector. nodeId is passed as a recursion
// parameter rather than stored as mutable tree state, so concurrent calls
// against the same *Tree (each with its own collector) are safe.
func (t *Tree) Contains(upper, lower geom.Point, collector *Collector) {
	t.contains(1, geom.Box{Upper: upper, Lower: lower}, collector)
}

func (t *Tree) contains(n int, query geom.Box, collector *Collector) {
	rel := geom.Relate(t.boxOf(n), query)
	switch rel {
	case geom.Disjoint:
		return
	case geom.Within:
		lo, hi := t.sliceOf(n)
		collector.AddAll(t.points[lo:hi])
		return
	}

	if t.isLeaf(n) {
		leaf := n - t.numLeaves
		lo := t.start + t.leafStart(leaf)
		hi := t.start + t.leafStart(leaf+1)
		for _, p := range t.points[lo:hi] {
			if geom.PointInBox(query, p) {
				collector.Add(p)
			}
		}
		return
	}

	t.contains(2*n, query, collector)
	t.contains(2*n+1, query, collector)
}

// NumLeaves returns the tree's leaf count, 2^(maxLevel-1).
func (t *Tree) NumLeaves() int { return t.numLeaves }

// MaxLevel returns the tree's level count (root is level 1).
func (t *Tree) MaxLevel() int { return t.maxLevel }

// Start and End return the half-open slice range [Start,End) this tree
// owns within the shared point array.
func (t *Tree) Start() int { return t.start }
func (t *Tree) End() int   { return t.end }

// LeafSize returns the number of points leaf i owns.
func (t *Tree) LeafSize(i int) int {
	return t.leafStart(i+1) - t.leafStart(i)
}
