package kdb

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/kass/bkd-geo-index/pkg/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pts(ids []string, lons, lats []float64) []geom.Point {
	out := make([]geom.Point, len(ids))
	for i := range ids {
		out[i] = geom.Point{ID: ids[i], Lon: lons[i], Lat: lats[i]}
	}
	return out
}

func TestLevelCount(t *testing.T) {
	cases := []struct {
		n, maxDocsPerLeaf, want int
	}{
		{1, 2, 1},
		{2, 2, 1},
		{3, 2, 2},
		{4, 2, 2},
		{5, 2, 3},
		{1024, 1024, 1},
		{1025, 1024, 2},
		{100, 8, 5},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, levelCount(c.n, c.maxDocsPerLeaf))
	}
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	_, err := Build(nil, 0, 0, 4, false)
	assert.Error(t, err)

	points := pts([]string{"1"}, []float64{0}, []float64{0})
	_, err = Build(points, 0, 1, 1, false)
	assert.Error(t, err)
}

func TestLeafOccupancy(t *testing.T) {
	n := 37
	maxDocsPerLeaf := 4
	points := make([]geom.Point, n)
	for i := range points {
		points[i] = geom.Point{ID: "x", Lon: float64(i), Lat: 0}
	}

	tr, err := Build(points, 0, n, maxDocsPerLeaf, false)
	require.NoError(t, err)

	total := 0
	minSize := n
	maxSize := 0
	for i := 0; i < tr.NumLeaves(); i++ {
		size := tr.LeafSize(i)
		total += size
		if size < minSize {
			minSize = size
		}
		if size > maxSize {
			maxSize = size
		}
	}
	assert.Equal(t, n, total)
	assert.LessOrEqual(t, maxSize-minSize, 1)
}

func TestBoundingBoxRollup(t *testing.T) {
	n := 500
	r := rand.New(rand.NewSource(1))
	points := make([]geom.Point, n)
	for i := range points {
		points[i] = geom.Point{
			ID:  "p",
			Lon: r.Float64()*360 - 180,
			Lat: r.Float64()*180 - 90,
		}
	}

	tr, err := Build(points, 0, n, 8, false)
	require.NoError(t, err)

	for level := tr.maxLevel - 1; level >= 1; level-- {
		lo := 1 << (level - 1)
		hi := (1 << level) - 1
		for node := lo; node <= hi; node++ {
			left, right := 2*node, 2*node+1
			wantMin := geom.Point{
				Lon: fmin(tr.minBounds[left-1].Lon, tr.minBounds[right-1].Lon),
				Lat: fmin(tr.minBounds[left-1].Lat, tr.minBounds[right-1].Lat),
			}
			wantMax := geom.Point{
				Lon: fmax(tr.maxBounds[left-1].Lon, tr.maxBounds[right-1].Lon),
				Lat: fmax(tr.maxBounds[left-1].Lat, tr.maxBounds[right-1].Lat),
			}
			assert.Equal(t, wantMin, tr.minBounds[node-1])
			assert.Equal(t, wantMax, tr.maxBounds[node-1])
		}
	}
}

func TestContainsMatchesBruteForce(t *testing.T) {
	n := 2000
	r := rand.New(rand.NewSource(42))
	points := make([]geom.Point, n)
	for i := range points {
		points[i] = geom.Point{
			ID:  "p",
			Lon: r.Float64()*360 - 180,
			Lat: r.Float64()*180 - 90,
		}
	}
	original := make([]geom.Point, n)
	copy(original, points)

	tr, err := Build(points, 0, n, 16, false)
	require.NoError(t, err)

	query := geom.Box{
		Upper: geom.Point{Lon: 40, Lat: 40},
		Lower: geom.Point{Lon: -40, Lat: -40},
	}

	collector := NewCollector(0)
	tr.Contains(query.Upper, query.Lower, collector)

	want := 0
	for _, p := range original {
		if geom.PointInBox(query, p) {
			want++
		}
	}
	assert.Equal(t, want, collector.Len())
}

func TestScenario1FourCorners(t *testing.T) {
	points := pts(
		[]string{"1", "2", "3", "4", "5", "6", "7", "8"},
		[]float64{0, 0, 1, 1, 30, 0, 30, 40},
		[]float64{0, 1, 0, 1, 0, 30, 30, 40},
	)

	tr, err := Build(points, 0, len(points), 2, false)
	require.NoError(t, err)

	c := NewCollector(0)
	tr.Contains(geom.Point{Lon: 2, Lat: 2}, geom.Point{Lon: -2, Lat: -2}, c)

	ids := map[string]bool{}
	for _, p := range c.Points() {
		ids[p.ID] = true
	}
	assert.Len(t, c.Points(), 4)
	for _, want := range []string{"1", "2", "3", "4"} {
		assert.True(t, ids[want])
	}
}

func TestWithinShortCircuitsToSliceAppend(t *testing.T) {
	n := 64
	points := make([]geom.Point, n)
	for i := range points {
		points[i] = geom.Point{ID: "p", Lon: float64(i) / 10, Lat: float64(i) / 20}
	}

	tr, err := Build(points, 0, n, 4, false)
	require.NoError(t, err)

	c := NewCollector(0)
	tr.Contains(geom.Point{Lon: 1000, Lat: 1000}, geom.Point{Lon: -1000, Lat: -1000}, c)
	assert.Equal(t, n, c.Len())
}

func TestIdempotence(t *testing.T) {
	n := 300
	r := rand.New(rand.NewSource(7))
	points := make([]geom.Point, n)
	for i := range points {
		points[i] = geom.Point{ID: "p", Lon: r.Float64()*360 - 180, Lat: r.Float64()*180 - 90}
	}
	tr, err := Build(points, 0, n, 8, false)
	require.NoError(t, err)

	query := geom.Box{Upper: geom.Point{Lon: 10, Lat: 10}, Lower: geom.Point{Lon: -10, Lat: -10}}

	c1 := NewCollector(0)
	tr.Contains(query.Upper, query.Lower, c1)
	c2 := NewCollector(0)
	tr.Contains(query.Upper, query.Lower, c2)

	assert.Equal(t, len(c1.Points()), len(c2.Points()))

	idsOf := func(c *Collector) []string {
		var ids []string
		for _, p := range c.Points() {
			ids = append(ids, p.ID)
		}
		sort.Strings(ids)
		return ids
	}
	assert.Equal(t, idsOf(c1), idsOf(c2))
}
