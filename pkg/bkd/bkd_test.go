package bkd

import (
	"math/rand"
	"testing"

	"github.com/kass/bkd-geo-index/pkg/geom"
	"github.com/kass/bkd-geo-index/pkg/kdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPoints(n int, seed int64) []geom.Point {
	r := rand.New(rand.NewSource(seed))
	points := make([]geom.Point, n)
	for i := range points {
		points[i] = geom.Point{
			ID:  "p",
			Lon: r.Float64()*360 - 180,
			Lat: r.Float64()*180 - 90,
		}
	}
	return points
}

func TestNewForestRejectsInvalidInput(t *testing.T) {
	_, err := NewForest(nil, 4)
	assert.Error(t, err)

	_, err = NewForest(randomPoints(10, 1), 1)
	assert.Error(t, err)
}

func TestForestDisjointTreeSlices(t *testing.T) {
	points := randomPoints(10000, 3)
	f, err := NewForest(points, 64)
	require.NoError(t, err)

	cursor := 0
	for _, tr := range f.trees {
		kt := tr.(*kdb.Tree)
		assert.Equal(t, cursor, kt.Start())
		cursor = kt.End()
	}
	assert.Equal(t, len(points), cursor)
}

func TestForestOccupancyAtLeastHalf(t *testing.T) {
	points := randomPoints(50000, 4)
	maxDocsPerLeaf := 32
	f, err := NewForest(points, maxDocsPerLeaf)
	require.NoError(t, err)

	for i, tr := range f.trees {
		kt := tr.(*kdb.Tree)
		capacity := kt.NumLeaves() * maxDocsPerLeaf
		size := kt.End() - kt.Start()
		if i < len(f.trees)-1 {
			assert.GreaterOrEqual(t, size*2, capacity, "tree %d occupancy below 50%%", i)
		}
	}
}

func TestForestContainsMatchesBruteForce(t *testing.T) {
	points := randomPoints(20000, 5)
	original := make([]geom.Point, len(points))
	copy(original, points)

	f, err := NewForest(points, 50)
	require.NoError(t, err)

	queries := []geom.Box{
		{Upper: geom.Point{Lon: 20, Lat: 20}, Lower: geom.Point{Lon: -20, Lat: -20}},
		{Upper: geom.Point{Lon: 179, Lat: 10}, Lower: geom.Point{Lon: 150, Lat: -10}},
		{Upper: geom.Point{Lon: -170, Lat: 5}, Lower: geom.Point{Lon: 170, Lat: -5}}, // antimeridian
	}

	for _, q := range queries {
		c := kdb.NewCollector(0)
		f.Contains(q.Upper, q.Lower, c)

		want := 0
		for _, p := range original {
			if geom.PointInBox(q, p) {
				want++
			}
		}
		assert.Equal(t, want, c.Len())
	}
}

func TestForestConcurrentQueriesAreSafe(t *testing.T) {
	points := randomPoints(20000, 6)
	f, err := NewForest(points, 40)
	require.NoError(t, err)

	done := make(chan int, 64)
	for i := 0; i < 64; i++ {
		go func(seed int64) {
			r := rand.New(rand.NewSource(seed))
			upper := geom.Point{Lon: r.Float64() * 180, Lat: r.Float64() * 90}
			lower := geom.Point{Lon: upper.Lon - 20, Lat: upper.Lat - 20}

			c := kdb.NewCollector(0)
			f.Contains(upper, lower, c)
			done <- c.Len()
		}(int64(i))
	}

	for i := 0; i < 64; i++ {
		<-done
	}
}

func TestScenario2Antimeridian(t *testing.T) {
	points := []geom.Point{
		{ID: "1", Lon: -180, Lat: 0},
		{ID: "2", Lon: 179, Lat: 0},
		{ID: "3", Lon: -179, Lat: 0},
		{ID: "4", Lon: 180, Lat: 0},
		{ID: "5", Lon: -179, Lat: 1},
		{ID: "6", Lon: 179, Lat: 1},
		{ID: "7", Lon: 30, Lat: 0},
		{ID: "8", Lon: -40, Lat: 0},
	}

	f, err := NewForest(points, 2)
	require.NoError(t, err)

	c := kdb.NewCollector(0)
	f.Contains(geom.Point{Lon: -178, Lat: 2}, geom.Point{Lon: 178, Lat: -2}, c)

	ids := map[string]bool{}
	for _, p := range c.Points() {
		ids[p.ID] = true
	}
	assert.Len(t, c.Points(), 6)
	for _, want := range []string{"1", "2", "3", "4", "5", "6"} {
		assert.True(t, ids[want])
	}
}

func TestForestLargeRandomized(t *testing.T) {
	if testing.Short() {
		t.Skip("heavier randomized scenario skipped in -short mode")
	}

	n := 300000
	points := randomPoints(n, 99)
	original := make([]geom.Point, n)
	copy(original, points)

	f, err := NewForest(points, 1024)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(100))
	for i := 0; i < 100; i++ {
		centerLon := r.Float64()*360 - 180
		centerLat := r.Float64()*180 - 90
		half := r.Float64()*10 + 0.5

		q := geom.Box{
			Upper: geom.Point{Lon: centerLon + half, Lat: minF(centerLat+half, 90)},
			Lower: geom.Point{Lon: centerLon - half, Lat: maxF(centerLat-half, -90)},
		}
		if !geom.CheckBox(q) {
			continue
		}

		c := kdb.NewCollector(0)
		f.Contains(q.Upper, q.Lower, c)

		want := 0
		for _, p := range original {
			if geom.PointInBox(q, p) {
				want++
			}
		}
		assert.Equal(t, want, c.Len())
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
