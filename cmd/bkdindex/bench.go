package main

import (
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/kass/bkd-geo-index/internal/ingest"
	"github.com/kass/bkd-geo-index/pkg/bkd"
	"github.com/kass/bkd-geo-index/pkg/geom"
	"github.com/kass/bkd-geo-index/pkg/kdb"
)

var (
	benchNumQueries     int
	benchWorkers        int
	benchMaxDocsPerLeaf int
	benchBoxSizeDegrees float64
)

var benchCmd = &cobra.Command{
	Use:   "bench <points-file>",
	Short: "Benchmark concurrent bounding-box queries against a built forest",
	Long: `bench builds a forest from a points file and fans random bounding-box
queries out across worker goroutines, each using its own collector, to
demonstrate that Contains is safe to call concurrently against a single
immutable forest.`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVarP(&benchNumQueries, "queries", "q", 1000, "Number of random queries to run")
	benchCmd.Flags().IntVarP(&benchWorkers, "workers", "w", runtime.NumCPU(), "Number of concurrent workers")
	benchCmd.Flags().IntVarP(&benchMaxDocsPerLeaf, "leaf-size", "l", defaultMaxDocsPerLeaf, "maxDocsPerLeaf for the forest")
	benchCmd.Flags().Float64VarP(&benchBoxSizeDegrees, "box-size", "b", 1.0, "Random query box size in degrees")
}

func runBench(cmd *cobra.Command, args []string) error {
	pointsFile := args[0]

	points, err := ingest.LoadPoints(pointsFile)
	if err != nil {
		log.Fatalf("failed to load points: %v", err)
	}
	log.Printf("loaded %d points from %s", len(points), pointsFile)

	forest, err := bkd.NewForest(points, benchMaxDocsPerLeaf)
	if err != nil {
		log.Fatalf("failed to build forest: %v", err)
	}
	log.Printf("built forest of %d trees with %d workers", forest.NumTrees(), benchWorkers)

	queries := randomQueryBoxes(benchNumQueries, benchBoxSizeDegrees)

	var totalResults atomic.Int64
	var completed atomic.Int64

	start := time.Now()

	var wg sync.WaitGroup
	perWorker := benchNumQueries / benchWorkers
	if perWorker < 1 {
		perWorker = 1
	}

	for w := 0; w < benchWorkers; w++ {
		lo := w * perWorker
		hi := lo + perWorker
		if w == benchWorkers-1 {
			hi = benchNumQueries
		}
		if lo >= hi {
			continue
		}

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()

			local := 0
			for i := lo; i < hi; i++ {
				collector := kdb.NewCollector(0)
				forest.Contains(queries[i].Upper, queries[i].Lower, collector)
				local += collector.Len()
				completed.Add(1)
			}
			totalResults.Add(int64(local))
		}(lo, hi)
	}

	wg.Wait()
	elapsed := time.Since(start)

	done := completed.Load()
	fmt.Println("\n=== Bench Results ===")
	fmt.Printf("Queries: %d\n", done)
	fmt.Printf("Workers: %d\n", benchWorkers)
	fmt.Printf("Total duration: %v\n", elapsed)
	fmt.Printf("Queries/sec: %.2f\n", float64(done)/elapsed.Seconds())
	fmt.Printf("Total hits: %d\n", totalResults.Load())
	fmt.Printf("Avg hits/query: %.2f\n", float64(totalResults.Load())/float64(done))

	return nil
}

func randomQueryBoxes(n int, boxSize float64) []geom.Box {
	boxes := make([]geom.Box, n)
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := range boxes {
		centerLon := r.Float64()*360 - 180
		centerLat := r.Float64()*170 - 85
		half := boxSize / 2

		boxes[i] = geom.NewBox(
			clampLon(centerLon+half),
			clampLat(centerLat+half),
			clampLon(centerLon-half),
			clampLat(centerLat-half),
		)
	}
	return boxes
}

func clampLon(v float64) float64 {
	if v > 180 {
		return 180
	}
	if v < -180 {
		return -180
	}
	return v
}

func clampLat(v float64) float64 {
	if v > 90 {
		return 90
	}
	if v < -90 {
		return -90
	}
	return v
}
