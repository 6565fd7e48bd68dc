// Command bkdindex loads a static set of geo points into a BKD forest and
// answers bounding-box containment queries read from a queries file. See
// spec.md §6 for the exact file formats and program output.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kass/bkd-geo-index/internal/ingest"
	"github.com/kass/bkd-geo-index/pkg/bkd"
	"github.com/kass/bkd-geo-index/pkg/geom"
	"github.com/kass/bkd-geo-index/pkg/kdb"
)

const (
	defaultMaxDocsPerLeaf = 1024
	maxPrintedIDs         = 25
)

var rootCmd = &cobra.Command{
	Use:   "bkdindex <points-file> <queries-file> [maxDocsPerLeaf]",
	Short: "Bulk-load geo points into a BKD forest and answer bounding-box queries",
	Long: `bkdindex indexes a static set of (longitude, latitude) points into an
in-memory BKD forest of KDB trees and answers axis-aligned bounding-box
containment queries read from a queries file.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	pointsFile := args[0]
	queriesFile := args[1]

	maxDocsPerLeaf := defaultMaxDocsPerLeaf
	if len(args) == 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("maxDocsPerLeaf must be an integer: %w", err)
		}
		if n < 2 {
			return fmt.Errorf("maxDocsPerLeaf must be >= 2, got %d", n)
		}
		maxDocsPerLeaf = n
	}

	points, err := ingest.LoadPoints(pointsFile)
	if err != nil {
		log.Fatalf("failed to load points: %v", err)
	}
	log.Printf("loaded %d points from %s", len(points), pointsFile)

	forest, err := bkd.NewForest(points, maxDocsPerLeaf)
	if err != nil {
		log.Fatalf("failed to build forest: %v", err)
	}
	log.Printf("built forest of %d trees (maxDocsPerLeaf=%d)", forest.NumTrees(), maxDocsPerLeaf)

	queries, err := ingest.LoadQueries(queriesFile)
	if err != nil {
		log.Fatalf("failed to load queries: %v", err)
	}
	log.Printf("loaded %d valid queries from %s", len(queries), queriesFile)

	runQueries(forest, queries)
	return nil
}

func runQueries(forest *bkd.Forest, queries []geom.Box) {
	totalHits := 0
	start := time.Now()

	for _, q := range queries {
		qStart := time.Now()
		collector := kdb.NewCollector(0)
		forest.Contains(q.Upper, q.Lower, collector)
		elapsed := time.Since(qStart)

		hits := collector.Points()
		totalHits += len(hits)

		fmt.Printf("query [minLon=%v maxLon=%v minLat=%v maxLat=%v]: %d hits in %v\n",
			q.Lower.Lon, q.Upper.Lon, q.Lower.Lat, q.Upper.Lat, len(hits), elapsed)

		printed := hits
		truncated := false
		if len(printed) > maxPrintedIDs {
			printed = printed[:maxPrintedIDs]
			truncated = true
		}
		for _, p := range printed {
			fmt.Printf("  %s\n", p.ID)
		}
		if truncated {
			fmt.Println("  ...")
		}
	}

	elapsed := time.Since(start)
	qps := float64(len(queries)) / elapsed.Seconds()
	fmt.Printf("\ntotal: %d queries in %v (%.1f queries/sec), %d total hits\n",
		len(queries), elapsed, qps, totalHits)
}
