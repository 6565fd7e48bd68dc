package ingest

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/kass/bkd-geo-index/pkg/geom"
)

// LoadQueries reads a queries file: one query per line, four
// whitespace-separated doubles "minLat maxLat minLon maxLon". Lines with
// wrong arity, non-numeric fields, or that fail geom.CheckBox are logged
// as a warning and skipped; only a file-open/read error is fatal.
func LoadQueries(path string) ([]geom.Box, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: opening queries file: %w", err)
	}
	defer f.Close()

	var queries []geom.Box
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		box, err := parseQueryLine(line)
		if err != nil {
			log.Printf("ingest: %s:%d: skipping query %q: %v", path, lineNum, line, err)
			continue
		}
		queries = append(queries, box)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: reading queries file: %w", err)
	}

	return queries, nil
}

func parseQueryLine(line string) (geom.Box, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return geom.Box{}, fmt.Errorf("expected 4 fields: minLat maxLat minLon maxLon, got %d", len(fields))
	}

	vals := make([]float64, 4)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geom.Box{}, fmt.Errorf("invalid number %q: %w", f, err)
		}
		vals[i] = v
	}
	minLat, maxLat, minLon, maxLon := vals[0], vals[1], vals[2], vals[3]

	box := geom.NewBox(maxLon, maxLat, minLon, minLat)
	if !geom.CheckBox(box) {
		return geom.Box{}, fmt.Errorf("invalid box minLat=%v maxLat=%v minLon=%v maxLon=%v", minLat, maxLat, minLon, maxLon)
	}

	return box, nil
}
