// Package ingest parses the points and queries input files and, as an
// alternate point source, reads a PostGIS table. None of this affects the
// semantics of the BKD forest core; it only produces the []geom.Point and
// []geom.Box values the core is built and queried with.
package ingest

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kass/bkd-geo-index/pkg/geom"
)

// ParseError reports a single malformed line, carrying enough context for
// the caller to report the offending line verbatim.
type ParseError struct {
	File string
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v: %q", e.File, e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LoadPoints reads a points file: one record per line, whitespace
// separated, three fields "id latitude longitude". Any malformed or
// out-of-range line aborts the whole load with a *ParseError describing
// the offending line.
func LoadPoints(path string) ([]geom.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: opening points file: %w", err)
	}
	defer f.Close()

	var points []geom.Point
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		p, err := parsePointLine(line)
		if err != nil {
			return nil, &ParseError{File: path, Line: lineNum, Text: line, Err: err}
		}
		points = append(points, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: reading points file: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("ingest: %s contains no points", path)
	}

	return points, nil
}

var errBlankLine = fmt.Errorf("blank line")
var errWrongArity = fmt.Errorf("expected 3 fields: id latitude longitude")

func parsePointLine(line string) (geom.Point, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return geom.Point{}, errBlankLine
	}
	if len(fields) != 3 {
		return geom.Point{}, errWrongArity
	}

	id := fields[0]
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("invalid latitude %q: %w", fields[1], err)
	}
	lon, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("invalid longitude %q: %w", fields[2], err)
	}

	if !geom.CheckLatitude(lat) {
		return geom.Point{}, fmt.Errorf("latitude %v out of range [-90,90]", lat)
	}
	if !geom.CheckLongitude(lon) {
		return geom.Point{}, fmt.Errorf("longitude %v out of range [-180,180]", lon)
	}

	return geom.Point{ID: id, Lon: lon, Lat: lat}, nil
}
