package kdb

import "github.com/kass/bkd-geo-index/pkg/geom"

// Collector accumulates query hits. A fresh Collector must be used per
// query; none of its state is shared across concurrent calls, which is
// what makes concurrent Contains calls against a single immutable tree or
// forest safe.
type Collector struct {
	points []geom.Point
}

// NewCollector returns an empty Collector, optionally pre-sized.
func NewCollector(capHint int) *Collector {
	return &Collector{points: make([]geom.Point, 0, capHint)}
}

// Add appends p to the collector.
func (c *Collector) Add(p geom.Point) {
	c.points = append(c.points, p)
}

// AddAll appends every point in ps.
func (c *Collector) AddAll(ps []geom.Point) {
	c.points = append(c.points, ps...)
}

// Points returns the accumulated hits, in the order they were collected.
func (c *Collector) Points() []geom.Point {
	return c.points
}

// Len returns the number of accumulated hits.
func (c *Collector) Len() int {
	return len(c.points)
}
