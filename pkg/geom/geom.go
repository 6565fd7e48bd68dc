// Package geom provides pure functions over axis-aligned rectangles and
// points on the longitude-wrapped sphere: longitude in [-180,180] wraps
// modulo 360, latitude in [-90,90] never wraps.
package geom

// Relation is the outcome of comparing two boxes (or two 1-D intervals).
type Relation int

const (
	Disjoint Relation = iota
	Intersects
	Contains
	Within
)

func (r Relation) String() string {
	switch r {
	case Disjoint:
		return "DISJOINT"
	case Intersects:
		return "INTERSECTS"
	case Contains:
		return "CONTAINS"
	case Within:
		return "WITHIN"
	default:
		return "UNKNOWN"
	}
}

// Point is a longitude/latitude pair tagged with an opaque identifier.
type Point struct {
	ID  string
	Lon float64
	Lat float64
}

// Box is an axis-aligned bounding box given by its upper (maxLon, maxLat)
// and lower (minLon, minLat) corners. MaxLon < MinLon denotes a box that
// crosses the antimeridian: the longitude interval is [MinLon,180] ∪
// [-180,MaxLon]. A raw width of exactly 360 denotes the full longitude
// range.
type Box struct {
	Upper Point
	Lower Point
}

// NewBox builds a Box from explicit corner coordinates; the returned Box
// carries no ID.
func NewBox(maxLon, maxLat, minLon, minLat float64) Box {
	return Box{
		Upper: Point{Lon: maxLon, Lat: maxLat},
		Lower: Point{Lon: minLon, Lat: minLat},
	}
}

// CheckLongitude reports whether x is a valid longitude.
func CheckLongitude(x float64) bool {
	return x >= -180 && x <= 180
}

// CheckLatitude reports whether y is a valid latitude.
func CheckLatitude(y float64) bool {
	return y >= -90 && y <= 90
}

// CheckBox reports whether a box's corners are individually valid and its
// latitude span is non-inverted. Both corners are checked on both axes.
func CheckBox(b Box) bool {
	return CheckLongitude(b.Upper.Lon) && CheckLongitude(b.Lower.Lon) &&
		CheckLatitude(b.Upper.Lat) && CheckLatitude(b.Lower.Lat) &&
		b.Upper.Lat >= b.Lower.Lat
}

// PointInBox reports whether p lies inside b, handling an antimeridian
// crossing box (Upper.Lon < Lower.Lon).
func PointInBox(b Box, p Point) bool {
	if p.Lat < b.Lower.Lat || p.Lat > b.Upper.Lat {
		return false
	}

	minX := b.Lower.Lon
	maxX := b.Upper.Lon
	pX := p.Lon

	raw := maxX - minX
	if raw < 0 {
		maxX = minX + raw + 360
	}

	if pX < minX {
		pX += 360
	} else if pX <= maxX {
		return true
	} else {
		pX -= 360
	}

	return pX >= minX && pX <= maxX
}

// Relate computes the relation of box a to box b: DISJOINT, INTERSECTS,
// CONTAINS (a contains b) or WITHIN (a is within b).
func Relate(a, b Box) Relation {
	latRel := relate1D(a.Lower.Lat, a.Upper.Lat, b.Lower.Lat, b.Upper.Lat)
	if latRel == Disjoint {
		return Disjoint
	}

	lonRel := relateLongitude(a, b)
	if lonRel == Disjoint {
		return Disjoint
	}

	if latRel == lonRel {
		return latRel
	}

	if a.Lower.Lat == b.Lower.Lat && a.Upper.Lat == b.Upper.Lat {
		return lonRel
	}
	if a.Lower.Lon == b.Lower.Lon && a.Upper.Lon == b.Upper.Lon {
		return latRel
	}

	return Intersects
}

// relate1D computes the 1-D relation of interval a=[aMin,aMax] to interval
// b=[bMin,bMax] on a non-wrapping axis.
func relate1D(aMin, aMax, bMin, bMax float64) Relation {
	if bMin > aMax || bMax < aMin {
		return Disjoint
	}
	if bMin >= aMin && bMax <= aMax {
		return Contains
	}
	if bMin <= aMin && bMax >= aMax {
		return Within
	}
	return Intersects
}

// lonWidth returns a box's raw (possibly negative) longitude width.
func lonWidth(b Box) float64 {
	return b.Upper.Lon - b.Lower.Lon
}

// relateLongitude computes the 1-D relation of a's longitude span to b's,
// handling antimeridian wraparound.
func relateLongitude(a, b Box) Relation {
	aRaw := lonWidth(a)
	bRaw := lonWidth(b)

	if aRaw == 360 {
		return Contains
	}
	if bRaw == 360 {
		return Within
	}

	aMin, aMax := a.Lower.Lon, a.Upper.Lon
	if aRaw < 0 {
		aMax = aMin + aRaw + 360
	}
	bMin, bMax := b.Lower.Lon, b.Upper.Lon
	if bRaw < 0 {
		bMax = bMin + bRaw + 360
	}

	if bMin > aMax || bMax < aMin {
		// Still disjoint on the real line; one interval may lie entirely
		// left of the other purely because of where the wrap landed it.
		// Shift the left one by +360 and retry before giving up.
		if aMax < bMin {
			aMin += 360
			aMax += 360
		} else {
			bMin += 360
			bMax += 360
		}
		if bMin > aMax || bMax < aMin {
			return Disjoint
		}
	}

	return relate1D(aMin, aMax, bMin, bMax)
}
