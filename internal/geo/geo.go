// Package geo provides planar geometry helpers over orb types.
//
// All math operates in raw degree space (lon/lat treated as x/y), which is
// an acceptable approximation at city scale. Distances returned by these
// helpers are in degrees, not meters.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Circle approximates a circle of the given radius around center as a
// closed ring with the given number of segments, counterclockwise.
func Circle(center orb.Point, radius float64, segments int) orb.Ring {
	if segments < 3 {
		segments = 3
	}
	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		angle := 2 * math.Pi * float64(i) / float64(segments)
		ring = append(ring, orb.Point{
			center[0] + radius*math.Cos(angle),
			center[1] + radius*math.Sin(angle),
		})
	}
	ring = append(ring, ring[0])
	return ring
}

// SegmentBound returns the axis-aligned bounding box of the segment ab.
func SegmentBound(a, b orb.Point) orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Min(a[0], b[0]), math.Min(a[1], b[1])},
		Max: orb.Point{math.Max(a[0], b[0]), math.Max(a[1], b[1])},
	}
}

// PointSegmentDistance returns the distance from p to the segment ab.
func PointSegmentDistance(p, a, b orb.Point) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	if dx == 0 && dy == 0 {
		return planar.Distance(p, a)
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / (dx*dx + dy*dy)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return planar.Distance(p, orb.Point{a[0] + t*dx, a[1] + t*dy})
}

// SegmentsIntersect reports whether segments p1p2 and q1q2 intersect,
// including touching endpoints and collinear overlap.
func SegmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}

	// Collinear cases.
	if o1 == 0 && onSegment(p1, q1, p2) {
		return true
	}
	if o2 == 0 && onSegment(p1, q2, p2) {
		return true
	}
	if o3 == 0 && onSegment(q1, p1, q2) {
		return true
	}
	if o4 == 0 && onSegment(q1, p2, q2) {
		return true
	}
	return false
}

// orientation returns 0 for collinear points, 1 for clockwise and -1 for
// counterclockwise ordering of the triplet (p, q, r).
func orientation(p, q, r orb.Point) int {
	v := (q[1]-p[1])*(r[0]-q[0]) - (q[0]-p[0])*(r[1]-q[1])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether q lies on the segment pr, assuming the three
// points are collinear.
func onSegment(p, q, r orb.Point) bool {
	return q[0] <= math.Max(p[0], r[0]) && q[0] >= math.Min(p[0], r[0]) &&
		q[1] <= math.Max(p[1], r[1]) && q[1] >= math.Min(p[1], r[1])
}

// LineIntersectsPolygon reports whether the line shares any point with the
// polygon: a vertex inside it, or an edge crossing any of its rings.
func LineIntersectsPolygon(line orb.LineString, poly orb.Polygon) bool {
	if len(line) == 0 || len(poly) == 0 {
		return false
	}
	bound := poly.Bound()
	for _, pt := range line {
		if bound.Contains(pt) && planar.PolygonContains(poly, pt) {
			return true
		}
	}
	for i := 0; i < len(line)-1; i++ {
		for _, ring := range poly {
			for j := 0; j < len(ring)-1; j++ {
				if SegmentsIntersect(line[i], line[i+1], ring[j], ring[j+1]) {
					return true
				}
			}
		}
	}
	return false
}

// LineIntersectsMultiPolygon reports whether the line intersects any member
// polygon.
func LineIntersectsMultiPolygon(line orb.LineString, mp orb.MultiPolygon) bool {
	for _, poly := range mp {
		if LineIntersectsPolygon(line, poly) {
			return true
		}
	}
	return false
}

// PolygonIntersectsBound reports whether the polygon and the box share any
// point.
func PolygonIntersectsBound(poly orb.Polygon, bound orb.Bound) bool {
	if len(poly) == 0 || !bound.Intersects(poly.Bound()) {
		return false
	}
	for _, pt := range poly[0] {
		if bound.Contains(pt) {
			return true
		}
	}
	boxRing := bound.ToRing()
	for _, corner := range boxRing {
		if planar.PolygonContains(poly, corner) {
			return true
		}
	}
	for _, ring := range poly {
		for i := 0; i < len(ring)-1; i++ {
			for j := 0; j < len(boxRing)-1; j++ {
				if SegmentsIntersect(ring[i], ring[i+1], boxRing[j], boxRing[j+1]) {
					return true
				}
			}
		}
	}
	return false
}

// SegmentPolygonDistance returns the minimum distance between the segment ab
// and the polygon, zero when they intersect.
func SegmentPolygonDistance(a, b orb.Point, poly orb.Polygon) float64 {
	if len(poly) == 0 {
		return math.Inf(1)
	}
	if LineIntersectsPolygon(orb.LineString{a, b}, poly) {
		return 0
	}

	// For disjoint shapes the minimum is attained at a vertex of one of
	// them, so checking ring vertices against the segment and segment
	// endpoints against ring edges is exact.
	min := math.Inf(1)
	for _, ring := range poly {
		for i, pt := range ring {
			if d := PointSegmentDistance(pt, a, b); d < min {
				min = d
			}
			if i < len(ring)-1 {
				if d := PointSegmentDistance(a, pt, ring[i+1]); d < min {
					min = d
				}
				if d := PointSegmentDistance(b, pt, ring[i+1]); d < min {
					min = d
				}
			}
		}
	}
	return min
}
