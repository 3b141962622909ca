package risk

import (
	"math"

	polyclip "github.com/ctessum/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"github.com/saferoute-nyc/saferoute/internal/geo"
)

// bufferUnion buffers every point by the radius and unions the circles.
// When the union splits into disjoint pieces only the largest by area is
// kept, so each cluster yields exactly one zone.
func bufferUnion(points []orb.Point, radius float64) (orb.Polygon, bool) {
	if len(points) == 0 {
		return nil, false
	}
	if len(points) == 1 {
		circle := geo.Circle(points[0], radius, circleSegments)
		return simplifyPolygon(orb.Polygon{circle}), true
	}

	union := polyclip.Polygon{circleContour(points[0], radius)}
	for _, pt := range points[1:] {
		union = union.Construct(polyclip.UNION, polyclip.Polygon{circleContour(pt, radius)})
	}

	pieces := assemblePieces(union)
	if len(pieces) == 0 {
		return nil, false
	}

	largest := pieces[0]
	largestArea := math.Abs(planar.Area(largest))
	for _, piece := range pieces[1:] {
		if a := math.Abs(planar.Area(piece)); a > largestArea {
			largest = piece
			largestArea = a
		}
	}
	return simplifyPolygon(largest), true
}

// circleContour approximates a circle as a polyclip contour. Contours are
// implicitly closed, so the ring's closing point is dropped.
func circleContour(center orb.Point, radius float64) polyclip.Contour {
	ring := geo.Circle(center, radius, circleSegments)
	contour := make(polyclip.Contour, 0, len(ring)-1)
	for _, pt := range ring[:len(ring)-1] {
		contour = append(contour, polyclip.Point{X: pt[0], Y: pt[1]})
	}
	return contour
}

type contourInfo struct {
	ring  orb.Ring
	area  float64
	depth int
}

// assemblePieces groups the clip result's contours into polygons. A contour
// contained by an even number of others is an exterior ring; odd-depth
// contours become holes of the smallest exterior containing them.
func assemblePieces(clipped polyclip.Polygon) []orb.Polygon {
	infos := make([]contourInfo, 0, len(clipped))
	for _, contour := range clipped {
		if len(contour) < 3 {
			continue
		}
		ring := make(orb.Ring, 0, len(contour)+1)
		for _, pt := range contour {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		ring = append(ring, ring[0])
		infos = append(infos, contourInfo{ring: ring, area: math.Abs(planar.Area(ring))})
	}

	for i := range infos {
		for j := range infos {
			if i == j {
				continue
			}
			if planar.RingContains(infos[j].ring, infos[i].ring[0]) {
				infos[i].depth++
			}
		}
	}

	pieces := make([]orb.Polygon, 0, len(infos))
	pieceIdx := make(map[int]int, len(infos))
	for i, info := range infos {
		if info.depth%2 != 0 {
			continue
		}
		ring := info.ring
		if ring.Orientation() == orb.CW {
			reverseRing(ring)
		}
		pieceIdx[i] = len(pieces)
		pieces = append(pieces, orb.Polygon{ring})
	}

	for i, info := range infos {
		if info.depth%2 == 0 {
			continue
		}
		parent, ok := smallestContaining(infos, i)
		if !ok {
			continue
		}
		idx, ok := pieceIdx[parent]
		if !ok {
			continue
		}
		ring := info.ring
		if ring.Orientation() == orb.CCW {
			reverseRing(ring)
		}
		pieces[idx] = append(pieces[idx], ring)
	}

	return pieces
}

// smallestContaining finds the exterior contour with the least area that
// contains contour i.
func smallestContaining(infos []contourInfo, i int) (int, bool) {
	best := -1
	for j := range infos {
		if j == i || infos[j].depth%2 != 0 {
			continue
		}
		if !planar.RingContains(infos[j].ring, infos[i].ring[0]) {
			continue
		}
		if best < 0 || infos[j].area < infos[best].area {
			best = j
		}
	}
	return best, best >= 0
}

// simplifyPolygon runs Douglas-Peucker over each ring, keeping the original
// ring whenever simplification would collapse it below a valid polygon.
func simplifyPolygon(poly orb.Polygon) orb.Polygon {
	s := simplify.DouglasPeucker(simplifyTolerance)
	out := make(orb.Polygon, 0, len(poly))
	for _, ring := range poly {
		ls, ok := s.Simplify(orb.LineString(ring.Clone())).(orb.LineString)
		if !ok || len(ls) < 4 {
			out = append(out, ring)
			continue
		}
		if ls[0] != ls[len(ls)-1] {
			ls = append(ls, ls[0])
		}
		out = append(out, orb.Ring(ls))
	}
	return out
}

func reverseRing(r orb.Ring) {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}
