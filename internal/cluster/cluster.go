// Package cluster groups filtered incidents into density-based clusters
// using DBSCAN over raw lon/lat pairs in degree space.
package cluster

import (
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/saferoute-nyc/saferoute/internal/incident"
)

// Default clustering parameters.
const (
	// DefaultEps is the maximum neighbor distance in degrees, roughly 100m.
	DefaultEps = 0.001
	// DefaultMinSamples is the minimum neighborhood size for a core point.
	DefaultMinSamples = 3
)

// Params holds the DBSCAN parameters.
type Params struct {
	Eps        float64
	MinSamples int
}

// DefaultParams returns the standard clustering parameters.
func DefaultParams() Params {
	return Params{Eps: DefaultEps, MinSamples: DefaultMinSamples}
}

// Cluster is an ordered set of incidents assigned to one density region.
type Cluster []incident.Incident

// Label values used while scanning. Cluster ids start at zero.
const (
	unclassified = -2
	noise        = -1
)

type treeItem struct {
	rect  rtreego.Rect
	index int
}

func (item treeItem) Bounds() rtreego.Rect {
	return item.rect
}

// Run clusters incidents with DBSCAN semantics. With fewer incidents than
// MinSamples clustering is skipped: two or more incidents each become a
// singleton cluster, a single incident yields no clusters. When a full scan
// finds no clusters in a small set (≤5), noise points are promoted to
// singletons so sparse datasets still produce risk signal.
//
// The result is deterministic for identical input order and parameters:
// clusters appear in order of their first member, members in input order.
func Run(incidents []incident.Incident, p Params) []Cluster {
	if p.Eps <= 0 {
		p.Eps = DefaultEps
	}
	if p.MinSamples <= 0 {
		p.MinSamples = DefaultMinSamples
	}

	n := len(incidents)
	if n == 0 {
		return nil
	}
	if n < p.MinSamples {
		if n < 2 {
			return nil
		}
		return singletons(incidents)
	}

	tree := rtreego.NewTree(2, 25, 50)
	for i := range incidents {
		rect := rtreego.Point{incidents[i].Lon, incidents[i].Lat}.ToRect(p.Eps)
		tree.Insert(treeItem{rect: rect, index: i})
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = unclassified
	}

	next := 0
	for i := 0; i < n; i++ {
		if labels[i] != unclassified {
			continue
		}
		neighbors := regionQuery(tree, incidents, i, p.Eps)
		if len(neighbors) < p.MinSamples {
			labels[i] = noise
			continue
		}

		labels[i] = next
		queue := append([]int(nil), neighbors...)
		for qi := 0; qi < len(queue); qi++ {
			j := queue[qi]
			if labels[j] == noise {
				// Border point reached from a core point.
				labels[j] = next
			}
			if labels[j] != unclassified {
				continue
			}
			labels[j] = next
			reach := regionQuery(tree, incidents, j, p.Eps)
			if len(reach) >= p.MinSamples {
				queue = append(queue, reach...)
			}
		}
		next++
	}

	clusters := make([]Cluster, next)
	var noisePoints []incident.Incident
	for i, label := range labels {
		if label == noise {
			noisePoints = append(noisePoints, incidents[i])
			continue
		}
		clusters[label] = append(clusters[label], incidents[i])
	}

	if len(clusters) == 0 && len(noisePoints) > 0 && n <= 5 {
		return singletons(noisePoints)
	}
	return clusters
}

// regionQuery returns the indexes of all incidents within eps of the given
// incident, itself included. The R-tree narrows candidates to the eps box,
// the exact distance check trims the corners.
func regionQuery(tree *rtreego.Rtree, incidents []incident.Incident, idx int, eps float64) []int {
	center := incidents[idx]
	rect := rtreego.Point{center.Lon, center.Lat}.ToRect(eps)
	candidates := tree.SearchIntersect(rect)

	neighbors := make([]int, 0, len(candidates))
	for _, obj := range candidates {
		item := obj.(treeItem)
		other := incidents[item.index]
		if math.Hypot(center.Lon-other.Lon, center.Lat-other.Lat) <= eps {
			neighbors = append(neighbors, item.index)
		}
	}
	return neighbors
}

func singletons(incidents []incident.Incident) []Cluster {
	clusters := make([]Cluster, len(incidents))
	for i, inc := range incidents {
		clusters[i] = Cluster{inc}
	}
	return clusters
}
