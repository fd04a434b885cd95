// Package contour derives per-shank 2D outlines from probe contours and
// electrode positions. All operations are pure: identical inputs give
// identical outputs, with no internal state.
package contour

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

// Geometry defaults, micrometers.
const (
	DefaultPadding = 30.0 // outward margin around electrode hulls
	DefaultTipDrop = 80.0 // tip vertex distance below the lowest electrode
)

// DegenerateShankError reports a shank id that owned no electrodes when
// an electrode-driven outline was requested.
type DegenerateShankError struct {
	ShankID int
}

func (e DegenerateShankError) Error() string {
	return fmt.Sprintf("contour: shank %d has no electrodes", e.ShankID)
}

// MalformedContourError reports a contour too short to bound any area.
type MalformedContourError struct {
	Points int
}

func (e MalformedContourError) Error() string {
	return fmt.Sprintf("contour: %d points, need at least 3", e.Points)
}

// Centroids returns the mean x position per shank id.
func Centroids(groups map[int][]r2.Vec) map[int]float64 {
	out := make(map[int]float64, len(groups))
	for id, pts := range groups {
		xs := make([]float64, len(pts))
		for i, p := range pts {
			xs[i] = p.X
		}
		out[id] = stat.Mean(xs, nil)
	}
	return out
}

// SplitByProximity partitions one closed contour into per-shank outlines.
// Each point goes to the shank whose centroid x is nearest; ties go to
// the lower shank id. Points keep their original relative order. A shank
// left with fewer than 3 points is closed by borrowing the contour points
// that follow its last assigned point, so every outline bounds an area.
//
// The split is an approximation: closely spaced shanks can share boundary
// runs and come out visually merged. That is the intended behavior.
func SplitByProximity(points [][]float64, centroids map[int]float64) (map[int][]r2.Vec, error) {
	if len(points) < 3 {
		return nil, MalformedContourError{Points: len(points)}
	}
	if len(centroids) == 0 {
		return nil, fmt.Errorf("contour: split with no shank centroids")
	}

	ids := make([]int, 0, len(centroids))
	for id := range centroids {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	flat := make([]r2.Vec, len(points))
	for i, p := range points {
		if len(p) < 2 {
			return nil, fmt.Errorf("contour: point %d has %d coords", i, len(p))
		}
		flat[i] = r2.Vec{X: p[0], Y: p[1]} // z, if present, is ignored
	}

	assigned := make(map[int][]int, len(ids))
	for i, p := range flat {
		best := ids[0]
		bestDist := math.Abs(p.X - centroids[ids[0]])
		for _, id := range ids[1:] {
			d := math.Abs(p.X - centroids[id])
			if d < bestDist { // strict: equal distance keeps the lower id
				best, bestDist = id, d
			}
		}
		assigned[best] = append(assigned[best], i)
	}

	out := make(map[int][]r2.Vec, len(ids))
	for _, id := range ids {
		idx := assigned[id]
		if len(idx) == 0 {
			// Seed from the contour point nearest the centroid.
			c := centroids[id]
			nearest := 0
			for i, p := range flat {
				if math.Abs(p.X-c) < math.Abs(flat[nearest].X-c) {
					nearest = i
				}
			}
			idx = []int{nearest}
		}
		for len(idx) < 3 {
			idx = append(idx, (idx[len(idx)-1]+1)%len(flat))
		}
		pts := make([]r2.Vec, len(idx))
		for i, j := range idx {
			pts[i] = flat[j]
		}
		out[id] = pts
	}
	return out, nil
}

// ShankOutline builds one shank's closed outline from its electrode
// positions: convex hull (or bounding box below 3 distinct points),
// expanded outward by padding, with a single tapered tip vertex appended
// tipDrop below the lowest electrode. A single electrode yields a square
// of side padding centered on it.
func ShankOutline(points []r2.Vec, padding, tipDrop float64) []r2.Vec {
	if len(points) == 0 {
		return nil
	}
	distinct := dedupe(points)
	if len(distinct) == 1 {
		p := distinct[0]
		h := padding / 2
		return []r2.Vec{
			{X: p.X - h, Y: p.Y - h},
			{X: p.X + h, Y: p.Y - h},
			{X: p.X + h, Y: p.Y + h},
			{X: p.X - h, Y: p.Y + h},
		}
	}

	var padded []r2.Vec
	if len(distinct) >= 3 {
		if hull := ConvexHull(distinct); len(hull) >= 3 {
			padded = expand(hull, padding)
		}
	}
	if padded == nil {
		// Collinear or two-point shanks: padded box instead of a hull.
		padded = boundingBox(distinct, padding/2)
	}
	return appendTip(padded, lowestY(points)-tipDrop)
}

// ConvexHull returns the convex hull of the points in counter-clockwise
// order (Andrew's monotone chain). Collinear interior points are dropped.
// Fewer than 3 distinct points give a degenerate result shorter than 3.
func ConvexHull(points []r2.Vec) []r2.Vec {
	pts := dedupe(points)
	if len(pts) < 3 {
		return pts
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	var lower, upper []r2.Vec
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

func cross(o, a, b r2.Vec) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// expand moves each vertex away from the polygon centroid by pad.
// Cheaper than per-edge normals and close enough for near-convex hulls.
func expand(poly []r2.Vec, pad float64) []r2.Vec {
	var cx, cy float64
	for _, p := range poly {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(poly))
	cy /= float64(len(poly))

	out := make([]r2.Vec, len(poly))
	for i, p := range poly {
		dx, dy := p.X-cx, p.Y-cy
		l := math.Hypot(dx, dy)
		if l < 1e-12 {
			out[i] = p
			continue
		}
		out[i] = r2.Vec{X: p.X + dx/l*pad, Y: p.Y + dy/l*pad}
	}
	return out
}

// appendTip inserts a tip vertex at tipY below the polygon, at the
// horizontal midpoint of the polygon's lowest edge. The tip is spliced
// between that edge's endpoints so the result stays a simple polygon.
func appendTip(poly []r2.Vec, tipY float64) []r2.Vec {
	n := len(poly)
	lowest := 0
	lowestSum := math.Inf(1)
	for i := 0; i < n; i++ {
		s := poly[i].Y + poly[(i+1)%n].Y
		if s < lowestSum {
			lowest, lowestSum = i, s
		}
	}
	a, b := poly[lowest], poly[(lowest+1)%n]
	tip := r2.Vec{X: (a.X + b.X) / 2, Y: tipY}

	out := make([]r2.Vec, 0, n+1)
	out = append(out, poly[:lowest+1]...)
	out = append(out, tip)
	out = append(out, poly[lowest+1:]...)
	return out
}

func boundingBox(points []r2.Vec, margin float64) []r2.Vec {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	minX, minY = minX-margin, minY-margin
	maxX, maxY = maxX+margin, maxY+margin
	return []r2.Vec{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}
}

func lowestY(points []r2.Vec) float64 {
	low := math.Inf(1)
	for _, p := range points {
		low = math.Min(low, p.Y)
	}
	return low
}

func dedupe(points []r2.Vec) []r2.Vec {
	out := make([]r2.Vec, 0, len(points))
	seen := make(map[r2.Vec]bool, len(points))
	for _, p := range points {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
