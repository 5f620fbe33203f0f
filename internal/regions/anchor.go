package regions

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// DefaultSimplifyTolerance is the Douglas-Peucker tolerance in degrees.
const DefaultSimplifyTolerance = 0.01

const (
	sampleGrid  = 24
	areaEpsilon = 1e-12
)

type AnchorStrategy string

const (
	AnchorCentroid     AnchorStrategy = "centroid"
	AnchorInterior     AnchorStrategy = "interior"
	AnchorVertexMean   AnchorStrategy = "vertex_mean"
	AnchorBoundsCenter AnchorStrategy = "bounds_center"
	AnchorNone         AnchorStrategy = "none"
)

type Anchor struct {
	Point    LatLng
	Strategy AnchorStrategy
}

// LabelAnchor finds a point inside geometry for placing a text label.
func LabelAnchor(g orb.Geometry) (Anchor, bool) {
	return LabelAnchorWithTolerance(g, DefaultSimplifyTolerance)
}

// LabelAnchorWithTolerance is LabelAnchor with an explicit simplification
// tolerance. A tolerance <= 0 disables simplification.
//
// The anchor is taken from the largest polygon and is always inside it:
// the area centroid when it falls inside, else the best of a sampled set of
// interior points, else the outer ring's vertex mean, else the bounding box
// centre. ok is false when the geometry has no area or none of those
// candidates is inside.
func LabelAnchorWithTolerance(g orb.Geometry, tolerance float64) (Anchor, bool) {
	none := Anchor{Strategy: AnchorNone}
	if g == nil {
		return none, false
	}

	// Simplification keeps member positions, so the same index selects the
	// original polygon the anchor must also fall inside.
	simplified := simplifyGeometry(g, tolerance)
	i, ok := targetIndex(simplified)
	if !ok {
		return none, false
	}
	target, original := memberPolygon(simplified, i), memberPolygon(g, i)
	if polygonArea(target) <= areaEpsilon {
		return none, false
	}
	inside := func(pt orb.Point) bool {
		return planar.PolygonContains(target, pt) && planar.PolygonContains(original, pt)
	}

	if c, _ := planar.CentroidArea(target); inside(c) {
		return anchorAt(c, AnchorCentroid), true
	}
	if p, ok := interiorPoint(target, inside); ok {
		return anchorAt(p, AnchorInterior), true
	}
	if p, ok := vertexMean(target[0]); ok && inside(p) {
		return anchorAt(p, AnchorVertexMean), true
	}
	if c := target.Bound().Center(); inside(c) {
		return anchorAt(c, AnchorBoundsCenter), true
	}
	return none, false
}

// TargetPolygon picks the polygon a label belongs to: the polygon itself,
// or the largest member of a multipolygon. Ties keep the earlier member.
func TargetPolygon(g orb.Geometry) (orb.Polygon, bool) {
	i, ok := targetIndex(g)
	if !ok {
		return nil, false
	}
	return memberPolygon(g, i), true
}

func targetIndex(g orb.Geometry) (int, bool) {
	switch geom := g.(type) {
	case orb.Polygon:
		return 0, len(geom) > 0
	case orb.Ring:
		return 0, len(geom) > 0
	case orb.MultiPolygon:
		best, bestArea := -1, -1.0
		for i, p := range geom {
			if len(p) == 0 {
				continue
			}
			if a := polygonArea(p); a > bestArea {
				best, bestArea = i, a
			}
		}
		return best, best >= 0
	}
	return 0, false
}

func memberPolygon(g orb.Geometry, i int) orb.Polygon {
	switch geom := g.(type) {
	case orb.Polygon:
		return geom
	case orb.Ring:
		return orb.Polygon{geom}
	case orb.MultiPolygon:
		return geom[i]
	}
	return nil
}

func anchorAt(p orb.Point, s AnchorStrategy) Anchor {
	return Anchor{Point: LatLng{Lat: p.Y(), Lng: p.X()}, Strategy: s}
}

func polygonArea(p orb.Polygon) float64 {
	return math.Abs(planar.Area(p))
}

func simplifyGeometry(g orb.Geometry, tolerance float64) orb.Geometry {
	if tolerance <= 0 {
		return g
	}
	switch geom := g.(type) {
	case orb.Polygon:
		return simplifyPolygon(geom, tolerance)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(geom))
		for _, p := range geom {
			out = append(out, simplifyPolygon(p, tolerance))
		}
		return out
	}
	return g
}

// simplifyPolygon works on a clone; the simplifier rewrites rings in place.
func simplifyPolygon(p orb.Polygon, tolerance float64) orb.Polygon {
	if len(p) == 0 || len(p[0]) < 4 {
		return p
	}
	s, ok := simplify.DouglasPeucker(tolerance).Simplify(p.Clone()).(orb.Polygon)
	if !ok || len(s) == 0 || len(s[0]) < 4 || polygonArea(s) <= areaEpsilon {
		return p
	}
	return s
}

// interiorPoint samples a grid over the bounding box plus the midpoints of
// each row's scan-line intervals and keeps the inside candidate farthest
// from any edge.
func interiorPoint(p orb.Polygon, inside func(orb.Point) bool) (orb.Point, bool) {
	b := p.Bound()
	w, h := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	if w <= 0 || h <= 0 {
		return orb.Point{}, false
	}

	var best orb.Point
	bestDist, found := 0.0, false
	consider := func(c orb.Point) {
		if !inside(c) {
			return
		}
		if d := edgeDistance(p, c); d > bestDist {
			best, bestDist, found = c, d, true
		}
	}

	for row := 0; row < sampleGrid; row++ {
		y := b.Min[1] + (float64(row)+0.5)*h/sampleGrid
		for col := 0; col < sampleGrid; col++ {
			consider(orb.Point{b.Min[0] + (float64(col)+0.5)*w/sampleGrid, y})
		}
		for _, c := range scanlineMidpoints(p, y) {
			consider(c)
		}
	}
	return best, found
}

// scanlineMidpoints intersects the horizontal line at y with every ring and
// returns the midpoint of each inside interval under the even-odd rule.
func scanlineMidpoints(p orb.Polygon, y float64) []orb.Point {
	var xs []float64
	for _, r := range p {
		for i := 0; i+1 < len(r); i++ {
			a, b := r[i], r[i+1]
			if (a[1] > y) == (b[1] > y) {
				continue
			}
			t := (y - a[1]) / (b[1] - a[1])
			xs = append(xs, a[0]+t*(b[0]-a[0]))
		}
	}
	sort.Float64s(xs)

	out := make([]orb.Point, 0, len(xs)/2)
	for i := 0; i+1 < len(xs); i += 2 {
		if xs[i+1] > xs[i] {
			out = append(out, orb.Point{(xs[i] + xs[i+1]) / 2, y})
		}
	}
	return out
}

func edgeDistance(p orb.Polygon, c orb.Point) float64 {
	d := math.Inf(1)
	for _, r := range p {
		for i := 0; i+1 < len(r); i++ {
			if e := planar.DistanceFromSegment(r[i], r[i+1], c); e < d {
				d = e
			}
		}
	}
	return d
}

func vertexMean(r orb.Ring) (orb.Point, bool) {
	n := len(r)
	if n > 1 && r[0].Equal(r[n-1]) {
		n--
	}
	if n == 0 {
		return orb.Point{}, false
	}
	var sx, sy float64
	for _, pt := range r[:n] {
		sx += pt[0]
		sy += pt[1]
	}
	return orb.Point{sx / float64(n), sy / float64(n)}, true
}
