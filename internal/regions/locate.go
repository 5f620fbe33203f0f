package regions

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Locate returns the postcode initials of the first feature whose
// geometry contains the point. Points on a shared border may match either
// neighbour.
func (r *Resolver) Locate(p LatLng) (string, bool) {
	pt := orb.Point{p.Lng, p.Lat}
	for _, f := range r.features {
		if f.Geometry == nil || !f.Geometry.Bound().Contains(pt) {
			continue
		}
		if contains(f.Geometry, pt) {
			if code := f.PostcodeInitials(); code != "" {
				return code, true
			}
		}
	}
	return "", false
}

func contains(g orb.Geometry, pt orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	}
	return false
}
