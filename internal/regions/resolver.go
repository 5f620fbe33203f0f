package regions

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/metrics"
)

var ErrNoFeatures = errors.New("feature collection has no features")

// Resolver holds the parsed map geometry. Anchors depend only on geometry,
// so they are computed once when the resolver is built.
type Resolver struct {
	features []Feature
	colors   ColorTable
}

type ResolverOption func(*resolverOptions)

type resolverOptions struct {
	tolerance float64
	log       *zap.Logger
}

func WithTolerance(t float64) ResolverOption {
	return func(o *resolverOptions) { o.tolerance = t }
}

func WithLogger(l *zap.Logger) ResolverOption {
	return func(o *resolverOptions) { o.log = l }
}

func NewResolver(fc *geojson.FeatureCollection, colors ColorTable, opts ...ResolverOption) *Resolver {
	o := resolverOptions{tolerance: DefaultSimplifyTolerance, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Resolver{colors: colors}
	if fc == nil {
		return r
	}
	r.features = make([]Feature, 0, len(fc.Features))
	for _, gf := range fc.Features {
		f := FromGeoJSON(gf)
		a, ok := LabelAnchorWithTolerance(f.Geometry, o.tolerance)
		metrics.IncLabelAnchor(string(a.Strategy))
		if ok {
			p := a.Point
			f.Derived.Label = &p
		} else {
			o.log.Debug("no label anchor", zap.String("postcode", f.PostcodeInitials()))
		}
		r.features = append(r.features, f)
	}
	return r
}

// LoadResolver reads a GeoJSON FeatureCollection from path.
func LoadResolver(path string, colors ColorTable, opts ...ResolverOption) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson %s: %w", path, err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoFeatures)
	}
	return NewResolver(fc, colors, opts...), nil
}

func (r *Resolver) Len() int { return len(r.features) }

func (r *Resolver) Colors() ColorTable { return r.colors }

// Resolve annotates every feature against lookup.
func (r *Resolver) Resolve(lookup Lookup) []Feature {
	out := make([]Feature, len(r.features))
	for i, f := range r.features {
		out[i] = Annotate(f, lookup, r.colors)
	}
	return out
}

// FeatureCollection renders Resolve as GeoJSON.
func (r *Resolver) FeatureCollection(lookup Lookup) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range r.Resolve(lookup) {
		fc.Append(f.GeoJSON())
	}
	return fc
}
