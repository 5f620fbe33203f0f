package regions

import (
	"strings"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Property keys written onto annotated features.
const (
	PropPostcodeInitials = "postcodeInitials"
	PropRegion           = "region"
	PropColor            = "color"
	PropLocationID       = "locationId"
	PropCityName         = "cityName"
	PropLabelLat         = "labelLat"
	PropLabelLng         = "labelLng"
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationRef is the slice of a location row the map needs.
type LocationRef struct {
	ID       uuid.UUID
	Region   string
	CityName string
}

// Lookup is keyed by upper-cased postcode initials.
type Lookup map[string]LocationRef

// Derived holds the properties computed for a feature.
type Derived struct {
	PostcodeInitials string
	Region           string
	Color            string
	LocationID       *uuid.UUID
	CityName         string
	Label            *LatLng
}

// Feature is a polygon area with its source properties and the derived
// metadata. Geometry is shared and must not be mutated.
type Feature struct {
	Geometry orb.Geometry
	Base     geojson.Properties
	Derived  Derived
}

func NormalizePostcode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// PostcodeInitials reads the join key from the source properties.
func (f Feature) PostcodeInitials() string {
	s, _ := f.Base[PropPostcodeInitials].(string)
	return NormalizePostcode(s)
}

// Annotate returns a copy of f carrying region, colour and location
// metadata from lookup. A miss yields the default region and colour.
func Annotate(f Feature, lookup Lookup, colors ColorTable) Feature {
	out := Feature{
		Geometry: f.Geometry,
		Base:     f.Base.Clone(),
		Derived: Derived{
			PostcodeInitials: f.PostcodeInitials(),
			Label:            f.Derived.Label,
		},
	}

	ref, ok := lookup[out.Derived.PostcodeInitials]
	if !ok || out.Derived.PostcodeInitials == "" {
		out.Derived.Region = DefaultRegion
		out.Derived.Color = colors.Fallback()
		return out
	}

	id := ref.ID
	out.Derived.Region = ref.Region
	out.Derived.Color = colors.Color(ref.Region)
	out.Derived.LocationID = &id
	out.Derived.CityName = ref.CityName
	return out
}

// FromGeoJSON wraps a decoded feature.
func FromGeoJSON(gf *geojson.Feature) Feature {
	return Feature{Geometry: gf.Geometry, Base: gf.Properties}
}

// derivedKeys are owned by Annotate and never carried over from the source.
var derivedKeys = []string{PropRegion, PropColor, PropLocationID, PropCityName, PropLabelLat, PropLabelLng}

// GeoJSON renders f with its derived properties merged over the base ones.
// A feature that was never annotated keeps its source properties. Label
// fields are omitted when no anchor was found.
func (f Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	props := f.Base.Clone()
	if props == nil {
		props = geojson.Properties{}
	}
	code := f.Derived.PostcodeInitials
	if code == "" {
		code = f.PostcodeInitials()
	}
	if code != "" {
		props[PropPostcodeInitials] = code
	}
	if f.Derived.Region == "" {
		gf.Properties = props
		return gf
	}

	for _, k := range derivedKeys {
		delete(props, k)
	}
	props[PropRegion] = f.Derived.Region
	props[PropColor] = f.Derived.Color
	if f.Derived.LocationID != nil {
		props[PropLocationID] = f.Derived.LocationID.String()
	}
	if f.Derived.CityName != "" {
		props[PropCityName] = f.Derived.CityName
	}
	if f.Derived.Label != nil {
		props[PropLabelLat] = f.Derived.Label.Lat
		props[PropLabelLng] = f.Derived.Label.Lng
	}
	gf.Properties = props
	return gf
}
