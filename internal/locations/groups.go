package locations

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/regions"
)

type City struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"city_name"`
	PostcodeInitials string    `json:"postcode_initials"`
}

type RegionGroup struct {
	Region string `json:"region"`
	Color  string `json:"color"`
	Cities []City `json:"cities"`
}

// GroupByRegion groups locations for the sidebar. Regions known to the
// colour table come first in table order, then any others alphabetically.
// Cities are collated with British English rules.
func GroupByRegion(locs []Location, colors regions.ColorTable) []RegionGroup {
	col := collate.New(language.BritishEnglish, collate.IgnoreCase)

	byName := map[string]*RegionGroup{}
	for _, l := range locs {
		name := strings.TrimSpace(l.Region)
		if canonical, ok := colors.Canonical(name); ok {
			name = canonical
		}
		if name == "" {
			name = regions.DefaultRegion
		}
		g, ok := byName[name]
		if !ok {
			g = &RegionGroup{Region: name, Color: colors.Color(name)}
			byName[name] = g
		}
		g.Cities = append(g.Cities, City{ID: l.ID, Name: l.CityName, PostcodeInitials: l.PostcodeInitials})
	}

	var out []RegionGroup
	for _, rc := range colors.Regions() {
		if g, ok := byName[rc.Name]; ok {
			out = append(out, *g)
			delete(byName, rc.Name)
		}
	}
	rest := make([]RegionGroup, 0, len(byName))
	for _, g := range byName {
		rest = append(rest, *g)
	}
	sort.Slice(rest, func(i, j int) bool {
		return col.CompareString(rest[i].Region, rest[j].Region) < 0
	})
	out = append(out, rest...)

	for i := range out {
		cities := out[i].Cities
		sort.SliceStable(cities, func(a, b int) bool {
			if c := col.CompareString(cities[a].Name, cities[b].Name); c != 0 {
				return c < 0
			}
			return cities[a].PostcodeInitials < cities[b].PostcodeInitials
		})
	}
	return out
}

// BuildLookup keys locations by normalized postcode initials.
func BuildLookup(locs []Location) regions.Lookup {
	lookup := make(regions.Lookup, len(locs))
	for _, l := range locs {
		key := regions.NormalizePostcode(l.PostcodeInitials)
		if key == "" {
			continue
		}
		lookup[key] = regions.LocationRef{ID: l.ID, Region: l.Region, CityName: l.CityName}
	}
	return lookup
}

// List returns every location ordered by city.
func List(ctx context.Context, conn *gorm.DB) ([]Location, error) {
	var locs []Location
	if err := conn.WithContext(ctx).Order("city_name ASC, postcode_initials ASC").Find(&locs).Error; err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locs, nil
}

func LoadLookup(ctx context.Context, conn *gorm.DB) (regions.Lookup, error) {
	locs, err := List(ctx, conn)
	if err != nil {
		return nil, err
	}
	return BuildLookup(locs), nil
}
