package regions

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// CombineDir merges every .geojson file in dir into one collection. Each
// feature is tagged with the upper-cased file basename as its postcode
// initials and keeps only its name. Unreadable files are logged and skipped.
func CombineDir(dir string, log *zap.Logger) (*geojson.FeatureCollection, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".geojson") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := geojson.NewFeatureCollection()
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("skipping geojson file", zap.String("file", name), zap.Error(err))
			continue
		}
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			log.Warn("skipping geojson file", zap.String("file", name), zap.Error(err))
			continue
		}

		initials := NormalizePostcode(strings.TrimSuffix(name, filepath.Ext(name)))
		for _, gf := range fc.Features {
			if gf.Geometry == nil {
				continue
			}
			nf := geojson.NewFeature(gf.Geometry)
			nf.Properties[PropPostcodeInitials] = initials
			if n, ok := gf.Properties["name"].(string); ok {
				nf.Properties["name"] = n
			}
			out.Append(nf)
		}
		log.Debug("combined geojson file", zap.String("file", name), zap.Int("features", len(fc.Features)))
	}

	if len(out.Features) == 0 {
		return nil, ErrNoFeatures
	}
	return out, nil
}
