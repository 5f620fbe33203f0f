package regions

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/cases"
)

const (
	// DefaultRegion is assigned to features with no matching location.
	DefaultRegion = "default"
	// DefaultColor is the gray used for unmapped regions.
	DefaultColor = "#cccccc"
)

var ErrInvalidColorTable = errors.New("invalid region colour table")

//go:embed regions.yaml
var embeddedColors []byte

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// RegionColor is one legend entry.
type RegionColor struct {
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

type colorFile struct {
	Default string        `yaml:"default"`
	Regions []RegionColor `yaml:"regions"`
}

// ColorTable maps region names to fill colours. Lookups ignore surrounding
// whitespace and letter case. The zero value resolves every region to
// DefaultColor.
type ColorTable struct {
	regions  []RegionColor
	byKey    map[string]int
	fallback string
}

// DefaultColorTable returns the embedded UK table.
func DefaultColorTable() ColorTable {
	t, err := ParseColorTable(embeddedColors)
	if err != nil {
		panic(fmt.Sprintf("embedded regions.yaml: %v", err))
	}
	return t
}

// LoadColorTable reads a YAML table from path, or the embedded table when
// path is empty.
func LoadColorTable(path string) (ColorTable, error) {
	if path == "" {
		return DefaultColorTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ColorTable{}, fmt.Errorf("read colour table: %w", err)
	}
	return ParseColorTable(data)
}

func ParseColorTable(data []byte) (ColorTable, error) {
	var f colorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return ColorTable{}, fmt.Errorf("%w: %v", ErrInvalidColorTable, err)
	}

	t := ColorTable{
		byKey:    make(map[string]int, len(f.Regions)),
		fallback: DefaultColor,
	}
	if f.Default != "" {
		if !hexColor.MatchString(f.Default) {
			return ColorTable{}, fmt.Errorf("%w: default colour %q", ErrInvalidColorTable, f.Default)
		}
		t.fallback = f.Default
	}

	for _, rc := range f.Regions {
		name := strings.TrimSpace(rc.Name)
		if name == "" || strings.EqualFold(name, DefaultRegion) {
			return ColorTable{}, fmt.Errorf("%w: region name %q", ErrInvalidColorTable, rc.Name)
		}
		if !hexColor.MatchString(rc.Color) {
			return ColorTable{}, fmt.Errorf("%w: colour %q for %s", ErrInvalidColorTable, rc.Color, name)
		}
		key := regionKey(name)
		if _, dup := t.byKey[key]; dup {
			return ColorTable{}, fmt.Errorf("%w: duplicate region %s", ErrInvalidColorTable, name)
		}
		t.byKey[key] = len(t.regions)
		t.regions = append(t.regions, RegionColor{Name: name, Color: rc.Color})
	}
	return t, nil
}

// Color returns the colour for region, or the fallback.
func (t ColorTable) Color(region string) string {
	if i, ok := t.byKey[regionKey(region)]; ok {
		return t.regions[i].Color
	}
	return t.Fallback()
}

func (t ColorTable) Fallback() string {
	if t.fallback == "" {
		return DefaultColor
	}
	return t.fallback
}

// Canonical returns the table's spelling of region.
func (t ColorTable) Canonical(region string) (string, bool) {
	i, ok := t.byKey[regionKey(region)]
	if !ok {
		return "", false
	}
	return t.regions[i].Name, true
}

// Regions returns the legend entries in table order, without the default.
func (t ColorTable) Regions() []RegionColor {
	out := make([]RegionColor, len(t.regions))
	copy(out, t.regions)
	return out
}

func regionKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
