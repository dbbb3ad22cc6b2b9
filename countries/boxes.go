// Package countries loads the static reference tables the location engine
// samples against: country bounding boxes, name to alpha-2 code mappings, a
// curated list of big cities. Everything here is read once at startup and
// immutable afterwards.
package countries

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// CustomCode tags bounds that came from the client rather than the boundary
// table. Country-membership verification is skipped for such bounds.
const CustomCode = "custom"

var ErrCountryNotFound = errors.New("country code not present in boundary table")

// Bounds is a lat/lng rectangle, tagged with the ISO alpha-2 code of the
// country it covers, or CustomCode.
type Bounds struct {
	MinLat      float64
	MaxLat      float64
	MinLng      float64
	MaxLng      float64
	CountryCode string
}

// Table maps ISO alpha-2 codes to country bounding boxes.
type Table struct {
	bounds map[string]Bounds
}

// boxes.json is a GeoJSON feature collection. Each feature is a rectangle
// whose outer ring runs SW, SE, NE, NW; corners are [lng, lat].
type boxFeatureCollection struct {
	Features []boxFeature `json:"features"`
}

type boxFeature struct {
	Properties struct {
		ISO3166 string `json:"iso3166"`
	} `json:"properties"`
	Geometry struct {
		Coordinates [][][]float64 `json:"coordinates"`
	} `json:"geometry"`
}

func LoadBoxes(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading boundary table: %w", err)
	}
	return ParseBoxes(data)
}

func ParseBoxes(data []byte) (*Table, error) {
	var fc boxFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing boundary table: %w", err)
	}

	t := &Table{bounds: make(map[string]Bounds, len(fc.Features))}
	for _, f := range fc.Features {
		code := f.Properties.ISO3166
		if code == "" || len(f.Geometry.Coordinates) == 0 || len(f.Geometry.Coordinates[0]) < 3 {
			return nil, fmt.Errorf("malformed boundary feature %q", code)
		}
		ring := f.Geometry.Coordinates[0]
		sw, ne := ring[0], ring[2]
		if len(sw) < 2 || len(ne) < 2 {
			return nil, fmt.Errorf("malformed corners for feature %q", code)
		}
		t.bounds[code] = Bounds{
			MinLat:      sw[1],
			MaxLat:      ne[1],
			MinLng:      sw[0],
			MaxLng:      ne[0],
			CountryCode: code,
		}
	}
	return t, nil
}

// Bounds resolves the bounding box for an alpha-2 code.
func (t *Table) Bounds(code string) (Bounds, error) {
	b, ok := t.bounds[code]
	if !ok {
		return Bounds{}, fmt.Errorf("%w: %s", ErrCountryNotFound, code)
	}
	return b, nil
}

func (t *Table) Len() int {
	return len(t.bounds)
}
