// Package country resolves map clicks to countries and fetches their facts.
package country

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ErrNotFound is returned when no country matches a code or location.
var ErrNotFound = errors.New("country not found")

// Feature is a country region on the map.
type Feature struct {
	Name     string           `json:"name" doc:"Country name" example:"France"`
	ISO2     string           `json:"iso2" doc:"ISO 3166-1 alpha-2 code" example:"FR"`
	ISO3     string           `json:"iso3" doc:"ISO 3166-1 alpha-3 code" example:"FRA"`
	Geometry orb.MultiPolygon `json:"-"`
	bound    orb.Bound
}

// Fetchable reports whether the feature carries a usable alpha-2 code.
// Natural Earth marks disputed regions with -99.
func (f Feature) Fetchable() bool {
	return len(f.ISO2) == 2
}

// Boundaries indexes country polygons for hit-testing and lookup.
type Boundaries struct {
	features []Feature
	index    map[string]int // lowercase NAME / ISO_A2 / ISO_A3
}

// ParseBoundaries builds an index from a GeoJSON FeatureCollection with
// NAME, ISO_A2 and ISO_A3 properties.
func ParseBoundaries(data []byte) (*Boundaries, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}

	b := &Boundaries{index: make(map[string]int)}
	for _, f := range fc.Features {
		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.MultiPolygon:
			mp = g
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		default:
			continue
		}

		feat := Feature{
			Name:     f.Properties.MustString("NAME", ""),
			ISO2:     f.Properties.MustString("ISO_A2", ""),
			ISO3:     f.Properties.MustString("ISO_A3", ""),
			Geometry: mp,
			bound:    mp.Bound(),
		}
		i := len(b.features)
		b.features = append(b.features, feat)

		for _, key := range []string{feat.Name, feat.ISO2, feat.ISO3} {
			if key == "" || key == "-99" {
				continue
			}
			if _, taken := b.index[strings.ToLower(key)]; !taken {
				b.index[strings.ToLower(key)] = i
			}
		}
	}
	return b, nil
}

// LoadBoundaries reads a GeoJSON file from disk.
func LoadBoundaries(path string) (*Boundaries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading boundaries: %w", err)
	}
	return ParseBoundaries(data)
}

// Len returns the number of indexed features.
func (b *Boundaries) Len() int {
	if b == nil {
		return 0
	}
	return len(b.features)
}

// Locate returns the country containing (lat, lng).
func (b *Boundaries) Locate(lat, lng float64) (Feature, bool) {
	if b == nil {
		return Feature{}, false
	}
	p := orb.Point{lng, lat}
	for _, f := range b.features {
		if !f.bound.Contains(p) {
			continue
		}
		if planar.MultiPolygonContains(f.Geometry, p) {
			return f, true
		}
	}
	return Feature{}, false
}

// Lookup finds a country by ISO_A2, ISO_A3 or name, case-insensitively.
func (b *Boundaries) Lookup(code string) (Feature, error) {
	if b == nil {
		return Feature{}, ErrNotFound
	}
	i, ok := b.index[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Feature{}, fmt.Errorf("%q: %w", code, ErrNotFound)
	}
	return b.features[i], nil
}
