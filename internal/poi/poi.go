// Package poi stores points of interest placed on the map.
package poi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrNotFound is returned when a POI id is unknown.
var ErrNotFound = errors.New("poi not found")

// DefaultName labels POIs dropped without a name.
const DefaultName = "Dropped pin"

// POI is a user-placed marker.
type POI struct {
	ID          string    `json:"id" doc:"POI identifier"`
	Name        string    `json:"name" doc:"Display name" example:"Trailhead"`
	Lat         float64   `json:"lat" minimum:"-90" maximum:"90" doc:"Latitude"`
	Lng         float64   `json:"lng" minimum:"-180" maximum:"180" doc:"Longitude"`
	CountryCode string    `json:"countryCode,omitempty" doc:"ISO alpha-2 code of the containing country"`
	CreatedAt   time.Time `json:"createdAt" doc:"Creation time"`
}

// Point returns the POI location as an orb point.
func (p POI) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Store persists POIs.
type Store interface {
	Create(ctx context.Context, p POI) (POI, error)
	Get(ctx context.Context, id string) (POI, error)
	List(ctx context.Context) ([]POI, error)
	Delete(ctx context.Context, id string) error
}

// New fills in the id, name and timestamp for a fresh POI.
func New(name string, lat, lng float64, countryCode string) POI {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	return POI{
		ID:          uuid.NewString(),
		Name:        name,
		Lat:         lat,
		Lng:         lng,
		CountryCode: countryCode,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

// FeatureCollection renders POIs as GeoJSON point features for the map layer.
func FeatureCollection(pois []POI) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range pois {
		f := geojson.NewFeature(p.Point())
		f.ID = p.ID
		f.Properties["name"] = p.Name
		if p.CountryCode != "" {
			f.Properties["countryCode"] = p.CountryCode
		}
		fc.Append(f)
	}
	return fc
}
