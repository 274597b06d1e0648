// Package tileprovider holds the base-map tile registry and the theme-aware
// selector that decides which provider the map renders.
package tileprovider

import "sort"

// Config describes one base-map tile source.
// The url is a slippy-map template with {z}/{x}/{y} and an optional {s}.
type Config struct {
	ID          string   `json:"id" yaml:"id" validate:"required,provider_id" doc:"Provider identifier" example:"osm"`
	Name        string   `json:"name" yaml:"name" doc:"Display name" example:"OpenStreetMap"`
	URL         string   `json:"url" yaml:"url" validate:"required,tile_template" doc:"Tile URL template" example:"https://tile.openstreetmap.org/{z}/{x}/{y}.png"`
	Attribution string   `json:"attribution" yaml:"attribution" validate:"required" doc:"Attribution HTML"`
	MaxZoom     int      `json:"maxZoom" yaml:"maxZoom" validate:"min=1,max=22" doc:"Maximum zoom level" example:"19"`
	Subdomains  []string `json:"subdomains,omitempty" yaml:"subdomains,omitempty" doc:"Values for the {s} placeholder"`
}

// DarkID is the provider id used when the resolved theme is dark.
const DarkID = "dark"

// AutoID is reserved for the chooser entry that follows the theme. No
// provider may use it.
const AutoID = "auto"

// Registry is an immutable id → Config lookup with one default entry.
type Registry struct {
	defaultID string
	order     []string
	byID      map[string]Config
}

// NewRegistry builds a registry from providers. defaultID must name one of them;
// if it does not, the first provider becomes the default. It panics when
// providers is empty.
func NewRegistry(defaultID string, providers ...Config) *Registry {
	if len(providers) == 0 {
		panic("tileprovider: registry needs at least one provider")
	}
	r := &Registry{byID: make(map[string]Config, len(providers))}
	for _, p := range providers {
		if _, dup := r.byID[p.ID]; dup {
			continue
		}
		r.byID[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	if _, ok := r.byID[defaultID]; !ok {
		defaultID = r.order[0]
	}
	r.defaultID = defaultID
	return r
}

// ByID returns the provider with the given id.
func (r *Registry) ByID(id string) (Config, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Default returns the default provider. It never fails.
func (r *Registry) Default() Config {
	return r.byID[r.defaultID]
}

// DefaultID returns the id of the default provider.
func (r *Registry) DefaultID() string {
	return r.defaultID
}

// List returns providers in registration order.
func (r *Registry) List() []Config {
	out := make([]Config, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns the sorted provider ids.
func (r *Registry) IDs() []string {
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	return ids
}

// Builtin returns the registry shipped with the server.
func Builtin() *Registry {
	return NewRegistry("osm",
		Config{
			ID:          "osm",
			Name:        "OpenStreetMap",
			URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
			MaxZoom:     19,
		},
		Config{
			ID:          DarkID,
			Name:        "Dark Matter",
			URL:         "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
			Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
			MaxZoom:     20,
			Subdomains:  []string{"a", "b", "c", "d"},
		},
		Config{
			ID:          "light",
			Name:        "Positron",
			URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
			Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
			MaxZoom:     20,
			Subdomains:  []string{"a", "b", "c", "d"},
		},
		Config{
			ID:          "topo",
			Name:        "OpenTopoMap",
			URL:         "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
			Attribution: `Map data &copy; OpenStreetMap contributors, SRTM | Style &copy; <a href="https://opentopomap.org">OpenTopoMap</a>`,
			MaxZoom:     17,
			Subdomains:  []string{"a", "b", "c"},
		},
		Config{
			ID:          "satellite",
			Name:        "Satellite",
			URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
			Attribution: "Tiles &copy; Esri",
			MaxZoom:     19,
		},
	)
}
