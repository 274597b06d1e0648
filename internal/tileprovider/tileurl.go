package tileprovider

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// TileURL expands the provider template for one tile. {s} rotates through the
// subdomains by tile position and {r} (retina suffix) is dropped.
func TileURL(p Config, t maptile.Tile) string {
	sub := ""
	if len(p.Subdomains) > 0 {
		sub = p.Subdomains[int(t.X+t.Y)%len(p.Subdomains)]
	}
	return strings.NewReplacer(
		"{z}", strconv.FormatUint(uint64(t.Z), 10),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
		"{s}", sub,
		"{r}", "",
	).Replace(p.URL)
}

// PreviewURL returns the tile covering (lat, lng) at zoom, clamped to the
// provider's max zoom. Used for base-map chooser thumbnails.
func PreviewURL(p Config, lat, lng float64, zoom int) string {
	if zoom > p.MaxZoom {
		zoom = p.MaxZoom
	}
	if zoom < 0 {
		zoom = 0
	}
	return TileURL(p, maptile.At(orb.Point{lng, lat}, maptile.Zoom(zoom)))
}
