package mapui

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-atlas/internal/session"
	"github.com/joeblew999/plat-atlas/internal/theme"
	"github.com/joeblew999/plat-atlas/internal/tileprovider"
)

// PageData feeds the map.html page.
type PageData struct {
	Title     string
	Theme     theme.Theme
	Signals   string
	Tile      tileprovider.Config
	Providers []ProviderOption
	EventsURL string
	POIsURL   string
}

// NewPageData builds the initial page state for v.
func NewPageData(reg *tileprovider.Registry, v session.View) (PageData, error) {
	sig := Signals(v)
	for k, def := range map[string]any{
		"lat": 0, "lng": 0, "systemTheme": "",
		"error": "", "success": "",
		"poiCount": 0, "poiVersion": 0,
	} {
		sig[k] = def
	}
	data, err := json.Marshal(sig)
	if err != nil {
		return PageData{}, err
	}
	return PageData{
		Title:     "Atlas",
		Theme:     v.Theme,
		Signals:   string(data),
		Tile:      v.Provider,
		Providers: ProviderOptions(reg, v),
		EventsURL: "/api/v1/map/events",
		POIsURL:   "/api/v1/pois.geojson",
	}, nil
}

// Page renders the map page, creating the session cookie when needed.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	s, created := h.sessions.FromRequest(r)
	if created {
		http.SetCookie(w, session.Cookie(s))
	}

	data, err := NewPageData(h.sessions.Registry(), s.View())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("building map page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := h.Renderer.RenderToBuffer(&buf, "map.html", data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("rendering map page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}
