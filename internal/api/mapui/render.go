package mapui

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-atlas/internal/humastar"
	"github.com/joeblew999/plat-atlas/internal/session"
	"github.com/joeblew999/plat-atlas/internal/tileprovider"
)

// Patch targets on the map page.
const (
	panelSelector     = "#country-panel"
	providersSelector = "#provider-options"
	poiListSelector   = "#poi-list"
)

// AutoID is the chooser entry that clears a manual override.
const AutoID = tileprovider.AutoID

// PanelData feeds the country-panel fragment.
type PanelData struct {
	Name        string
	Code        string
	Summary     string
	Population  string
	Area        string
	Capital     string
	Currency    string
	Languages   string
	FlagURL     string
	Loading     bool
	CloseAction string
}

// ProviderOption feeds the provider-option fragment.
type ProviderOption struct {
	ID         string
	Name       string
	PreviewURL string
	Active     bool
	Action     string
}

// Signals returns the Datastar signals describing v.
func Signals(v session.View) map[string]any {
	p := v.Provider
	subdomains := p.Subdomains
	if subdomains == nil {
		subdomains = []string{}
	}
	cursor := ""
	if v.Cursor != nil {
		cursor = fmt.Sprintf("%.5f, %.5f", v.Cursor.Lat, v.Cursor.Lng)
	}
	return map[string]any{
		"tileUrl":         p.URL,
		"tileAttribution": p.Attribution,
		"tileMaxZoom":     p.MaxZoom,
		"tileSubdomains":  subdomains,
		"providerId":      v.ProviderID,
		"manual":          v.Manual,
		"theme":           string(v.Theme),
		"themePreference": string(v.Preference),
		"placing":         v.Placing,
		"cursor":          cursor,
	}
}

// Panel returns the country panel for v, or false when nothing is selected.
func Panel(v session.View) (PanelData, bool) {
	if v.Selected == nil {
		return PanelData{}, false
	}
	f := v.Selected
	d := PanelData{
		Name:        f.Name,
		Code:        f.ISO3,
		CloseAction: "/api/v1/map/close",
		Loading:     v.Info == nil,
	}
	if f.Fetchable() {
		d.Code = f.ISO2
	}
	if info := v.Info; info != nil {
		d.Summary = info.Summary(f.Name)
		d.Population = info.FormattedPopulation()
		d.Area = info.FormattedArea()
		d.Capital = info.Capital()
		d.Currency = info.Currency()
		d.Languages = info.LanguageList()
		d.FlagURL = info.Flags.SVG
		if d.FlagURL == "" {
			d.FlagURL = info.Flags.PNG
		}
	}
	return d, true
}

// ProviderOptions lists the chooser entries, automatic mode first. Exactly one
// entry is active: automatic, or the manual override.
func ProviderOptions(reg *tileprovider.Registry, v session.View) []ProviderOption {
	lat, lng := 0.0, 0.0
	if v.Cursor != nil {
		lat, lng = v.Cursor.Lat, v.Cursor.Lng
	}
	opts := []ProviderOption{{
		ID:     AutoID,
		Name:   "Automatic (follows theme)",
		Active: !v.Manual,
		Action: "/api/v1/map/provider",
	}}
	for _, p := range reg.List() {
		opts = append(opts, ProviderOption{
			ID:         p.ID,
			Name:       p.Name,
			PreviewURL: tileprovider.PreviewURL(p, lat, lng, 2),
			Active:     v.Manual && p.ID == v.ProviderID,
			Action:     "/api/v1/map/provider",
		})
	}
	return opts
}

// push sends the parts of the page affected by kinds. No kinds sends
// everything.
func (h *Handler) push(ctx context.Context, sse humastar.SSE, s *session.Session, kinds ...string) {
	want := map[string]bool{}
	for _, k := range kinds {
		want[k] = true
	}
	all := len(kinds) == 0
	v := s.View()

	if all || want[session.KindTheme] || want[session.KindProvider] || want[session.KindPlacing] || want[session.KindCursor] {
		sse.Signals(Signals(v))
	}
	if all || want[session.KindTheme] || want[session.KindProvider] {
		sse.Patch(h.renderProviders(v), providersSelector)
	}
	if all || want[session.KindSelection] || want[session.KindCountry] {
		sse.Patch(h.renderPanel(v), panelSelector)
	}
	if all || want[session.KindPOI] {
		h.pushPOIs(ctx, sse)
	}
}

func (h *Handler) pushPOIs(ctx context.Context, sse humastar.SSE) {
	pois, err := h.sessions.POIs().List(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("listing pois for map")
		sse.Error("Could not load pins")
		return
	}
	items := make([]any, len(pois))
	for i, p := range pois {
		items[i] = p
	}
	sse.Patch(h.RenderList("poi-item", items, "No pins yet", "Turn on placement and click the map"), poiListSelector)
	// the page reloads its GeoJSON pin layer whenever poiVersion changes
	sse.Signals(map[string]any{"poiCount": len(pois), "poiVersion": time.Now().UnixMilli()})
}

func (h *Handler) renderPanel(v session.View) string {
	d, ok := Panel(v)
	if !ok {
		return h.Render("country-panel-closed", nil)
	}
	return h.Render("country-panel", d)
}

func (h *Handler) renderProviders(v session.View) string {
	opts := ProviderOptions(h.sessions.Registry(), v)
	items := make([]any, len(opts))
	for i, o := range opts {
		items[i] = o
	}
	return h.RenderList("provider-option", items, "No base maps", "The provider registry is empty")
}
