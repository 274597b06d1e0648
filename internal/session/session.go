// Package session owns per-browser map state: theme, base-map choice, the
// selected country and the POI placement workflow.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joeblew999/plat-atlas/internal/country"
	"github.com/joeblew999/plat-atlas/internal/metrics"
	"github.com/joeblew999/plat-atlas/internal/poi"
	"github.com/joeblew999/plat-atlas/internal/theme"
	"github.com/joeblew999/plat-atlas/internal/tileprovider"
)

// LatLng is a map coordinate.
type LatLng struct {
	Lat float64 `json:"lat" doc:"Latitude"`
	Lng float64 `json:"lng" doc:"Longitude"`
}

// View is a consistent snapshot of a session.
type View struct {
	ID         string              `json:"id" doc:"Session ID"`
	Theme      theme.Theme         `json:"theme" enum:"light,dark" doc:"Resolved theme"`
	Preference theme.Preference    `json:"preference" enum:"light,dark,system" doc:"Theme preference"`
	Provider   tileprovider.Config `json:"provider" doc:"Active tile provider"`
	ProviderID string              `json:"providerId" doc:"Provider id highlighted in the base-map chooser"`
	Manual     bool                `json:"manual" doc:"Whether a manual provider override is set"`
	Selected   *country.Feature    `json:"selected,omitempty" doc:"Selected country"`
	Info       *country.Info       `json:"info,omitempty" doc:"Facts for the selected country; absent while loading"`
	Placing    bool                `json:"placing" doc:"Whether the next click places a POI"`
	Cursor     *LatLng             `json:"cursor,omitempty" doc:"Last reported cursor position"`
}

// ClickResult says what a map click did.
type ClickResult struct {
	Action  string           `json:"action" enum:"selected,placed,none" doc:"What the click did"`
	Country *country.Feature `json:"country,omitempty" doc:"Country selected by the click"`
	POI     *poi.POI         `json:"poi,omitempty" doc:"POI placed by the click"`
}

// Click actions.
const (
	ActionSelected = "selected"
	ActionPlaced   = "placed"
	ActionNone     = "none"
)

// Session is one browser's map state. Methods are safe for concurrent use.
type Session struct {
	ID string

	selector   *tileprovider.Selector
	loader     *country.Loader
	boundaries *country.Boundaries
	pois       poi.Store
	publish    func(kind string)
	broadcast  func(kind string)

	mu       sync.Mutex
	pref     theme.Preference
	system   string
	placing  bool
	cursor   *LatLng
	lastSeen time.Time
}

// Resolved implements theme.Source.
func (s *Session) Resolved() theme.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return theme.Resolve(s.pref, s.system)
}

// Preference returns the stored theme preference.
func (s *Session) Preference() theme.Preference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pref
}

// SetTheme stores a preference and, when non-empty, the client's system theme.
func (s *Session) SetTheme(p theme.Preference, system string) theme.Theme {
	s.mu.Lock()
	s.pref = p
	if system != "" {
		s.system = string(theme.Parse(system))
	}
	resolved := theme.Resolve(s.pref, s.system)
	s.mu.Unlock()

	metrics.ThemeChanges.WithLabelValues(string(resolved)).Inc()
	s.publish(KindTheme)
	return resolved
}

// ToggleTheme flips the resolved theme and pins it as an explicit preference.
func (s *Session) ToggleTheme() theme.Theme {
	next := s.Resolved().Toggle()
	return s.SetTheme(theme.Preference(next), "")
}

// Selector exposes the session's tile-provider selector.
func (s *Session) Selector() *tileprovider.Selector {
	return s.selector
}

// ActiveProvider resolves the tile provider for the current theme.
func (s *Session) ActiveProvider() tileprovider.Config {
	return s.selector.For(s)
}

// SetProvider stores a manual override; nil resumes theme-driven selection.
func (s *Session) SetProvider(id *string) {
	s.selector.SetProviderID(id)
	label := "auto"
	if id != nil {
		label = *id
		if _, ok := s.selector.Registry().ByID(*id); !ok {
			label = "unknown"
		}
	}
	metrics.ProviderSelections.WithLabelValues(label).Inc()
	s.publish(KindProvider)
}

// SetPlacing turns POI placement mode on or off.
func (s *Session) SetPlacing(on bool) {
	s.mu.Lock()
	s.placing = on
	s.mu.Unlock()
	s.publish(KindPlacing)
}

// Move records the cursor position.
func (s *Session) Move(lat, lng float64) {
	s.mu.Lock()
	s.cursor = &LatLng{Lat: lat, Lng: lng}
	s.mu.Unlock()
	s.publish(KindCursor)
}

// Click routes a map click: in placement mode it drops a POI and leaves
// placement mode, otherwise it selects the country under the point.
func (s *Session) Click(ctx context.Context, lat, lng float64) (ClickResult, error) {
	s.mu.Lock()
	placing := s.placing
	s.mu.Unlock()

	feat, inCountry := s.boundaries.Locate(lat, lng)

	if placing {
		code := ""
		if inCountry && feat.Fetchable() {
			code = feat.ISO2
		}
		created, err := s.pois.Create(ctx, poi.New("", lat, lng, code))
		if err != nil {
			return ClickResult{}, fmt.Errorf("placing poi: %w", err)
		}
		metrics.POIsPlaced.Inc()

		s.mu.Lock()
		s.placing = false
		s.mu.Unlock()
		s.broadcast(KindPOI)
		s.publish(KindPlacing)
		return ClickResult{Action: ActionPlaced, POI: &created}, nil
	}

	if !inCountry {
		return ClickResult{Action: ActionNone}, nil
	}
	s.Select(feat)
	return ClickResult{Action: ActionSelected, Country: &feat}, nil
}

// Select makes f the selected country and starts fetching its facts.
func (s *Session) Select(f country.Feature) {
	s.loader.Select(f)
	s.publish(KindSelection)
}

// ClearSelection closes the country panel.
func (s *Session) ClearSelection() {
	s.loader.Clear()
	s.publish(KindSelection)
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	pref, placing := s.pref, s.placing
	resolved := theme.Resolve(s.pref, s.system)
	var cursor *LatLng
	if s.cursor != nil {
		c := *s.cursor
		cursor = &c
	}
	s.mu.Unlock()

	_, manual := s.selector.Override()
	selected, info := s.loader.Snapshot()
	return View{
		ID:         s.ID,
		Theme:      resolved,
		Preference: pref,
		Provider:   s.selector.Active(resolved),
		ProviderID: s.selector.CurrentID(resolved),
		Manual:     manual,
		Selected:   selected,
		Info:       info,
		Placing:    placing,
		Cursor:     cursor,
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
