package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-atlas/internal/country"
	"github.com/joeblew999/plat-atlas/internal/metrics"
	"github.com/joeblew999/plat-atlas/internal/poi"
	"github.com/joeblew999/plat-atlas/internal/theme"
	"github.com/joeblew999/plat-atlas/internal/tileprovider"
)

// CookieName carries the session id.
const CookieName = "atlas_session"

// DefaultIdleTimeout expires sessions nobody has touched for this long.
const DefaultIdleTimeout = 2 * time.Hour

// Deps are the collaborators shared by every session.
type Deps struct {
	Registry   *tileprovider.Registry
	Boundaries *country.Boundaries
	Fetcher    country.Fetcher
	POIs       poi.Store
	Log        zerolog.Logger
}

// Manager creates and tracks sessions.
type Manager struct {
	deps Deps
	bus  *EventBus
	base context.Context
	stop context.CancelFunc
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager. Country fetches run under ctx and are
// cancelled by Close.
func NewManager(ctx context.Context, deps Deps) *Manager {
	if deps.Registry == nil {
		deps.Registry = tileprovider.Builtin()
	}
	if deps.POIs == nil {
		deps.POIs = poi.NewMemoryStore()
	}
	base, stop := context.WithCancel(ctx)
	return &Manager{
		deps:     deps,
		bus:      NewEventBus(),
		base:     base,
		stop:     stop,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Bus returns the event bus sessions publish on.
func (m *Manager) Bus() *EventBus {
	return m.bus
}

// Registry returns the tile-provider registry.
func (m *Manager) Registry() *tileprovider.Registry {
	return m.deps.Registry
}

// Boundaries returns the country boundaries index.
func (m *Manager) Boundaries() *country.Boundaries {
	return m.deps.Boundaries
}

// POIs returns the POI store.
func (m *Manager) POIs() poi.Store {
	return m.deps.POIs
}

// Broadcast publishes an event to every session's subscribers.
func (m *Manager) Broadcast(kind string) {
	m.bus.Publish(Event{Kind: kind})
}

// Get returns an existing session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.touch(m.now())
	}
	return s, ok
}

// Ensure returns the session for id, creating one (with a fresh id) when id
// is empty or unknown. pref seeds the theme of a new session.
func (m *Manager) Ensure(id string, pref theme.Preference) (*Session, bool) {
	if s, ok := m.Get(id); ok {
		return s, false
	}

	s := m.newSession(uuid.NewString(), pref)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	metrics.Sessions.Inc()
	m.deps.Log.Debug().Str("session", s.ID).Msg("session created")
	return s, true
}

// FromRequest resolves the session named by the request cookies.
func (m *Manager) FromRequest(r *http.Request) (*Session, bool) {
	id := ""
	if c, err := r.Cookie(CookieName); err == nil {
		id = c.Value
	}
	return m.Ensure(id, theme.FromRequest(r))
}

// Cookie builds the session cookie for s.
func Cookie(s *Session) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Expire drops sessions idle for longer than idle and returns how many.
// A session with an open event stream counts as active.
func (m *Manager) Expire(idle time.Duration) int {
	now := m.now()
	cutoff := now.Add(-idle)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if m.bus.Watching(id) {
			s.touch(now)
			continue
		}
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.loader.Close()
		metrics.Sessions.Dec()
	}
	return len(stale)
}

// Run expires idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Expire(idle); n > 0 {
				m.deps.Log.Debug().Int("expired", n).Msg("expired idle sessions")
			}
		}
	}
}

// Close cancels all fetches in flight.
func (m *Manager) Close() {
	m.stop()
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.loader.Wait()
	}
}

func (m *Manager) newSession(id string, pref theme.Preference) *Session {
	if pref == "" {
		pref = theme.PreferSystem
	}
	publish := func(kind string) {
		m.bus.Publish(Event{Session: id, Kind: kind})
	}
	log := m.deps.Log.With().Str("session", id).Logger()

	return &Session{
		ID:         id,
		selector:   tileprovider.NewSelector(m.deps.Registry),
		loader:     country.NewLoader(m.base, m.deps.Fetcher, log, func() { publish(KindCountry) }),
		boundaries: m.deps.Boundaries,
		pois:       m.deps.POIs,
		publish:    publish,
		broadcast:  m.Broadcast,
		pref:       pref,
		lastSeen:   m.now(),
	}
}
