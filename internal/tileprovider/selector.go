package tileprovider

import (
	"sync"

	"github.com/joeblew999/plat-atlas/internal/theme"
)

// Resolve picks the provider to render for a resolved theme and an optional
// manual override. Unknown ids fall back to the registry default.
func Resolve(r *Registry, t theme.Theme, override *string) Config {
	if override != nil {
		if p, ok := r.ByID(*override); ok {
			return p
		}
		return r.Default()
	}
	if t == theme.Dark {
		if p, ok := r.ByID(DarkID); ok {
			return p
		}
	}
	return r.Default()
}

// CurrentID is the id the base-map chooser highlights. The override is
// reported as-is even when the registry no longer knows it.
func CurrentID(r *Registry, t theme.Theme, override *string) string {
	if override != nil {
		return *override
	}
	if t == theme.Dark {
		return DarkID
	}
	return r.DefaultID()
}

// Selector holds one map's manual override. A manual choice survives theme
// changes until it is cleared with SetProviderID(nil) or replaced.
type Selector struct {
	registry *Registry

	mu     sync.RWMutex
	manual *string
}

// NewSelector creates a selector in automatic mode.
func NewSelector(r *Registry) *Selector {
	return &Selector{registry: r}
}

// Active returns the provider to render for the resolved theme.
func (s *Selector) Active(t theme.Theme) Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Resolve(s.registry, t, s.manual)
}

// For returns the provider to render for whatever theme src reports.
func (s *Selector) For(src theme.Source) Config {
	return s.Active(src.Resolved())
}

// CurrentID returns the highlighted provider id for the resolved theme.
func (s *Selector) CurrentID(t theme.Theme) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CurrentID(s.registry, t, s.manual)
}

// SetProviderID stores id as the manual override without validating it.
// nil returns the selector to theme-driven selection.
func (s *Selector) SetProviderID(id *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == nil {
		s.manual = nil
		return
	}
	v := *id
	s.manual = &v
}

// Override returns the stored override, if any.
func (s *Selector) Override() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manual == nil {
		return "", false
	}
	return *s.manual, true
}

// Registry returns the registry the selector resolves against.
func (s *Selector) Registry() *Registry {
	return s.registry
}
