// Package theme resolves the light/dark theme the map is rendered in.
package theme

import (
	"net/http"
	"strings"
	"time"
)

// Theme is a resolved theme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Preference is what the user asked for; System defers to the client.
type Preference string

const (
	PreferLight  Preference = "light"
	PreferDark   Preference = "dark"
	PreferSystem Preference = "system"
)

// Parse returns the theme named by s. Anything other than "dark" is light.
func Parse(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), string(Dark)) {
		return Dark
	}
	return Light
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// ParsePreference parses a stored preference, defaulting to system.
func ParsePreference(s string) Preference {
	switch Preference(strings.ToLower(strings.TrimSpace(s))) {
	case PreferLight:
		return PreferLight
	case PreferDark:
		return PreferDark
	default:
		return PreferSystem
	}
}

// Resolve turns a preference into a concrete theme. system is the theme the
// client reported; when it is unknown the result is light.
func Resolve(p Preference, system string) Theme {
	switch p {
	case PreferLight:
		return Light
	case PreferDark:
		return Dark
	default:
		return Parse(system)
	}
}

// Source exposes the current resolved theme.
type Source interface {
	Resolved() Theme
}

// Fixed is a Source that always reports the same theme.
type Fixed Theme

// Resolved implements Source.
func (f Fixed) Resolved() Theme {
	if f == "" {
		return Light
	}
	return Theme(f)
}

// CookieName stores the preference in the browser.
const CookieName = "atlas_theme"

// Cookie builds the preference cookie.
func Cookie(p Preference) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    string(p),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	}
}

// FromRequest reads the preference cookie, defaulting to system.
func FromRequest(r *http.Request) Preference {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return PreferSystem
	}
	return ParsePreference(c.Value)
}
