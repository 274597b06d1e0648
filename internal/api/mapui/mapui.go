// Package mapui contains the Datastar SSE handlers behind the map page.
package mapui

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-atlas/internal/humastar"
	"github.com/joeblew999/plat-atlas/internal/session"
	"github.com/joeblew999/plat-atlas/internal/templates"
	"github.com/joeblew999/plat-atlas/internal/theme"
)

// Tag marks the map UI operations; they get no REST Link headers.
const Tag = "map"

// Handler serves the map page's SSE endpoints.
type Handler struct {
	humastar.Handler
	sessions *session.Manager
}

// NewHandler creates a map UI handler.
func NewHandler(sessions *session.Manager, renderer *templates.Renderer) *Handler {
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
	}
}

// SessionInput carries the cookies identifying the browser's session.
type SessionInput struct {
	Session string `cookie:"atlas_session"`
	Theme   string `cookie:"atlas_theme"`
}

// SignalsInput is a session plus the Datastar signals posted with the action.
type SignalsInput struct {
	SessionInput
	RawBody []byte
}

type POIInput struct {
	SessionInput
	ID string `path:"id" doc:"POI ID"`
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/map/events", h.Events, huma.OperationTags(Tag))
	huma.Post(api, "/api/v1/map/click", h.Click, huma.OperationTags(Tag))
	huma.Post(api, "/api/v1/map/move", h.Move, huma.OperationTags(Tag))
	huma.Post(api, "/api/v1/map/provider", h.Provider, huma.OperationTags(Tag))
	huma.Post(api, "/api/v1/map/theme", h.Theme, huma.OperationTags(Tag))
	huma.Post(api, "/api/v1/map/theme/toggle", h.ToggleTheme, huma.OperationTags(Tag))
	huma.Post(api, "/api/v1/map/close", h.Close, huma.OperationTags(Tag))
	huma.Post(api, "/api/v1/map/placing", h.Placing, huma.OperationTags(Tag))
	huma.Delete(api, "/api/v1/map/pois/{id}", h.DeletePOI, huma.OperationTags(Tag))
}

// session resolves the caller's session and the cookies to set when it is new.
func (h *Handler) session(in SessionInput) (*session.Session, []*http.Cookie) {
	s, created := h.sessions.Ensure(in.Session, theme.ParsePreference(in.Theme))
	if !created {
		return s, nil
	}
	return s, []*http.Cookie{session.Cookie(s)}
}
