// Package api defines the Huma REST routes and handlers.
package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-atlas/internal/country"
	"github.com/joeblew999/plat-atlas/internal/session"
	"github.com/joeblew999/plat-atlas/internal/theme"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Deps holds what the REST handlers need.
type Deps struct {
	Sessions *session.Manager
	Fetcher  country.Fetcher
	DataDir  string
	Store    string // POI store backend name, for /api/v1/info
}

// APIHandler holds all REST API handlers. Methods named Register* are
// discovered by huma.AutoRegister.
type APIHandler struct {
	deps Deps
}

func NewAPIHandler(deps Deps) *APIHandler {
	return &APIHandler{deps: deps}
}

// Types

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

type InfoBody struct {
	Name      string   `json:"name" doc:"Service name"`
	Version   string   `json:"version" doc:"Service version"`
	DataDir   string   `json:"data_dir" doc:"Data directory path"`
	POIStore  string   `json:"poi_store" doc:"POI storage backend" enum:"duckdb,file,memory"`
	Providers int      `json:"providers" doc:"Registered tile providers"`
	Countries int      `json:"countries" doc:"Loaded country boundaries"`
	Sessions  int      `json:"sessions" doc:"Live map sessions"`
	Features  []string `json:"features" doc:"Available features"`
}

// SessionInput carries the browser cookies that identify a map session.
type SessionInput struct {
	Session string `cookie:"atlas_session" doc:"Map session id"`
	Theme   string `cookie:"atlas_theme" doc:"Stored theme preference"`
}

// session resolves the caller's session, returning the cookie to set when
// a new one was created.
func (h *APIHandler) session(in SessionInput) (*session.Session, []http.Cookie) {
	s, created := h.deps.Sessions.Ensure(in.Session, theme.ParsePreference(in.Theme))
	if !created {
		return s, nil
	}
	return s, []http.Cookie{*session.Cookie(s)}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	m := h.deps.Sessions
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:      "plat-atlas",
		Version:   Version,
		DataDir:   h.deps.DataDir,
		POIStore:  h.deps.Store,
		Providers: len(m.Registry().List()),
		Countries: m.Boundaries().Len(),
		Sessions:  m.Len(),
		Features:  []string{"tile-providers", "themes", "countries", "pois", "datastar"},
	}}, nil
}

func logErr(ctx context.Context, err error, msg string) {
	zerolog.Ctx(ctx).Error().Err(err).Msg(msg)
}
