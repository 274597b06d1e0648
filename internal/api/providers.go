package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-atlas/internal/humastar"
	"github.com/joeblew999/plat-atlas/internal/theme"
	"github.com/joeblew999/plat-atlas/internal/tileprovider"
)

type ProvidersBody struct {
	Default   string                `json:"default" doc:"Default provider id" example:"osm"`
	Providers []tileprovider.Config `json:"providers" doc:"Providers in chooser order"`
}

type ProviderIDInput struct {
	ID string `path:"id" doc:"Provider ID" example:"dark"`
}

type ProviderStateBody struct {
	ID       string              `json:"id" doc:"Provider id highlighted in the chooser"`
	Override *string             `json:"override" doc:"Manual override, null when following the theme"`
	Theme    theme.Theme         `json:"theme" enum:"light,dark" doc:"Resolved theme"`
	Active   tileprovider.Config `json:"active" doc:"Tile provider currently rendered"`
}

// Actions offers a reset link while a manual override is set.
func (b ProviderStateBody) Actions() []humastar.Action {
	if b.Override == nil {
		return nil
	}
	return []humastar.Action{{
		Rel:    "reset",
		Href:   "/api/v1/session/provider",
		Method: "PUT",
		Title:  "Follow the theme again",
	}}
}

type ProviderStateOutput struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      ProviderStateBody
}

type SetProviderInput struct {
	SessionInput
	Body struct {
		ID *string `json:"id,omitempty" required:"false" nullable:"true" doc:"Provider id; null or empty resumes theme-driven selection" example:"topo"`
	}
}

// RegisterProviders registers tile provider routes.
func (h *APIHandler) RegisterProviders(api huma.API) {
	huma.Get(api, "/api/v1/providers", h.ListProviders, huma.OperationTags("providers"))
	huma.Get(api, "/api/v1/providers/{id}", h.GetProvider, huma.OperationTags("providers"))
	huma.Get(api, "/api/v1/session/provider", h.GetSessionProvider, huma.OperationTags("session"))
	huma.Put(api, "/api/v1/session/provider", h.PutSessionProvider, huma.OperationTags("session"))
}

func (h *APIHandler) ListProviders(ctx context.Context, input *struct{}) (*struct{ Body ProvidersBody }, error) {
	reg := h.deps.Sessions.Registry()
	return &struct{ Body ProvidersBody }{Body: ProvidersBody{
		Default:   reg.DefaultID(),
		Providers: reg.List(),
	}}, nil
}

func (h *APIHandler) GetProvider(ctx context.Context, input *ProviderIDInput) (*struct{ Body tileprovider.Config }, error) {
	p, ok := h.deps.Sessions.Registry().ByID(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("provider not found")
	}
	return &struct{ Body tileprovider.Config }{Body: p}, nil
}

func (h *APIHandler) GetSessionProvider(ctx context.Context, input *SessionInput) (*ProviderStateOutput, error) {
	s, cookies := h.session(*input)
	return &ProviderStateOutput{SetCookie: cookies, Body: providerState(s.Selector(), s.Resolved())}, nil
}

func (h *APIHandler) PutSessionProvider(ctx context.Context, input *SetProviderInput) (*ProviderStateOutput, error) {
	s, cookies := h.session(input.SessionInput)
	id := input.Body.ID
	if id != nil && strings.TrimSpace(*id) == "" {
		id = nil
	}
	s.SetProvider(id)
	return &ProviderStateOutput{SetCookie: cookies, Body: providerState(s.Selector(), s.Resolved())}, nil
}

func providerState(sel *tileprovider.Selector, t theme.Theme) ProviderStateBody {
	body := ProviderStateBody{
		ID:     sel.CurrentID(t),
		Theme:  t,
		Active: sel.Active(t),
	}
	if id, ok := sel.Override(); ok {
		body.Override = &id
	}
	return body
}
