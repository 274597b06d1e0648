package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-atlas/internal/session"
	"github.com/joeblew999/plat-atlas/internal/theme"
)

type SessionOutput struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      session.View
}

type ThemeBody struct {
	Theme      theme.Theme      `json:"theme" enum:"light,dark" doc:"Resolved theme"`
	Preference theme.Preference `json:"preference" enum:"light,dark,system" doc:"Stored preference"`
}

type ThemeOutput struct {
	SetCookie []http.Cookie `header:"Set-Cookie"`
	Body      ThemeBody
}

type SetThemeInput struct {
	SessionInput
	Body struct {
		Preference string `json:"preference" enum:"light,dark,system" doc:"Theme preference"`
		System     string `json:"system,omitempty" required:"false" enum:"light,dark" doc:"Theme reported by the client's OS"`
	}
}

// RegisterSession registers per-browser session routes.
func (h *APIHandler) RegisterSession(api huma.API) {
	huma.Get(api, "/api/v1/session", h.GetSession, huma.OperationTags("session"))
	huma.Get(api, "/api/v1/session/theme", h.GetTheme, huma.OperationTags("session"))
	huma.Put(api, "/api/v1/session/theme", h.PutTheme, huma.OperationTags("session"))
	huma.Post(api, "/api/v1/session/theme/toggle", h.ToggleTheme, huma.OperationTags("session"))
}

func (h *APIHandler) GetSession(ctx context.Context, input *SessionInput) (*SessionOutput, error) {
	s, cookies := h.session(*input)
	return &SessionOutput{SetCookie: cookies, Body: s.View()}, nil
}

func (h *APIHandler) GetTheme(ctx context.Context, input *SessionInput) (*ThemeOutput, error) {
	s, cookies := h.session(*input)
	return &ThemeOutput{SetCookie: cookies, Body: ThemeBody{Theme: s.Resolved(), Preference: s.Preference()}}, nil
}

func (h *APIHandler) PutTheme(ctx context.Context, input *SetThemeInput) (*ThemeOutput, error) {
	s, cookies := h.session(input.SessionInput)
	pref := theme.ParsePreference(input.Body.Preference)
	resolved := s.SetTheme(pref, input.Body.System)
	cookies = append(cookies, *theme.Cookie(pref))
	return &ThemeOutput{SetCookie: cookies, Body: ThemeBody{Theme: resolved, Preference: pref}}, nil
}

func (h *APIHandler) ToggleTheme(ctx context.Context, input *SessionInput) (*ThemeOutput, error) {
	s, cookies := h.session(*input)
	resolved := s.ToggleTheme()
	pref := s.Preference()
	cookies = append(cookies, *theme.Cookie(pref))
	return &ThemeOutput{SetCookie: cookies, Body: ThemeBody{Theme: resolved, Preference: pref}}, nil
}
