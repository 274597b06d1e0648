package mapui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-atlas/internal/humastar"
	"github.com/joeblew999/plat-atlas/internal/poi"
	"github.com/joeblew999/plat-atlas/internal/session"
	"github.com/joeblew999/plat-atlas/internal/theme"
)

// coords reads the lat/lng signals posted by the map.
func coords(signals humastar.Signals) (lat, lng float64, err error) {
	lat, okLat := signals.Float("lat")
	lng, okLng := signals.Float("lng")
	if !okLat || !okLng {
		return 0, 0, huma.Error400BadRequest("lat and lng are required")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, huma.Error422UnprocessableEntity("coordinates out of range")
	}
	return lat, lng, nil
}

func parse(input *SignalsInput) (humastar.Signals, error) {
	return (&humastar.SignalsInput{RawBody: input.RawBody}).MustParse()
}

// Click routes a map click to country selection or POI placement.
func (h *Handler) Click(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := parse(input)
	if err != nil {
		return nil, err
	}
	lat, lng, err := coords(signals)
	if err != nil {
		return nil, err
	}
	s, cookies := h.session(input.SessionInput)

	return h.Stream(func(sse humastar.SSE) {
		res, err := s.Click(ctx, lat, lng)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("map click failed")
			sse.Error("Could not place the pin")
			return
		}
		switch res.Action {
		case session.ActionPlaced:
			sse.Success(fmt.Sprintf("%s placed", res.POI.Name))
			h.push(ctx, sse, s, session.KindPlacing, session.KindPOI)
		case session.ActionSelected:
			h.push(ctx, sse, s, session.KindSelection)
		}
	}, cookies...), nil
}

// Move records the cursor position.
func (h *Handler) Move(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := parse(input)
	if err != nil {
		return nil, err
	}
	lat, lng, err := coords(signals)
	if err != nil {
		return nil, err
	}
	s, cookies := h.session(input.SessionInput)
	s.Move(lat, lng)

	return h.Stream(func(sse humastar.SSE) {
		h.push(ctx, sse, s, session.KindCursor)
	}, cookies...), nil
}

// Provider applies the base-map chooser; "auto" or "" clears the override.
func (h *Handler) Provider(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := parse(input)
	if err != nil {
		return nil, err
	}
	s, cookies := h.session(input.SessionInput)

	id := strings.TrimSpace(signals.String("providerId"))
	if id == "" || id == AutoID {
		s.SetProvider(nil)
	} else {
		s.SetProvider(&id)
	}

	return h.Stream(func(sse humastar.SSE) {
		h.push(ctx, sse, s, session.KindProvider)
	}, cookies...), nil
}

// Theme stores the posted preference and the client's system theme.
func (h *Handler) Theme(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := parse(input)
	if err != nil {
		return nil, err
	}
	s, cookies := h.session(input.SessionInput)

	pref := s.Preference()
	if signals.Has("themePreference") {
		pref = theme.ParsePreference(signals.String("themePreference"))
	}
	s.SetTheme(pref, signals.String("systemTheme"))

	return h.Stream(func(sse humastar.SSE) {
		h.push(ctx, sse, s, session.KindTheme)
	}, append(cookies, theme.Cookie(pref))...), nil
}

// ToggleTheme flips between light and dark.
func (h *Handler) ToggleTheme(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	s, cookies := h.session(*input)
	s.ToggleTheme()

	return h.Stream(func(sse humastar.SSE) {
		h.push(ctx, sse, s, session.KindTheme)
	}, append(cookies, theme.Cookie(s.Preference()))...), nil
}

// Close clears the selected country.
func (h *Handler) Close(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	s, cookies := h.session(*input)
	s.ClearSelection()

	return h.Stream(func(sse humastar.SSE) {
		h.push(ctx, sse, s, session.KindSelection)
	}, cookies...), nil
}

// Placing turns POI placement mode on or off.
func (h *Handler) Placing(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := parse(input)
	if err != nil {
		return nil, err
	}
	s, cookies := h.session(input.SessionInput)
	s.SetPlacing(signals.Bool("placing"))

	return h.Stream(func(sse humastar.SSE) {
		h.push(ctx, sse, s, session.KindPlacing)
	}, cookies...), nil
}

// DeletePOI removes a pin from the list.
func (h *Handler) DeletePOI(ctx context.Context, input *POIInput) (*huma.StreamResponse, error) {
	_, cookies := h.session(input.SessionInput)

	return h.Stream(func(sse humastar.SSE) {
		err := h.sessions.POIs().Delete(ctx, input.ID)
		if errors.Is(err, poi.ErrNotFound) {
			sse.Error("Pin not found")
			return
		}
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("poi", input.ID).Msg("deleting poi")
			sse.Error("Could not remove the pin")
			return
		}
		sse.RemoveElementByID("poi-" + input.ID)
		sse.Success("Pin removed")
		h.sessions.Broadcast(session.KindPOI)
	}, cookies...), nil
}
