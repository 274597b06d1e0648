package mapui

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-atlas/internal/humastar"
)

// Events streams the session's map state to the page: one full render, then
// a partial render per change event until the client disconnects.
func (h *Handler) Events(ctx context.Context, input *SessionInput) (*huma.StreamResponse, error) {
	s, cookies := h.session(*input)
	return h.Stream(func(sse humastar.SSE) {
		ch := h.sessions.Bus().Subscribe(s.ID)
		defer h.sessions.Bus().Unsubscribe(ch)

		h.push(ctx, sse, s)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				h.push(ctx, sse, s, ev.Kind)
			}
		}
	}, cookies...), nil
}
