package humastar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/stretchr/testify/require"
)

func TestParseSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"lat": 48.5, "providerId": "topo", "placing": true}`))
	require.NoError(t, err)

	lat, ok := s.Float("lat")
	require.True(t, ok)
	require.Equal(t, 48.5, lat)
	_, ok = s.Float("lng")
	require.False(t, ok)
	require.Equal(t, "topo", s.String("providerId"))
	require.True(t, s.Bool("placing"))
	require.False(t, s.Has("missing"))

	empty, err := ParseSignals(nil)
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = (&SignalsInput{RawBody: []byte("{")}).MustParse()
	require.Error(t, err)
}

func TestPage(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}

	p := Page(all, 2, 2)
	require.Equal(t, []int{3, 4}, p.Data)
	require.Equal(t, 5, p.Total)
	require.Equal(t, []string{
		`</x?offset=0&limit=2>; rel="first"`,
		`</x?offset=0&limit=2>; rel="prev"`,
		`</x?offset=4&limit=2>; rel="next"`,
		`</x?offset=4&limit=2>; rel="last"`,
	}, p.PaginationLinks("/x"))

	p = Page(all, 10, 2)
	require.Empty(t, p.Data)
	require.Equal(t, 5, p.Offset)

	p = Page(all, 0, 0)
	require.Len(t, p.Data, 5)
	require.Equal(t, 5, p.Limit)

	p = Page([]int{}, 0, 0)
	require.Nil(t, p.PaginationLinks("/x"))
}

func TestActionsFor(t *testing.T) {
	actions := ActionsFor("42", []ActionDef{
		{Rel: "delete", Pattern: "/api/v1/pois/%s", Method: "DELETE", Title: "Remove pin"},
	})
	require.Len(t, actions, 1)
	require.Equal(t, `</api/v1/pois/42>; rel="delete"; method="DELETE"; title="Remove pin"`, actions[0].LinkHeader())
}

func TestParseLinkHeader(t *testing.T) {
	rel, href := parseLinkHeader(`</api/v1/pois>; rel="collection"`)
	require.Equal(t, "collection", rel)
	require.Equal(t, "/api/v1/pois", href)

	rel, _ = parseLinkHeader("garbage")
	require.Empty(t, rel)
}

type thing struct {
	ID string `json:"id"`
}

func (thing) Actions() []Action {
	return []Action{{Rel: "delete", Href: "/things/1", Method: "DELETE"}}
}

func TestLinksTransformer(t *testing.T) {
	links := NewLinks("map")
	mux := http.NewServeMux()
	cfg := huma.DefaultConfig("test", "1.0.0")
	cfg.CreateHooks = nil
	cfg.Transformers = append(cfg.Transformers, links.Transformer())
	api := humago.New(mux, cfg)

	huma.Get(api, "/health", func(ctx context.Context, _ *EmptyInput) (*struct{ Body string }, error) {
		return &struct{ Body string }{Body: "ok"}, nil
	}, huma.OperationTags("health"))
	huma.Get(api, "/things", func(ctx context.Context, _ *EmptyInput) (*struct{ Body []thing }, error) {
		return &struct{ Body []thing }{Body: []thing{}}, nil
	}, huma.OperationTags("things"))
	huma.Get(api, "/things/{id}", func(ctx context.Context, in *struct {
		ID string `path:"id"`
	}) (*struct{ Body thing }, error) {
		return &struct{ Body thing }{Body: thing{ID: in.ID}}, nil
	}, huma.OperationTags("things"))
	huma.Get(api, "/stream", func(ctx context.Context, _ *EmptyInput) (*struct{ Body string }, error) {
		return &struct{ Body string }{Body: "sse"}, nil
	}, huma.OperationTags("map"))
	links.Build(api)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := rec.Header().Values("Link")
	require.Contains(t, got, `</things>; rel="collection"`)
	require.Contains(t, got, `</things/1>; rel="self"`)
	require.Contains(t, got, `</things/1>; rel="delete"; method="DELETE"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Contains(t, rec.Header().Values("Link"), `</things>; rel="things"`)
	require.NotContains(t, rec.Header().Values("Link"), `</stream>; rel="stream"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))
	require.Empty(t, rec.Header().Values("Link"))
}
