package mapui

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-atlas/internal/country"
	"github.com/joeblew999/plat-atlas/internal/poi"
	"github.com/joeblew999/plat-atlas/internal/session"
	"github.com/joeblew999/plat-atlas/internal/templates"
	"github.com/joeblew999/plat-atlas/internal/theme"
	"github.com/joeblew999/plat-atlas/internal/tileprovider"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, iso2 string) (*country.Info, error) {
	info := &country.Info{Region: "Europe", Capitals: []string{"Paris"}, Population: 1234567}
	info.Name.Official = "French Republic"
	info.Flags.SVG = "https://flags.example/fr.svg"
	return info, nil
}

func setup(t *testing.T) (*Handler, *http.ServeMux) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "country", "testdata", "countries.geojson"))
	require.NoError(t, err)
	bounds, err := country.ParseBoundaries(data)
	require.NoError(t, err)

	sessions := session.NewManager(context.Background(), session.Deps{
		Registry:   tileprovider.Builtin(),
		Boundaries: bounds,
		Fetcher:    stubFetcher{},
		POIs:       poi.NewMemoryStore(),
		Log:        zerolog.Nop(),
	})
	t.Cleanup(sessions.Close)

	renderer, err := templates.New()
	require.NoError(t, err)

	mux := http.NewServeMux()
	cfg := huma.DefaultConfig("test", "1.0.0")
	cfg.CreateHooks = nil
	api := humago.New(mux, cfg)
	h := NewHandler(sessions, renderer)
	h.RegisterRoutes(api)
	mux.HandleFunc("GET /map", h.Page)
	return h, mux
}

func post(t *testing.T, mux *http.ServeMux, path, body string, c *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Datastar-Request", "true")
	if c != nil {
		r.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, r)
	return rec
}

func TestSignalsFollowProvider(t *testing.T) {
	reg := tileprovider.Builtin()
	sel := tileprovider.NewSelector(reg)
	v := session.View{
		Theme:      theme.Dark,
		Preference: theme.PreferDark,
		Provider:   sel.Active(theme.Dark),
		ProviderID: sel.CurrentID(theme.Dark),
		Cursor:     &session.LatLng{Lat: 1.5, Lng: -2.25},
	}
	sig := Signals(v)
	require.Equal(t, "dark", sig["providerId"])
	require.Equal(t, 20, sig["tileMaxZoom"])
	require.Equal(t, []string{"a", "b", "c", "d"}, sig["tileSubdomains"])
	require.Equal(t, "1.50000, -2.25000", sig["cursor"])

	v.Provider = reg.Default()
	require.Equal(t, []string{}, Signals(v)["tileSubdomains"])

	activeIDs := func(opts []ProviderOption) []string {
		var ids []string
		for _, o := range opts {
			if o.Active {
				ids = append(ids, o.ID)
			}
		}
		return ids
	}

	opts := ProviderOptions(reg, v)
	require.Equal(t, AutoID, opts[0].ID)
	for _, o := range opts[1:] {
		require.NotEmpty(t, o.PreviewURL)
	}
	require.Equal(t, []string{AutoID}, activeIDs(opts), "automatic mode highlights only the automatic entry")

	sel.SetProviderID(ptr("topo"))
	v.Manual = true
	v.ProviderID = sel.CurrentID(theme.Dark)
	require.Equal(t, []string{"topo"}, activeIDs(ProviderOptions(reg, v)))
}

func ptr(s string) *string { return &s }

func TestPanel(t *testing.T) {
	_, ok := Panel(session.View{})
	require.False(t, ok)

	f := &country.Feature{Name: "Northern Cyprus", ISO2: "-99", ISO3: "-99"}
	d, ok := Panel(session.View{Selected: f})
	require.True(t, ok)
	require.True(t, d.Loading)
	require.Equal(t, "-99", d.Code)

	info, _ := stubFetcher{}.Fetch(context.Background(), "FR")
	d, _ = Panel(session.View{Selected: &country.Feature{Name: "France", ISO2: "FR", ISO3: "FRA"}, Info: info})
	require.False(t, d.Loading)
	require.Equal(t, "FR", d.Code)
	require.Equal(t, "1,234,567", d.Population)
	require.Equal(t, "https://flags.example/fr.svg", d.FlagURL)
	require.Equal(t, "French Republic is a country in Europe. The capital is Paris.", d.Summary)
}

func TestPageSetsCookie(t *testing.T) {
	_, mux := setup(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/map", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	var found bool
	for _, c := range rec.Result().Cookies() {
		found = found || c.Name == session.CookieName
	}
	require.True(t, found)

	body := rec.Body.String()
	require.Contains(t, body, `id="provider-osm"`)
	require.Contains(t, body, "tileUrl")
	require.Contains(t, body, "/api/v1/map/events")
}

func TestClickSelectsThenCloses(t *testing.T) {
	h, mux := setup(t)
	s, _ := h.sessions.Ensure("", theme.PreferSystem)
	cookie := session.Cookie(s)

	rec := post(t, mux, "/api/v1/map/click", `{"lat":48.85,"lng":2.35}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "datastar-patch-elements")
	require.Contains(t, rec.Body.String(), "#country-panel")
	require.Contains(t, rec.Body.String(), "France")

	require.Eventually(t, func() bool { return s.View().Info != nil }, time.Second, 5*time.Millisecond)

	rec = post(t, mux, "/api/v1/map/close", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, s.View().Selected)
	require.Contains(t, rec.Body.String(), "#country-panel")
	require.Contains(t, rec.Body.String(), "country-panel-closed", "closing patches an explicit empty panel")
	require.NotContains(t, rec.Body.String(), "France")

	rec = post(t, mux, "/api/v1/map/click", `{"lat":48.85}`, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, mux, "/api/v1/map/click", `{"lat":91,"lng":0}`, cookie)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPlacingDropsPin(t *testing.T) {
	h, mux := setup(t)
	s, _ := h.sessions.Ensure("", theme.PreferSystem)
	cookie := session.Cookie(s)

	rec := post(t, mux, "/api/v1/map/placing", `{"placing":true}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, s.View().Placing)

	rec = post(t, mux, "/api/v1/map/click", `{"lat":41.9,"lng":12.5}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Dropped pin placed")
	require.Contains(t, body, "#poi-list")
	require.False(t, s.View().Placing)

	pois, err := h.sessions.POIs().List(context.Background())
	require.NoError(t, err)
	require.Len(t, pois, 1)

	r := httptest.NewRequest(http.MethodDelete, "/api/v1/map/pois/"+pois[0].ID, nil)
	r.AddCookie(cookie)
	del := httptest.NewRecorder()
	mux.ServeHTTP(del, r)
	require.Contains(t, del.Body.String(), "Pin removed")

	pois, err = h.sessions.POIs().List(context.Background())
	require.NoError(t, err)
	require.Empty(t, pois)
}

func TestProviderAndTheme(t *testing.T) {
	h, mux := setup(t)
	s, _ := h.sessions.Ensure("", theme.PreferSystem)
	cookie := session.Cookie(s)

	rec := post(t, mux, "/api/v1/map/theme", `{"themePreference":"system","systemTheme":"dark"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"providerId":"dark"`)
	require.Contains(t, rec.Header().Values("Set-Cookie")[0], "atlas_theme=system")

	rec = post(t, mux, "/api/v1/map/provider", `{"providerId":"satellite"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"providerId":"satellite"`)
	require.Contains(t, rec.Body.String(), "#provider-options")

	rec = post(t, mux, "/api/v1/map/theme/toggle", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "satellite", s.ActiveProvider().ID)
	require.Equal(t, theme.Light, s.Resolved())

	rec = post(t, mux, "/api/v1/map/provider", `{"providerId":"auto"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "osm", s.ActiveProvider().ID)

	rec = post(t, mux, "/api/v1/map/move", `{"lat":10,"lng":20}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"cursor":"10.00000, 20.00000"`)
}

func TestEventsStream(t *testing.T) {
	h, mux := setup(t)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s, _ := h.sessions.Ensure("", theme.PreferSystem)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/map/events", nil)
	require.NoError(t, err)
	req.AddCookie(session.Cookie(s))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 256)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	waitFor := func(substr string) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed before %q", substr)
				if strings.Contains(line, substr) {
					return
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %q", substr)
			}
		}
	}

	waitFor(`"providerId":"osm"`)
	waitFor("#poi-list")

	id := "topo"
	s.SetProvider(&id)
	waitFor(`"providerId":"topo"`)
}
