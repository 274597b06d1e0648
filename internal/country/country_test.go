package country

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Boundaries {
	t.Helper()
	b, err := LoadBoundaries(filepath.Join("testdata", "countries.geojson"))
	require.NoError(t, err)
	return b
}

func TestBoundariesLocate(t *testing.T) {
	b := loadFixture(t)
	require.Equal(t, 3, b.Len(), "point features are skipped")

	f, ok := b.Locate(48.85, 2.35)
	require.True(t, ok)
	require.Equal(t, "FR", f.ISO2)
	require.Equal(t, "France", f.Name)

	f, ok = b.Locate(36.5, 9)
	require.True(t, ok, "second polygon of a multipolygon")
	require.Equal(t, "ITA", f.ISO3)

	_, ok = b.Locate(0, -30)
	require.False(t, ok)
}

func TestBoundariesLookup(t *testing.T) {
	b := loadFixture(t)

	for _, code := range []string{"fr", "FRA", "france", " France "} {
		f, err := b.Lookup(code)
		require.NoError(t, err, code)
		require.Equal(t, "FR", f.ISO2)
	}

	_, err := b.Lookup("-99")
	require.ErrorIs(t, err, ErrNotFound)

	cyprus, err := b.Lookup("N. Cyprus")
	require.NoError(t, err)
	require.False(t, cyprus.Fetchable())
}

func TestNilBoundaries(t *testing.T) {
	var b *Boundaries
	_, ok := b.Locate(1, 1)
	require.False(t, ok)
	_, err := b.Lookup("FR")
	require.ErrorIs(t, err, ErrNotFound)
	require.Zero(t, b.Len())
}

func TestParseBoundariesRejectsGarbage(t *testing.T) {
	_, err := ParseBoundaries([]byte(`{"type":`))
	require.Error(t, err)
}

const franceJSON = `[{
  "name": {"common": "France", "official": "French Republic"},
  "region": "Europe",
  "subregion": "Western Europe",
  "capital": ["Paris"],
  "population": 67391582,
  "area": 551695,
  "currencies": {"EUR": {"name": "Euro", "symbol": "€"}},
  "languages": {"fra": "French"},
  "flags": {"svg": "https://flagcdn.com/fr.svg"}
}]`

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3.1/alpha/FR":
			w.Write([]byte(franceJSON))
		case "/v3.1/alpha/ZZ":
			http.NotFound(w, r)
		case "/v3.1/alpha/EE":
			w.Write([]byte(`[]`))
		case "/v3.1/alpha/XX":
			w.Write([]byte(`{not json`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", srv.Client())
	ctx := context.Background()

	info, err := c.Fetch(ctx, "fr")
	require.NoError(t, err)
	require.Equal(t, "French Republic", info.Name.Official)
	require.Equal(t, "Paris", info.Capital())
	require.Equal(t, "Euro", info.Currency())
	require.Equal(t, "https://flagcdn.com/fr.svg", info.Flags.SVG)

	_, err = c.Fetch(ctx, "ZZ")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.Fetch(ctx, "EE")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.Fetch(ctx, "XX")
	require.Error(t, err)

	_, err = c.Fetch(ctx, "QQ")
	require.ErrorContains(t, err, "unexpected status 500")

	_, err = c.Fetch(ctx, "FRA")
	require.ErrorContains(t, err, "invalid country code")
}

func TestInfoFormatting(t *testing.T) {
	info := &Info{
		Region:     "Europe",
		Subregion:  "Western Europe",
		Capitals:   []string{"Bern"},
		Population: 8654622,
		Area:       41284.5,
		Currencies: map[string]Currency{"CHF": {Name: "Swiss franc"}},
		Languages:  map[string]string{"roh": "Romansh", "fra": "French", "gsw": "Swiss German", "ita": "Italian"},
	}
	info.Name.Official = "Swiss Confederation"

	require.Equal(t, "Swiss Confederation is a country in Europe, Western Europe. The capital is Bern.", info.Summary("Switzerland"))
	require.Equal(t, "8,654,622", info.FormattedPopulation())
	require.Equal(t, "41,284.5 km²", info.FormattedArea())
	require.Equal(t, "French, Swiss German, Italian, Romansh", info.LanguageList())

	bare := &Info{}
	require.Equal(t, "Atlantis is a country.", bare.Summary("Atlantis"))
	require.Empty(t, bare.FormattedPopulation())
	require.Empty(t, bare.FormattedArea())
	require.Empty(t, bare.Currency())
	require.Empty(t, bare.Capital())
}

func TestGroupThousands(t *testing.T) {
	require.Equal(t, "1", groupThousands("1"))
	require.Equal(t, "999", groupThousands("999"))
	require.Equal(t, "1,000", groupThousands("1000"))
	require.Equal(t, "-12,345", groupThousands("-12345"))
}

// gatedFetcher blocks each fetch until its code is released.
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	errs  map[string]error
	ctxs  map[string]context.Context
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		gates: map[string]chan struct{}{},
		errs:  map[string]error{},
		ctxs:  map[string]context.Context{},
	}
}

func (g *gatedFetcher) ctx(code string) context.Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ctxs[code]
}

func (g *gatedFetcher) gate(code string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[code]
	if !ok {
		ch = make(chan struct{})
		g.gates[code] = ch
	}
	return ch
}

func (g *gatedFetcher) Fetch(ctx context.Context, iso2 string) (*Info, error) {
	g.mu.Lock()
	g.ctxs[iso2] = ctx
	g.mu.Unlock()
	<-g.gate(iso2)
	g.mu.Lock()
	err := g.errs[iso2]
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	info := &Info{Region: iso2}
	info.Name.Official = "Republic of " + iso2
	return info, nil
}

func TestLoaderAppliesResult(t *testing.T) {
	f := newGatedFetcher()
	changed := make(chan struct{}, 1)
	l := NewLoader(context.Background(), f, zerolog.Nop(), func() { changed <- struct{}{} })

	l.Select(Feature{Name: "France", ISO2: "FR"})
	sel, info := l.Snapshot()
	require.Equal(t, "FR", sel.ISO2)
	require.Nil(t, info, "loading until the fetch returns")

	close(f.gate("FR"))
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("onChange not called")
	}

	_, info = l.Snapshot()
	require.NotNil(t, info)
	require.Equal(t, "FR", info.Region)
}

func TestLoaderDiscardsSupersededResult(t *testing.T) {
	f := newGatedFetcher()
	l := NewLoader(context.Background(), f, zerolog.Nop(), nil)

	l.Select(Feature{Name: "France", ISO2: "FR"})
	l.Select(Feature{Name: "Italy", ISO2: "IT"})

	close(f.gate("IT"))
	close(f.gate("FR"))
	l.Wait()

	sel, info := l.Snapshot()
	require.Equal(t, "IT", sel.ISO2)
	require.NotNil(t, info)
	require.Equal(t, "IT", info.Region)
}

func TestLoaderClearDropsInFlight(t *testing.T) {
	f := newGatedFetcher()
	l := NewLoader(context.Background(), f, zerolog.Nop(), nil)

	l.Select(Feature{Name: "France", ISO2: "FR"})
	l.Clear()
	close(f.gate("FR"))
	l.Wait()

	sel, info := l.Snapshot()
	require.Nil(t, sel)
	require.Nil(t, info)
}

func TestLoaderSwallowsErrors(t *testing.T) {
	f := newGatedFetcher()
	f.errs["FR"] = errors.New("boom")
	l := NewLoader(context.Background(), f, zerolog.Nop(), nil)

	l.Select(Feature{Name: "France", ISO2: "FR"})
	close(f.gate("FR"))
	l.Wait()

	sel, info := l.Snapshot()
	require.Equal(t, "FR", sel.ISO2)
	require.Nil(t, info, "failed fetch leaves the panel loading")
	require.ErrorIs(t, f.ctx("FR").Err(), context.Canceled, "a failed fetch releases its context")
}

func TestLoaderCloseStopsFetching(t *testing.T) {
	f := newGatedFetcher()
	l := NewLoader(context.Background(), f, zerolog.Nop(), nil)

	l.Select(Feature{Name: "France", ISO2: "FR"})
	done := make(chan struct{})
	go func() {
		l.Close()
		close(done)
	}()
	require.Eventually(t, func() bool {
		ctx := f.ctx("FR")
		return ctx != nil && ctx.Err() != nil
	}, time.Second, 5*time.Millisecond, "Close cancels the fetch in flight")
	close(f.gate("FR"))
	<-done

	l.Select(Feature{Name: "Italy", ISO2: "IT"})
	l.Wait()
	sel, info := l.Snapshot()
	require.Nil(t, sel)
	require.Nil(t, info)
	require.Nil(t, f.ctx("IT"), "no fetch starts after Close")
}

func TestLoaderSkipsUnfetchable(t *testing.T) {
	f := newGatedFetcher()
	l := NewLoader(context.Background(), f, zerolog.Nop(), nil)

	l.Select(Feature{Name: "N. Cyprus", ISO2: "-99"})
	l.Wait()

	sel, info := l.Snapshot()
	require.Equal(t, "N. Cyprus", sel.Name)
	require.Nil(t, info)
}
