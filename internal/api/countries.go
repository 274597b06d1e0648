package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-atlas/internal/country"
	"github.com/joeblew999/plat-atlas/internal/metrics"
)

type LocateInput struct {
	Lat float64 `query:"lat" minimum:"-90" maximum:"90" required:"true" doc:"Latitude" example:"48.85"`
	Lng float64 `query:"lng" minimum:"-180" maximum:"180" required:"true" doc:"Longitude" example:"2.35"`
}

type CountryBody struct {
	country.Feature
	Fetchable bool `json:"fetchable" doc:"Whether facts can be fetched for this country"`
}

type CountryCodeInput struct {
	Code string `path:"code" minLength:"2" maxLength:"2" pattern:"^[A-Za-z]{2}$" doc:"ISO 3166-1 alpha-2 code" example:"FR"`
}

// FactsBody is the quick-facts view of a country.
type FactsBody struct {
	*country.Info
	Code       string `json:"code" doc:"ISO 3166-1 alpha-2 code"`
	Summary    string `json:"summary" doc:"One-paragraph description"`
	Capital    string `json:"capitalCity,omitempty" doc:"First listed capital"`
	Currency   string `json:"currency,omitempty" doc:"Primary currency name"`
	Language   string `json:"languageList,omitempty" doc:"Languages joined with commas"`
	Population string `json:"populationText,omitempty" doc:"Population with thousands separators"`
	Area       string `json:"areaText,omitempty" doc:"Area in square kilometres"`
}

// RegisterCountries registers country lookup routes.
func (h *APIHandler) RegisterCountries(api huma.API) {
	huma.Get(api, "/api/v1/countries/at", h.LocateCountry, huma.OperationTags("countries"))
	huma.Get(api, "/api/v1/countries/{code}/info", h.GetCountryInfo, huma.OperationTags("countries"))
}

func (h *APIHandler) LocateCountry(ctx context.Context, input *LocateInput) (*struct{ Body CountryBody }, error) {
	f, ok := h.deps.Sessions.Boundaries().Locate(input.Lat, input.Lng)
	if !ok {
		return nil, huma.Error404NotFound("no country at this location")
	}
	return &struct{ Body CountryBody }{Body: CountryBody{Feature: f, Fetchable: f.Fetchable()}}, nil
}

func (h *APIHandler) GetCountryInfo(ctx context.Context, input *CountryCodeInput) (*struct{ Body FactsBody }, error) {
	if h.deps.Fetcher == nil {
		return nil, huma.Error503ServiceUnavailable("country lookups are disabled")
	}
	code := strings.ToUpper(input.Code)
	info, err := h.deps.Fetcher.Fetch(ctx, code)
	switch {
	case errors.Is(err, country.ErrNotFound):
		metrics.CountryFetches.WithLabelValues("not_found").Inc()
		return nil, huma.Error404NotFound("country not found")
	case err != nil:
		metrics.CountryFetches.WithLabelValues("error").Inc()
		logErr(ctx, err, "country fetch failed")
		return nil, huma.NewError(http.StatusBadGateway, "country service unavailable", err)
	}
	metrics.CountryFetches.WithLabelValues("ok").Inc()

	fallback := code
	if f, err := h.deps.Sessions.Boundaries().Lookup(code); err == nil {
		fallback = f.Name
	}
	return &struct{ Body FactsBody }{Body: FactsBody{
		Info:       info,
		Code:       code,
		Summary:    info.Summary(fallback),
		Capital:    info.Capital(),
		Currency:   info.Currency(),
		Language:   info.LanguageList(),
		Population: info.FormattedPopulation(),
		Area:       info.FormattedArea(),
	}}, nil
}
