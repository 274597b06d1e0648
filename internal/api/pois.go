package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-atlas/internal/humastar"
	"github.com/joeblew999/plat-atlas/internal/metrics"
	"github.com/joeblew999/plat-atlas/internal/poi"
	"github.com/joeblew999/plat-atlas/internal/session"
)

var poiActions = []humastar.ActionDef{
	{Rel: "delete", Pattern: "/api/v1/pois/%s", Method: "DELETE", Title: "Remove pin"},
}

// POIBody is a POI with its state-dependent actions.
type POIBody struct {
	poi.POI
}

func (b POIBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.ID, poiActions)
}

type POIIDInput struct {
	ID string `path:"id" doc:"POI ID"`
}

type ListPOIsInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int `query:"limit" minimum:"0" maximum:"500" default:"100" doc:"Page size; 0 returns everything"`
}

type CreatePOIInput struct {
	Body struct {
		Name string  `json:"name,omitempty" required:"false" maxLength:"120" doc:"Display name; defaults to \"Dropped pin\""`
		Lat  float64 `json:"lat" minimum:"-90" maximum:"90" doc:"Latitude"`
		Lng  float64 `json:"lng" minimum:"-180" maximum:"180" doc:"Longitude"`
	}
}

type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// RegisterPOIs registers POI CRUD routes.
func (h *APIHandler) RegisterPOIs(api huma.API) {
	huma.Get(api, "/api/v1/pois", h.ListPOIs, huma.OperationTags("pois"))
	huma.Get(api, "/api/v1/pois.geojson", h.POIsGeoJSON, huma.OperationTags("pois"))
	huma.Register(api, huma.Operation{
		OperationID:   "create-poi",
		Method:        "POST",
		Path:          "/api/v1/pois",
		Summary:       "Create POI",
		Tags:          []string{"pois"},
		DefaultStatus: 201,
	}, h.CreatePOI)
	huma.Get(api, "/api/v1/pois/{id}", h.GetPOI, huma.OperationTags("pois"))
	huma.Delete(api, "/api/v1/pois/{id}", h.DeletePOI, huma.OperationTags("pois"))
}

func (h *APIHandler) ListPOIs(ctx context.Context, input *ListPOIsInput) (*struct{ Body humastar.PageBody[POIBody] }, error) {
	all, err := h.deps.Sessions.POIs().List(ctx)
	if err != nil {
		logErr(ctx, err, "listing pois")
		return nil, huma.Error500InternalServerError("listing pois failed")
	}
	bodies := make([]POIBody, len(all))
	for i, p := range all {
		bodies[i] = POIBody{p}
	}
	return &struct{ Body humastar.PageBody[POIBody] }{Body: humastar.Page(bodies, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) POIsGeoJSON(ctx context.Context, input *struct{}) (*GeoJSONOutput, error) {
	all, err := h.deps.Sessions.POIs().List(ctx)
	if err != nil {
		logErr(ctx, err, "listing pois")
		return nil, huma.Error500InternalServerError("listing pois failed")
	}
	data, err := json.Marshal(poi.FeatureCollection(all))
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding geojson failed", err)
	}
	return &GeoJSONOutput{ContentType: "application/geo+json", Body: data}, nil
}

func (h *APIHandler) CreatePOI(ctx context.Context, input *CreatePOIInput) (*struct{ Body POIBody }, error) {
	code := ""
	if f, ok := h.deps.Sessions.Boundaries().Locate(input.Body.Lat, input.Body.Lng); ok && f.Fetchable() {
		code = f.ISO2
	}
	created, err := h.deps.Sessions.POIs().Create(ctx, poi.New(input.Body.Name, input.Body.Lat, input.Body.Lng, code))
	if err != nil {
		logErr(ctx, err, "creating poi")
		return nil, huma.Error500InternalServerError("creating poi failed")
	}
	metrics.POIsPlaced.Inc()
	h.deps.Sessions.Broadcast(session.KindPOI)
	return &struct{ Body POIBody }{Body: POIBody{created}}, nil
}

func (h *APIHandler) GetPOI(ctx context.Context, input *POIIDInput) (*struct{ Body POIBody }, error) {
	p, err := h.deps.Sessions.POIs().Get(ctx, input.ID)
	if errors.Is(err, poi.ErrNotFound) {
		return nil, huma.Error404NotFound("poi not found")
	}
	if err != nil {
		logErr(ctx, err, "loading poi")
		return nil, huma.Error500InternalServerError("loading poi failed")
	}
	return &struct{ Body POIBody }{Body: POIBody{p}}, nil
}

func (h *APIHandler) DeletePOI(ctx context.Context, input *POIIDInput) (*struct{}, error) {
	err := h.deps.Sessions.POIs().Delete(ctx, input.ID)
	if errors.Is(err, poi.ErrNotFound) {
		return nil, huma.Error404NotFound("poi not found")
	}
	if err != nil {
		logErr(ctx, err, "deleting poi")
		return nil, huma.Error500InternalServerError("deleting poi failed")
	}
	h.deps.Sessions.Broadcast(session.KindPOI)
	return &struct{}{}, nil
}
