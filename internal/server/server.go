// Package server assembles the atlas HTTP server: the Huma REST API, the
// Datastar map UI, the map page and /metrics.
package server

import (
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-atlas/internal/api"
	"github.com/joeblew999/plat-atlas/internal/api/mapui"
	"github.com/joeblew999/plat-atlas/internal/country"
	"github.com/joeblew999/plat-atlas/internal/humastar"
	"github.com/joeblew999/plat-atlas/internal/logger"
	"github.com/joeblew999/plat-atlas/internal/metrics"
	"github.com/joeblew999/plat-atlas/internal/session"
	"github.com/joeblew999/plat-atlas/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host     string
	Port     string
	DataDir  string
	Store    string // POI store backend name
	Sessions *session.Manager
	Fetcher  country.Fetcher
	Renderer *templates.Renderer // nil uses the embedded templates
	Log      zerolog.Logger
}

// Server is the atlas HTTP server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	humaAPI huma.API
	handler http.Handler
}

// New creates a new atlas server.
func New(cfg Config) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("server: session manager is required")
	}
	if cfg.Renderer == nil {
		r, err := templates.New()
		if err != nil {
			return nil, fmt.Errorf("parsing templates: %w", err)
		}
		cfg.Renderer = r
	}

	mux := http.NewServeMux()
	links := humastar.NewLinks(mapui.Tag)

	humaConfig := huma.DefaultConfig("plat-atlas API", api.Version)
	humaConfig.Info.Description = "Interactive map API: theme-aware tile providers, country facts and points of interest."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humaAPI,
	}
	s.routes(links)
	s.handler = logger.Middleware(cfg.Log, mux)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

func (s *Server) routes(links *humastar.Links) {
	// REST handlers are discovered through their Register* methods.
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(api.Deps{
		Sessions: s.config.Sessions,
		Fetcher:  s.config.Fetcher,
		DataDir:  s.config.DataDir,
		Store:    s.config.Store,
	}))

	ui := mapui.NewHandler(s.config.Sessions, s.config.Renderer)
	ui.RegisterRoutes(s.humaAPI)

	links.Build(s.humaAPI)

	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /map", ui.Page)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range s.rootLinks() {
		w.Header().Add("Link", link)
	}
	http.Redirect(w, r, "/map", http.StatusFound)
}

func (s *Server) rootLinks() []string {
	return []string{
		`</map>; rel="alternate"; type="text/html"`,
		`</health>; rel="service-meta"`,
		`</openapi.json>; rel="service-desc"`,
		`</docs>; rel="service-doc"`,
	}
}
