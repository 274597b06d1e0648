package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-atlas/internal/country"
	"github.com/joeblew999/plat-atlas/internal/db"
	"github.com/joeblew999/plat-atlas/internal/logger"
	"github.com/joeblew999/plat-atlas/internal/poi"
	"github.com/joeblew999/plat-atlas/internal/server"
	"github.com/joeblew999/plat-atlas/internal/session"
	"github.com/joeblew999/plat-atlas/internal/templates"
	"github.com/joeblew999/plat-atlas/internal/theme"
	"github.com/joeblew999/plat-atlas/internal/tileprovider"
)

// Options defines all CLI flags and env vars for the atlas server.
// Flags: --host, --port, --data-dir, --registry, --countries, --country-api, --log-level, --log-format, --templates
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host       string `doc:"Host to bind to" default:"0.0.0.0"`
	Port       int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir    string `doc:"Directory for POI storage; empty keeps POIs in memory" default:".data"`
	Registry   string `doc:"YAML tile provider registry; empty uses the built-in providers"`
	Countries  string `doc:"GeoJSON country boundaries (NAME, ISO_A2, ISO_A3 properties)" default:".data/countries.geojson"`
	CountryAPI string `doc:"REST Countries base URL" default:"https://restcountries.com"`
	LogLevel   string `doc:"Log level (trace, debug, info, warn, error)" default:"info"`
	LogFormat  string `doc:"Log format" enum:"json,console" default:"console"`
	Templates  string `doc:"Load templates from this directory instead of the embedded copy (dev)"`
}

// app is everything serve needs, built from Options.
type app struct {
	log      zerolog.Logger
	sessions *session.Manager
	srv      *server.Server
	store    string
	close    func()
}

func newLogger(opts *Options) (zerolog.Logger, error) {
	return logger.New(logger.Options{
		Level:         opts.LogLevel,
		HumanReadable: opts.LogFormat == "console",
	})
}

func loadRegistry(path string) (*tileprovider.Registry, error) {
	if path == "" {
		return tileprovider.Builtin(), nil
	}
	return tileprovider.LoadFile(path)
}

// openStore prefers DuckDB and falls back to the JSON file store.
func openStore(ctx context.Context, log zerolog.Logger, dataDir string) (poi.Store, string, func(), error) {
	if dataDir == "" {
		return poi.NewMemoryStore(), "memory", func() {}, nil
	}
	conn, err := db.Open(ctx, db.Config{DataDir: dataDir, DBName: "atlas"})
	if err == nil {
		var store *poi.DuckDBStore
		if store, err = poi.NewDuckDBStore(ctx, conn); err == nil {
			return store, "duckdb", func() { conn.Close() }, nil
		}
		conn.Close()
	}
	log.Warn().Err(err).Msg("duckdb unavailable, storing pois as json")
	fileStore, err := poi.NewFileStore(dataDir)
	if err != nil {
		return nil, "", nil, fmt.Errorf("opening poi file store: %w", err)
	}
	return fileStore, "file", func() {}, nil
}

func newApp(ctx context.Context, opts *Options) (*app, error) {
	log, err := newLogger(opts)
	if err != nil {
		return nil, err
	}

	reg, err := loadRegistry(opts.Registry)
	if err != nil {
		return nil, fmt.Errorf("loading tile registry: %w", err)
	}

	var bounds *country.Boundaries
	if opts.Countries != "" {
		bounds, err = country.LoadBoundaries(opts.Countries)
		if err != nil {
			log.Warn().Err(err).Str("path", opts.Countries).Msg("country boundaries unavailable, clicks will not select countries")
		}
	}

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	if opts.Templates != "" {
		if err := renderer.Reload(opts.Templates); err != nil {
			return nil, fmt.Errorf("loading templates from %s: %w", opts.Templates, err)
		}
		log.Info().Str("dir", opts.Templates).Msg("using templates from disk")
	}

	store, storeName, closeStore, err := openStore(ctx, log, opts.DataDir)
	if err != nil {
		return nil, err
	}
	fetcher := country.NewClient(opts.CountryAPI, nil)

	sessions := session.NewManager(ctx, session.Deps{
		Registry:   reg,
		Boundaries: bounds,
		Fetcher:    fetcher,
		POIs:       store,
		Log:        log,
	})

	srv, err := server.New(server.Config{
		Host:     opts.Host,
		Port:     strconv.Itoa(opts.Port),
		DataDir:  opts.DataDir,
		Store:    storeName,
		Sessions: sessions,
		Fetcher:  fetcher,
		Renderer: renderer,
		Log:      log,
	})
	if err != nil {
		sessions.Close()
		closeStore()
		return nil, err
	}

	return &app{
		log:      log,
		sessions: sessions,
		srv:      srv,
		store:    storeName,
		close: func() {
			sessions.Close()
			closeStore()
		},
	}, nil
}

func serve(ctx context.Context, opts *Options) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	displayHost := opts.Host
	if displayHost == "0.0.0.0" {
		displayHost = "localhost"
	}
	baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)
	a.log.Info().
		Str("map", baseURL+"/map").
		Str("docs", baseURL+"/docs").
		Str("poi_store", a.store).
		Msg("plat-atlas server starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		a.sessions.Run(ctx, time.Minute, session.DefaultIdleTimeout)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.log.Info().Msg("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		ctx, stop := context.WithCancel(context.Background())
		done := make(chan struct{})

		hooks.OnStart(func() {
			defer close(done)
			if err := serve(ctx, opts); err != nil {
				fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
				os.Exit(1)
			}
		})
		// humacli calls OnStop on SIGINT/SIGTERM; wait for the graceful shutdown
		hooks.OnStop(func() {
			stop()
			<-done
		})
	})

	cli.Root().Use = "atlas"
	cli.Root().Short = "Interactive map with theme-aware base maps, country facts and pins"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			sessions := session.NewManager(context.Background(), session.Deps{Log: zerolog.Nop()})
			defer sessions.Close()
			srv, err := server.New(server.Config{
				Host:     opts.Host,
				Port:     strconv.Itoa(opts.Port),
				Sessions: sessions,
				Log:      zerolog.Nop(),
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error building server: %v\n", err)
				os.Exit(1)
			}
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// providers subcommand: show the registry and which provider a theme picks
	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List tile providers and show which one is active for a theme",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			reg, err := loadRegistry(opts.Registry)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading registry: %v\n", err)
				os.Exit(1)
			}
			themeName, _ := cmd.Flags().GetString("theme")
			t := theme.Parse(themeName)

			var override *string
			if cmd.Flags().Changed("override") {
				id, _ := cmd.Flags().GetString("override")
				override = &id
			}

			active := tileprovider.Resolve(reg, t, override)
			current := tileprovider.CurrentID(reg, t, override)
			for _, p := range reg.List() {
				marker := " "
				if p.ID == active.ID {
					marker = "*"
				}
				def := ""
				if p.ID == reg.DefaultID() {
					def = " (default)"
				}
				fmt.Printf("%s %-10s %s%s\n", marker, p.ID, p.Name, def)
			}
			fmt.Printf("\ntheme=%s active=%s highlighted=%s\n", t, active.ID, current)

			if dump, _ := cmd.Flags().GetBool("yaml"); dump {
				out, err := tileprovider.Marshal(reg)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error marshaling registry: %v\n", err)
					os.Exit(1)
				}
				fmt.Println()
				fmt.Print(string(out))
			}
		}),
	}
	providersCmd.Flags().String("theme", "light", "Resolved theme to select for (light or dark)")
	providersCmd.Flags().String("override", "", "Manual provider override")
	providersCmd.Flags().Bool("yaml", false, "Also print the registry as YAML")
	cli.Root().AddCommand(providersCmd)

	cli.Run()
}
