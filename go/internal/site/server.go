// Package site serves the conference pages, the reveal and registration JSON
// API, and mounts the live countdown sockets.
package site

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/igacmun/site/go/internal/live"
	"github.com/igacmun/site/go/internal/registration"
	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server holds everything the HTTP handlers read.
type Server struct {
	site         *siteconfig.Config
	clock        clockwork.Clock
	registration *registration.Service
	live         *live.Service
	gatherer     prometheus.Gatherer
	renderer     *renderer
}

// Options configures a Server. Live and Gatherer are optional.
type Options struct {
	Site     *siteconfig.Config
	Clock    clockwork.Clock
	Live     *live.Service
	Gatherer prometheus.Gatherer
}

// NewServer parses the page templates and builds a Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Site == nil {
		return nil, fmt.Errorf("site config is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Server{
		site:         opts.Site,
		clock:        clock,
		registration: registration.NewService(opts.Site, clock),
		live:         opts.Live,
		gatherer:     opts.Gatherer,
		renderer:     r,
	}, nil
}

// Routes builds the chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(accessLog)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/", s.handleHome)
	r.Get("/about", s.handleAbout)
	r.Get("/events", s.staticPage(pageEvents))
	r.Get("/gallery", s.staticPage(pageGallery))
	r.Get("/contact", s.staticPage(pageContact))
	r.Get("/secretariats", s.handleSecretariats)

	r.Route("/session-3", func(r chi.Router) {
		r.Get("/", s.handleSession3)
		r.Get("/committees", s.handleCommittees)
		r.Get("/schedule", s.handleSchedule)
		r.Get("/venue", s.handleVenue)
		r.Get("/register", s.handleRegister)
	})

	r.Get("/register/{form}", s.handleFormRedirect)

	r.Route("/api", func(r chi.Router) {
		r.Get("/reveals", s.handleListReveals)
		r.Get("/reveals/{section}", s.handleGetReveal)
		r.Get("/registration", s.handleListRegistration)
	})

	if s.live != nil {
		s.live.RegisterRoutes(r)
	}

	r.NotFound(s.handleNotFound)
	return r
}

// HTTPConfig configures the listening server.
type HTTPConfig struct {
	Port           string
	AllowedOrigins []string
}

// HTTPServer wraps the router with CORS and cleartext HTTP/2.
func (s *Server) HTTPServer(cfg HTTPConfig) *http.Server {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(c.Handler(s.Routes()), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		logWriteError(r, err)
	}
}
