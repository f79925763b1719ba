package live

import (
	"context"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/igacmun/site/go/internal/notify"
	"github.com/igacmun/site/go/internal/reveal"
	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Service bundles the countdown sockets and the section watcher.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	watcher           *Watcher
}

// Config holds configuration for the live countdown service.
type Config struct {
	ConnectionConfig ConnectionConfig
	Clock            clockwork.Clock
	Metrics          *Metrics
	GateMetrics      *reveal.Metrics
}

// DefaultConfig uses the wall clock and no metrics.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		Clock:            clockwork.NewRealClock(),
	}
}

func NewService(config Config, site *siteconfig.Config, publisher notify.Publisher) *Service {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	cm := NewConnectionManager(config.ConnectionConfig, config.Clock, config.Metrics, config.GateMetrics)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, site),
		watcher:           NewWatcher(site, publisher, config.Clock, config.GateMetrics),
	}
}

// Start runs the service until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting live countdown service")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.connectionManager.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		s.watcher.Start(ctx)
	}()
	wg.Wait()

	log.Info().Msg("live countdown service stopped")
}

// RegisterRoutes mounts the socket and stats endpoints.
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/ws/countdown", s.wsHandler.HandleCountdown)
	r.Get("/ws/stats", s.wsHandler.HandleConnectionStats)
}

// Stats returns active connection counts.
func (s *Service) Stats() Stats {
	return s.connectionManager.Stats()
}

// Watcher exposes the section watcher.
func (s *Service) Watcher() *Watcher {
	return s.watcher
}
