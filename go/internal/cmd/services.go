package main

import (
	"fmt"

	"github.com/igacmun/site/go/internal/live"
	"github.com/igacmun/site/go/internal/notify"
	"github.com/igacmun/site/go/internal/reveal"
	"github.com/igacmun/site/go/internal/site"
	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Site      *site.Server
	Live      *live.Service
	Publisher notify.Publisher
}

func setupPublisher(natsURL, stream string) (notify.Publisher, error) {
	if natsURL == "" {
		log.Info().Msg("NATS_URL not set, reveal announcements disabled")
		return notify.NoopPublisher{}, nil
	}
	natsCfg := notify.DefaultConfig(natsURL)
	natsCfg.Stream = stream
	p, err := notify.NewNATSPublisher(natsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect publisher: %w", err)
	}
	return p, nil
}

func setupServices(cfg *ServerConfig, content *siteconfig.Config) (*Services, error) {
	// Config → clock and metrics → live service → HTTP server
	clock := clockwork.NewRealClock()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	publisher, err := setupPublisher(cfg.NATSURL, cfg.NATSStream)
	if err != nil {
		return nil, err
	}

	liveCfg := live.DefaultConfig()
	liveCfg.Clock = clock
	liveCfg.Metrics = live.NewMetrics(registry)
	liveCfg.GateMetrics = reveal.NewMetrics(registry)
	liveSvc := live.NewService(liveCfg, content, publisher)

	srv, err := site.NewServer(site.Options{
		Site:     content,
		Clock:    clock,
		Live:     liveSvc,
		Gatherer: registry,
	})
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to build site server: %w", err)
	}

	return &Services{
		Site:      srv,
		Live:      liveSvc,
		Publisher: publisher,
	}, nil
}
