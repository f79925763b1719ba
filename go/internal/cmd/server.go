package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/igacmun/site/go/internal/site"
	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conference site",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServerConfig()
		if err != nil {
			return err
		}
		if err := setupLogging(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
			return err
		}
		if siteConfigPath != "" {
			cfg.SiteConfig = siteConfigPath
		}
		return serve(cfg)
	},
}

func serve(cfg *ServerConfig) error {
	content, err := siteconfig.Load(cfg.SiteConfig)
	if err != nil {
		return err
	}

	services, err := setupServices(cfg, content)
	if err != nil {
		return err
	}
	defer services.Publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	liveDone := make(chan struct{})
	go func() {
		defer close(liveDone)
		services.Live.Start(ctx)
	}()

	server := services.Site.HTTPServer(site.HTTPConfig{
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("event", content.Event.Title).
			Msg("site server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-serverErr:
		log.Error().Err(err).Msg("site server failed")
		cancel()
		<-liveDone
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	// Close sockets first; hijacked connections are not tracked by Shutdown.
	cancel()
	<-liveDone

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("site server shutdown failed")
	}

	log.Info().Msg("site server shutdown complete")
	return nil
}
