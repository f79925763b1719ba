package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const envPrefix = "igacmun"

// ServerConfig is read from IGACMUN_* environment variables.
type ServerConfig struct {
	Port            string        `envconfig:"PORT"             default:"8080"`
	SiteConfig      string        `envconfig:"SITE_CONFIG"`
	NATSURL         string        `envconfig:"NATS_URL"`
	NATSStream      string        `envconfig:"NATS_STREAM"`
	LogLevel        string        `envconfig:"LOG_LEVEL"        default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT"       default:"console"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// loadServerConfig reads .env when present, then the environment.
func loadServerConfig() (*ServerConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg ServerConfig
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return &cfg, nil
}

// setupLogging configures the global zerolog logger.
func setupLogging(level, format string, out io.Writer) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch strings.ToLower(format) {
	case "console", "":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	case "json":
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
