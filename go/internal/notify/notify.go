// Package notify announces section reveals to other systems over NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// SubjectPrefix is prepended to the section name to form the NATS subject.
const SubjectPrefix = "igacmun.reveals"

// SectionRevealed is published when a gated section becomes visible.
type SectionRevealed struct {
	ID         string    `json:"id"`
	Section    string    `json:"section"`
	RevealAt   string    `json:"reveal_at"`
	RevealedAt time.Time `json:"revealed_at"`
}

// revealNamespace scopes reveal event IDs.
var revealNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://igacmun.org/reveals"))

// NewSectionRevealed builds an event whose ID depends only on section and
// revealAt, so every run and replica announcing the same reveal agrees on it.
func NewSectionRevealed(section, revealAt string, at time.Time) SectionRevealed {
	return SectionRevealed{
		ID:         RevealID(section, revealAt),
		Section:    section,
		RevealAt:   revealAt,
		RevealedAt: at.UTC(),
	}
}

// RevealID is the stable event ID of a reveal of section at revealAt.
func RevealID(section, revealAt string) string {
	return uuid.NewSHA1(revealNamespace, []byte(section+"\x00"+revealAt)).String()
}

// Subject returns the subject a reveal of section is published on.
func Subject(section string) string {
	return SubjectPrefix + "." + section
}

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, subject string, event any) error
	Close() error
}

// NoopPublisher drops every event. Used when no NATS URL is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error                               { return nil }

// Config holds NATS connection settings. When Stream is set, events are
// published through JetStream into a stream of that name covering every
// reveal subject.
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration

	Stream       string
	StreamMaxAge time.Duration
}

// DefaultConfig returns reconnect-forever settings for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:           url,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		StreamMaxAge:  30 * 24 * time.Hour,
	}
}

// NATSPublisher publishes JSON-encoded events to NATS subjects.
type NATSPublisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewNATSPublisher(cfg Config) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("igacmun-site"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Error().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}

	p := &NATSPublisher{nc: nc}
	if cfg.Stream != "" {
		if err := p.ensureStream(cfg); err != nil {
			nc.Close()
			return nil, err
		}
	}
	return p, nil
}

// ensureStream creates or updates the reveal stream.
func (p *NATSPublisher) ensureStream(cfg Config) error {
	js, err := jetstream.New(p.nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "Section reveal announcements",
		Subjects:    []string{SubjectPrefix + ".>"},
		MaxAge:      cfg.StreamMaxAge,
		Storage:     jetstream.FileStorage,
		Duplicates:  time.Hour,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}

	log.Info().
		Str("stream", stream.CachedInfo().Config.Name).
		Strs("subjects", stream.CachedInfo().Config.Subjects).
		Msg("JetStream stream ready")
	p.js = js
	return nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if p.js != nil {
		return p.publishStream(ctx, subject, event, data)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	log.Debug().Str("subject", subject).Int("size", len(data)).Msg("event published")
	return nil
}

// publishStream waits for the stream acknowledgement. Reveal events carry
// their ID as the message ID so a retried publish is stored once.
func (p *NATSPublisher) publishStream(ctx context.Context, subject string, event any, data []byte) error {
	var opts []jetstream.PublishOpt
	if ev, ok := event.(SectionRevealed); ok && ev.ID != "" {
		opts = append(opts, jetstream.WithMsgID(ev.ID))
	}
	ack, err := p.js.Publish(ctx, subject, data, opts...)
	if err != nil {
		return fmt.Errorf("publish to stream %s: %w", subject, err)
	}
	log.Debug().
		Str("subject", subject).
		Str("stream", ack.Stream).
		Uint64("sequence", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("event published")
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}
