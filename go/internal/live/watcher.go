package live

import (
	"context"
	"sync"

	"github.com/igacmun/site/go/internal/notify"
	"github.com/igacmun/site/go/internal/reveal"
	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Watcher keeps one gate per countdown-enabled section for the lifetime of
// the server and announces each reveal on the publisher.
type Watcher struct {
	site      *siteconfig.Config
	publisher notify.Publisher
	clock     clockwork.Clock
	metrics   *reveal.Metrics

	mu    sync.Mutex
	gates map[siteconfig.Section]*reveal.Gate
}

func NewWatcher(site *siteconfig.Config, publisher notify.Publisher, clock clockwork.Clock, metrics *reveal.Metrics) *Watcher {
	return &Watcher{
		site:      site,
		publisher: publisher,
		clock:     clock,
		metrics:   metrics,
		gates:     make(map[siteconfig.Section]*reveal.Gate),
	}
}

// Start starts the section gates and blocks until ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	for _, section := range siteconfig.Sections() {
		rv, err := w.site.Reveal(section)
		if err != nil || !rv.EnableCountdown {
			continue
		}
		gate := w.newGate(ctx, section, rv.RevealAt)
		w.gates[section] = gate
	}
	gates := make([]*reveal.Gate, 0, len(w.gates))
	for _, g := range w.gates {
		gates = append(gates, g)
	}
	w.mu.Unlock()

	for _, g := range gates {
		g.Start(ctx)
	}

	<-ctx.Done()
	for _, g := range gates {
		g.Stop()
		<-g.Done()
	}
	log.Info().Msg("reveal watcher stopped")
}

// newGate only announces reveals that happen while the server is running;
// sections already visible at startup were announced by an earlier run.
func (w *Watcher) newGate(ctx context.Context, section siteconfig.Section, revealAt string) *reveal.Gate {
	var announce bool
	gate := reveal.NewGate(revealAt,
		reveal.WithClock(w.clock),
		reveal.WithSection(string(section)),
		reveal.WithMetrics(w.metrics),
		reveal.WithOnReveal(func() {
			if !announce {
				return
			}
			event := notify.NewSectionRevealed(string(section), revealAt, w.clock.Now())
			if err := w.publisher.Publish(ctx, notify.Subject(string(section)), event); err != nil {
				log.Error().Err(err).Str("section", string(section)).Msg("failed to publish section reveal")
			}
		}),
	)
	announce = !gate.Revealed()
	return gate
}

// Snapshot returns the watcher's view of section, if it is being watched.
func (w *Watcher) Snapshot(section siteconfig.Section) (reveal.Snapshot, bool) {
	w.mu.Lock()
	g, ok := w.gates[section]
	w.mu.Unlock()
	if !ok {
		return reveal.Snapshot{}, false
	}
	return g.Snapshot(), true
}
