package reveal

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TickInterval is the fixed polling period of every gate.
const TickInterval = time.Second

// Gate polls Evaluate for a single reveal target and moves from counting
// down to revealed exactly once. A gate owns at most one ticker, created by
// Start and cancelled by Stop or by the Start context.
type Gate struct {
	target   string
	section  string
	clock    clockwork.Clock
	onReveal func()
	onChange func(Snapshot)
	hooks    []func()
	metrics  *Metrics

	// cbMu is held while callbacks run so Stop can wait them out.
	cbMu sync.Mutex

	mu       sync.Mutex
	snapshot Snapshot
	fired    bool
	started  bool
	stopped  bool
	cancel   context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithClock sets the time source. Defaults to the real wall clock.
func WithClock(clock clockwork.Clock) GateOption {
	return func(g *Gate) { g.clock = clock }
}

// WithOnReveal registers a callback invoked once when the gate reveals.
func WithOnReveal(fn func()) GateOption {
	return func(g *Gate) { g.onReveal = fn }
}

// WithOnChange registers a callback invoked with every snapshot that differs
// from the previous one.
func WithOnChange(fn func(Snapshot)) GateOption {
	return func(g *Gate) { g.onChange = fn }
}

// WithSection names the gated section for logs and metrics.
func WithSection(section string) GateOption {
	return func(g *Gate) { g.section = section }
}

// withRevealHook registers an internal callback that runs before onReveal.
func withRevealHook(fn func()) GateOption {
	return func(g *Gate) { g.hooks = append(g.hooks, fn) }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *Metrics) GateOption {
	return func(g *Gate) { g.metrics = m }
}

// NewGate creates a gate for target and evaluates its initial snapshot
// immediately, so callers never observe a placeholder state.
func NewGate(target string, opts ...GateOption) *Gate {
	g := &Gate{
		target:  target,
		section: "unnamed",
		clock:   clockwork.NewRealClock(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.snapshot = Evaluate(target, g.clock.Now())
	return g
}

// Start begins polling once per TickInterval. A gate that is already revealed
// schedules no ticks and fires its reveal callback right away. Calling Start
// more than once, or after Stop, has no effect.
func (g *Gate) Start(ctx context.Context) {
	g.cbMu.Lock()
	g.mu.Lock()
	if g.started || g.stopped {
		g.mu.Unlock()
		g.cbMu.Unlock()
		return
	}
	g.started = true

	if g.snapshot.Revealed {
		fire := g.markFired()
		g.mu.Unlock()
		if fire {
			g.notifyReveal()
		}
		g.cbMu.Unlock()
		g.closeDone()
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	ticker := g.clock.NewTicker(TickInterval)
	g.mu.Unlock()
	g.cbMu.Unlock()

	g.metrics.gateStarted()
	log.Debug().
		Str("section", g.section).
		Str("target", g.target).
		Msg("reveal gate polling started")

	go g.run(ctx, ticker)
}

func (g *Gate) run(ctx context.Context, ticker clockwork.Ticker) {
	defer func() {
		ticker.Stop()
		g.metrics.gateStopped()
		g.closeDone()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("section", g.section).Msg("reveal gate polling cancelled")
			return
		case <-ticker.Chan():
			if g.tick() {
				return
			}
		}
	}
}

// tick evaluates the target and reports whether polling should stop.
// A revealed snapshot is final, even if the clock later moves backwards.
func (g *Gate) tick() bool {
	g.cbMu.Lock()
	defer g.cbMu.Unlock()

	next := Evaluate(g.target, g.clock.Now())

	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return true
	}
	if g.snapshot.Revealed {
		fire := g.markFired()
		g.mu.Unlock()
		if fire {
			g.notifyReveal()
		}
		return true
	}
	changed := !next.Equal(g.snapshot)
	if changed {
		g.snapshot = next
	}
	fire := next.Revealed && g.markFired()
	g.mu.Unlock()

	g.metrics.tick(g.section, changed)
	if changed && g.onChange != nil {
		g.onChange(next)
	}
	if fire {
		g.notifyReveal()
	}
	return next.Revealed
}

// Check re-evaluates the target outside the ticker and applies the same
// transition rules. The reveal callback still fires at most once.
func (g *Gate) Check() Snapshot {
	g.tick()
	return g.Snapshot()
}

// Snapshot returns the most recent countdown state.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot
}

// Revealed reports whether the gate has revealed.
func (g *Gate) Revealed() bool {
	return g.Snapshot().Revealed
}

// Section returns the name given with WithSection.
func (g *Gate) Section() string {
	return g.section
}

// Stop cancels polling and waits for a callback in progress to return. No
// snapshot updates or callbacks happen afterwards. Callbacks must not call
// Stop or Check on their own gate.
func (g *Gate) Stop() {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.stopped = true
	cancel := g.cancel
	started := g.started
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	g.cbMu.Lock()
	//nolint:staticcheck // empty critical section waits for running callbacks
	g.cbMu.Unlock()
	if !started {
		g.closeDone()
	}
}

// Done is closed once the gate has no polling goroutine left.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// markFired must be called with g.mu held.
func (g *Gate) markFired() bool {
	if g.fired {
		return false
	}
	g.fired = true
	return true
}

func (g *Gate) notifyReveal() {
	g.metrics.revealed(g.section)
	log.Info().
		Str("section", g.section).
		Str("target", g.target).
		Msg("section revealed")
	for _, hook := range g.hooks {
		hook()
	}
	if g.onReveal != nil {
		g.onReveal()
	}
}

func (g *Gate) closeDone() {
	g.doneOnce.Do(func() { close(g.done) })
}
