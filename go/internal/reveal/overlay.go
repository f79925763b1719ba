package reveal

import (
	"context"
	"sync/atomic"
)

// Overlay shows a countdown until its gate reveals and the gated content
// afterwards. Once revealed it never shows the countdown again.
type Overlay struct {
	gate     *Gate
	revealed atomic.Bool
}

// NewOverlay builds an overlay around a new gate for target. Any WithOnReveal
// option still fires, after the overlay has switched to content.
func NewOverlay(target string, opts ...GateOption) *Overlay {
	o := &Overlay{}
	gateOpts := make([]GateOption, 0, len(opts)+1)
	gateOpts = append(gateOpts, opts...)
	gateOpts = append(gateOpts, withRevealHook(func() { o.revealed.Store(true) }))

	o.gate = NewGate(target, gateOpts...)
	if o.gate.Revealed() {
		o.revealed.Store(true)
	}
	return o
}

// Start starts the underlying gate.
func (o *Overlay) Start(ctx context.Context) { o.gate.Start(ctx) }

// Stop stops the underlying gate.
func (o *Overlay) Stop() { o.gate.Stop() }

// Gate exposes the wrapped gate for countdown rendering.
func (o *Overlay) Gate() *Gate { return o.gate }

// Revealed is sticky: it stays true once the content has been shown.
func (o *Overlay) Revealed() bool {
	if o.revealed.Load() {
		return true
	}
	if o.gate.Check().Revealed {
		o.revealed.Store(true)
	}
	return o.revealed.Load()
}

// Choose returns content once revealed and countdown before that.
func Choose[T any](o *Overlay, countdown, content T) T {
	if o.Revealed() {
		return content
	}
	return countdown
}
