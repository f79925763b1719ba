package reveal

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

// rewindClock lets a test move "now" backwards, which FakeClock does not.
type rewindClock struct {
	*clockwork.FakeClock
	offset time.Duration
}

func (c *rewindClock) Now() time.Time {
	return c.FakeClock.Now().Add(c.offset)
}

func TestOverlay_SwapsToContentAndStays(t *testing.T) {
	clock := &rewindClock{FakeClock: clockwork.NewFakeClockAt(gateStart)}
	var calls atomic.Int32
	changes := make(chan Snapshot, 4)
	o := NewOverlay(gateStart.Add(time.Second).Format(time.RFC3339),
		WithClock(clock),
		WithOnChange(func(s Snapshot) { changes <- s }),
		WithOnReveal(func() { calls.Add(1) }),
	)
	o.Start(context.Background())
	defer o.Stop()

	assert.Equal(t, "countdown", Choose(o, "countdown", "content"))

	clock.Advance(time.Second)
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reveal")
	}
	<-o.Gate().Done()

	assert.Equal(t, "content", Choose(o, "countdown", "content"))
	assert.Equal(t, int32(1), calls.Load())

	// Turning the clock back does not re-show the countdown.
	clock.offset = -time.Hour
	assert.False(t, Evaluate(gateStart.Add(time.Second).Format(time.RFC3339), clock.Now()).Revealed)
	assert.True(t, o.Revealed())
	assert.Equal(t, "content", Choose(o, "countdown", "content"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestOverlay_AlreadyRevealed(t *testing.T) {
	clock := clockwork.NewFakeClockAt(gateStart)

	o := NewOverlay("2024-12-15T10:00:00Z", WithClock(clock))

	assert.True(t, o.Revealed())
	assert.Equal(t, 2, Choose(o, 1, 2))
}

func TestOverlay_RevealedOnQueryWithoutStart(t *testing.T) {
	clock := clockwork.NewFakeClockAt(gateStart)
	o := NewOverlay(gateStart.Add(time.Minute).Format(time.RFC3339), WithClock(clock))

	assert.False(t, o.Revealed())
	clock.Advance(time.Minute)
	assert.True(t, o.Revealed())
}

func TestOverlay_LeavesCallerOptionsUntouched(t *testing.T) {
	clock := clockwork.NewFakeClockAt(gateStart)
	opts := make([]GateOption, 1, 4)
	opts[0] = WithClock(clock)

	var sawContent atomic.Bool
	var o *Overlay
	opts = append(opts, WithOnReveal(func() { sawContent.Store(o.Revealed()) }))
	o = NewOverlay(gateStart.Add(time.Second).Format(time.RFC3339), opts...)

	assert.Len(t, opts, 2)
	assert.Nil(t, opts[:cap(opts)][2])

	clock.Advance(time.Second)
	assert.True(t, o.Revealed())
	assert.True(t, sawContent.Load())
}
