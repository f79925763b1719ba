package live

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/igacmun/site/go/internal/notify"
	"github.com/igacmun/site/go/internal/reveal"
	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var liveStart = time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)

func testSite(committeesAt string) *siteconfig.Config {
	return &siteconfig.Config{
		Event: siteconfig.Event{Title: "Test"},
		Reveals: siteconfig.Reveals{
			Committees:   siteconfig.Reveal{RevealAt: committeesAt, EnableCountdown: true},
			Schedule:     siteconfig.Reveal{RevealAt: "2025-12-15T10:00:00Z", EnableCountdown: false},
			Venue:        siteconfig.Reveal{RevealAt: "2024-12-15T10:00:00Z", EnableCountdown: true},
			Secretariats: siteconfig.Reveal{RevealAt: "2026-01-01T00:00:00Z", EnableCountdown: true},
		},
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.SectionRevealed
	subs   []string
	got    chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{got: make(chan struct{}, 8)}
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, event any) error {
	p.mu.Lock()
	p.subs = append(p.subs, subject)
	p.events = append(p.events, event.(notify.SectionRevealed))
	p.mu.Unlock()
	p.got <- struct{}{}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func startLive(t *testing.T, site *siteconfig.Config, clock clockwork.Clock) (*Service, string) {
	t.Helper()
	svc := NewService(Config{ConnectionConfig: DefaultConnectionConfig(), Clock: clock}, site, notify.NoopPublisher{})
	r := chi.NewRouter()
	svc.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return svc, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func tickPayload(t *testing.T, ev Event) CountdownTickPayload {
	t.Helper()
	require.Equal(t, EventTypeCountdownTick, ev.Type)
	payload, err := ParseEventPayload(&ev)
	require.NoError(t, err)
	return payload.(CountdownTickPayload)
}

func waitForTicker(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
}

func TestCountdownSocket_TicksThenReveals(t *testing.T) {
	clock := clockwork.NewFakeClockAt(liveStart)
	target := liveStart.Add(2 * time.Second).Format(time.RFC3339)
	svc, base := startLive(t, testSite(target), clock)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/countdown?section=committees", nil)
	require.NoError(t, err)
	defer conn.Close()

	first := tickPayload(t, readEvent(t, conn))
	assert.Equal(t, reveal.Snapshot{Seconds: 2}, first.Snapshot)
	assert.Equal(t, target, first.RevealAt)

	waitForTicker(t, clock)
	clock.Advance(time.Second)
	second := tickPayload(t, readEvent(t, conn))
	assert.Equal(t, reveal.Snapshot{Seconds: 1}, second.Snapshot)

	clock.Advance(time.Second)
	revealed := readEvent(t, conn)
	assert.Equal(t, EventTypeSectionRevealed, revealed.Type)
	assert.Equal(t, "committees", revealed.Section)

	// The server closes the socket after the reveal.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived), "got %v", err)

	require.Eventually(t, func() bool { return svc.Stats().TotalConnections == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCountdownSocket_AlreadyRevealed(t *testing.T) {
	clock := clockwork.NewFakeClockAt(liveStart)
	_, base := startLive(t, testSite("2025-12-25T10:00:00Z"), clock)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/countdown?section=venue", nil)
	require.NoError(t, err)
	defer conn.Close()

	ev := readEvent(t, conn)
	assert.Equal(t, EventTypeSectionRevealed, ev.Type)
	payload, err := ParseEventPayload(&ev)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-15T10:00:00Z", payload.(SectionRevealedPayload).RevealAt)
}

func TestCountdownSocket_DisconnectStopsGate(t *testing.T) {
	clock := clockwork.NewFakeClockAt(liveStart)
	svc, base := startLive(t, testSite("2025-12-25T10:00:00Z"), clock)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/countdown?section=committees", nil)
	require.NoError(t, err)
	readEvent(t, conn)
	waitForTicker(t, clock)
	assert.Equal(t, 1, svc.Stats().SectionConnections["committees"])

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return svc.Stats().TotalConnections == 0 }, 2*time.Second, 10*time.Millisecond)

	// With the gate torn down nothing is left waiting on the clock.
	assert.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		return clock.BlockUntilContext(ctx, 1) != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCountdownSocket_BadRequests(t *testing.T) {
	clock := clockwork.NewFakeClockAt(liveStart)
	_, base := startLive(t, testSite("2025-12-25T10:00:00Z"), clock)

	tests := []struct {
		query  string
		status int
	}{
		{"", 400},
		{"?section=gallery", 404},
		{"?section=schedule", 404},
	}
	for _, tt := range tests {
		_, resp, err := websocket.DefaultDialer.Dial(base+"/ws/countdown"+tt.query, nil)
		require.Error(t, err, tt.query)
		require.NotNil(t, resp, tt.query)
		assert.Equal(t, tt.status, resp.StatusCode, tt.query)
		resp.Body.Close()
	}
}

func TestWatcher_AnnouncesLiveRevealsOnly(t *testing.T) {
	clock := clockwork.NewFakeClockAt(liveStart)
	pub := newRecordingPublisher()
	site := testSite(liveStart.Add(time.Second).Format(time.RFC3339))
	w := NewWatcher(site, pub, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	// committees and secretariats poll; venue is already revealed; schedule is disabled.
	blockCtx, blockCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer blockCancel()
	require.NoError(t, clock.BlockUntilContext(blockCtx, 2))

	clock.Advance(time.Second)
	select {
	case <-pub.got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reveal announcement")
	}

	pub.mu.Lock()
	assert.Equal(t, []string{"igacmun.reveals.committees"}, pub.subs)
	assert.Equal(t, "committees", pub.events[0].Section)
	pub.mu.Unlock()

	s, ok := w.Snapshot(siteconfig.SectionCommittees)
	assert.True(t, ok)
	assert.True(t, s.Revealed)
	_, ok = w.Snapshot(siteconfig.SectionSchedule)
	assert.False(t, ok)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
