package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	return startNATSWithOptions(t, &natsserver.Options{Host: "127.0.0.1", Port: -1})
}

func startTestJetStream(t *testing.T) string {
	t.Helper()
	return startNATSWithOptions(t, &natsserver.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
}

func startNATSWithOptions(t *testing.T, opts *natsserver.Options) string {
	t.Helper()
	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestPublishersImplementInterface(t *testing.T) {
	var _ Publisher = NoopPublisher{}
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestNoopPublisher(t *testing.T) {
	p := NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Subject("venue"), struct{}{}))
	assert.NoError(t, p.Close())
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "igacmun.reveals.committees", Subject("committees"))
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(DefaultConfig(url))
	require.NoError(t, err)
	defer pub.Close()

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(SubjectPrefix+".>", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe() //nolint:errcheck
	require.NoError(t, nc.Flush())

	at := time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC)
	event := NewSectionRevealed("committees", "2025-12-25T10:00:00Z", at)
	require.NoError(t, pub.Publish(context.Background(), Subject("committees"), event))

	select {
	case msg := <-ch:
		assert.Equal(t, "igacmun.reveals.committees", msg.Subject)
		var got SectionRevealed
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, "committees", got.Section)
		assert.True(t, at.Equal(got.RevealedAt))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(DefaultConfig(url))
	require.NoError(t, err)
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.Publish(ctx, Subject("venue"), struct{}{}), context.Canceled)
}

func TestNewNATSPublisher_Unreachable(t *testing.T) {
	cfg := DefaultConfig("nats://127.0.0.1:1")
	_, err := NewNATSPublisher(cfg)
	assert.Error(t, err)
}

func TestNATSPublisher_Stream(t *testing.T) {
	url := startTestJetStream(t)

	cfg := DefaultConfig(url)
	cfg.Stream = "IGACMUN_REVEALS"
	pub, err := NewNATSPublisher(cfg)
	require.NoError(t, err)
	defer pub.Close()

	event := NewSectionRevealed("venue", "2024-12-15T10:00:00Z", time.Now())
	ctx := context.Background()
	require.NoError(t, pub.Publish(ctx, Subject("venue"), event))
	// Same message ID inside the duplicate window is stored once.
	require.NoError(t, pub.Publish(ctx, Subject("venue"), event))

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()
	js, err := jetstream.New(nc)
	require.NoError(t, err)

	stream, err := js.Stream(ctx, "IGACMUN_REVEALS")
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)

	msg, err := stream.GetLastMsgForSubject(ctx, Subject("venue"))
	require.NoError(t, err)
	var got SectionRevealed
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, event.ID, got.ID)
}

func TestNATSPublisher_StreamStoresReplicatedRevealOnce(t *testing.T) {
	url := startTestJetStream(t)
	ctx := context.Background()

	cfg := DefaultConfig(url)
	cfg.Stream = "IGACMUN_REVEALS"
	first, err := NewNATSPublisher(cfg)
	require.NoError(t, err)
	defer first.Close()
	second, err := NewNATSPublisher(cfg)
	require.NoError(t, err)
	defer second.Close()

	// Two instances observe the same reveal a few milliseconds apart.
	at := time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC)
	require.NoError(t, first.Publish(ctx, Subject("committees"),
		NewSectionRevealed("committees", "2025-12-25T10:00:00Z", at)))
	require.NoError(t, second.Publish(ctx, Subject("committees"),
		NewSectionRevealed("committees", "2025-12-25T10:00:00Z", at.Add(3*time.Millisecond))))

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()
	js, err := jetstream.New(nc)
	require.NoError(t, err)
	stream, err := js.Stream(ctx, "IGACMUN_REVEALS")
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)
}

func TestRevealID(t *testing.T) {
	a := NewSectionRevealed("venue", "2025-12-01T00:00:00Z", time.Now())
	b := NewSectionRevealed("venue", "2025-12-01T00:00:00Z", time.Now().Add(time.Hour))

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, RevealID("venue", "2025-12-01T00:00:00Z"), a.ID)
	assert.NotEqual(t, a.ID, RevealID("venue", "2025-12-02T00:00:00Z"))
	assert.NotEqual(t, a.ID, RevealID("schedule", "2025-12-01T00:00:00Z"))
}

func TestNATSPublisher_StreamRequiresJetStream(t *testing.T) {
	url := startTestNATS(t)

	cfg := DefaultConfig(url)
	cfg.Stream = "IGACMUN_REVEALS"
	_, err := NewNATSPublisher(cfg)
	assert.Error(t, err)
}
