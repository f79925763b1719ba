package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/igacmun/site/go/internal/reveal"
	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ConnectionManager tracks countdown clients per section. Every connection
// owns a reveal gate for its section, so a client behaves like a page that
// mounted a countdown: it gets ticks until reveal, and its gate is torn down
// when the socket goes away.
type ConnectionManager struct {
	sectionConnections map[siteconfig.Section]map[*Connection]bool
	mu                 sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	clock    clockwork.Clock
	metrics  *Metrics
	gateMet  *reveal.Metrics
}

// Connection is one countdown client.
type Connection struct {
	ID      string
	Section siteconfig.Section
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	gate   *reveal.Gate
	cancel context.CancelFunc

	sendMu sync.Mutex
	closed bool

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for countdown sockets.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default socket settings.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  512,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a manager. gateMetrics may be nil.
func NewConnectionManager(config ConnectionConfig, clock clockwork.Clock, metrics *Metrics, gateMetrics *reveal.Metrics) *ConnectionManager {
	return &ConnectionManager{
		sectionConnections: make(map[siteconfig.Section]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:  config,
		clock:   clock,
		metrics: metrics,
		gateMet: gateMetrics,
	}
}

// Start blocks until ctx is done, then closes every connection.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("countdown connection manager started")
	<-ctx.Done()
	cm.closeAll()
	log.Info().Msg("countdown connection manager shut down")
}

// UpgradeConnection upgrades r and starts a countdown for section toward revealAt.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, section siteconfig.Section, revealAt string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := &Connection{
		ID:          uuid.New().String(),
		Section:     section,
		Conn:        conn,
		Send:        make(chan []byte, 16),
		Manager:     cm,
		cancel:      cancel,
		ConnectedAt: cm.clock.Now(),
	}
	connection.gate = reveal.NewGate(revealAt,
		reveal.WithClock(cm.clock),
		reveal.WithSection(string(section)),
		reveal.WithMetrics(cm.gateMet),
		reveal.WithOnChange(func(s reveal.Snapshot) {
			if !s.Revealed {
				connection.sendEvent(EventTypeCountdownTick, CountdownTickPayload{Snapshot: s, RevealAt: revealAt})
			}
		}),
		reveal.WithOnReveal(func() {
			connection.sendEvent(EventTypeSectionRevealed, SectionRevealedPayload{
				RevealAt:   revealAt,
				RevealedAt: cm.clock.Now().UTC(),
			})
			// Nothing follows a reveal; the write pump sends a close frame.
			connection.closeSend()
		}),
	)

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	// The first frame is the current state, so clients never render a placeholder.
	if initial := connection.gate.Snapshot(); !initial.Revealed {
		connection.sendEvent(EventTypeCountdownTick, CountdownTickPayload{Snapshot: initial, RevealAt: revealAt})
	}
	connection.gate.Start(ctx)

	log.Info().
		Str("connection_id", connection.ID).
		Str("section", string(section)).
		Msg("countdown connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.sectionConnections[conn.Section] == nil {
		cm.sectionConnections[conn.Section] = make(map[*Connection]bool)
	}
	cm.sectionConnections[conn.Section][conn] = true
	cm.metrics.connectionOpened(string(conn.Section))

	log.Debug().
		Str("connection_id", conn.ID).
		Str("section", string(conn.Section)).
		Int("section_connections", len(cm.sectionConnections[conn.Section])).
		Msg("connection registered")
}

// unregisterConnection removes conn and tears down its gate.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.sectionConnections[conn.Section]
	registered := exists && connections[conn]
	if registered {
		delete(connections, conn)
		if len(connections) == 0 {
			delete(cm.sectionConnections, conn.Section)
		}
	}
	cm.mu.Unlock()

	if !registered {
		return
	}

	conn.cancel()
	conn.gate.Stop()
	conn.closeSend()
	cm.metrics.connectionClosed(string(conn.Section))

	log.Info().
		Str("connection_id", conn.ID).
		Str("section", string(conn.Section)).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.sectionConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// Stats reports active connections.
type Stats struct {
	TotalConnections   int            `json:"total_connections"`
	SectionConnections map[string]int `json:"section_connections"`
}

func (cm *ConnectionManager) Stats() Stats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := Stats{SectionConnections: make(map[string]int)}
	for section, connections := range cm.sectionConnections {
		stats.TotalConnections += len(connections)
		stats.SectionConnections[string(section)] = len(connections)
	}
	return stats
}

func (c *Connection) sendEvent(typ EventType, payload any) {
	event, err := newEvent(string(c.Section), typ, payload, c.Manager.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to build event")
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal event")
		return
	}
	if !c.enqueue(data) {
		log.Warn().Str("connection_id", c.ID).Str("event_type", string(typ)).Msg("dropping event for slow connection")
	}
}

// enqueue reports false when the message could not be queued.
func (c *Connection) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.Send <- data:
		c.Manager.metrics.messageSent(string(c.Section))
		return true
	default:
		return false
	}
}

func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump only services control frames; clients have nothing to say.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
