// Package stream pushes committed aggregate changes to websocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"dex-daydata/internal/domain"
	"dex-daydata/internal/storage"
)

const pingInterval = 30 * time.Second

// Frame is one changed aggregate record inside an Update.
type Frame struct {
	Kind          domain.AggregateKind `json:"kind"`
	ID            string               `json:"id"`
	Entity        string               `json:"entity,omitempty"`
	BucketStart   int64                `json:"bucketStart"`
	BucketSeconds int64                `json:"bucketSeconds"`
	Created       bool                 `json:"created"`
	Record        any                  `json:"record"`
}

// Update is the JSON text message sent for one committed event.
type Update struct {
	Changes []Frame `json:"changes"`
}

// Options contains configuration for creating a Broadcaster.
type Options struct {
	Buffer       int           // queued updates per client, default 64
	WriteTimeout time.Duration // default 10s
	Logger       logrus.FieldLogger
}

// Broadcaster is a storage.SnapshotSink that fans changes out to websocket
// clients. It is also the http.Handler clients connect to.
//
// Clients may filter with ?kind=pair_hour,token_day and ?entity=<prefix>.
// A client whose queue is full is disconnected; Publish never blocks on it.
type Broadcaster struct {
	upgrader     websocket.Upgrader
	buffer       int
	writeTimeout time.Duration
	logger       logrus.FieldLogger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewBroadcaster creates a Broadcaster with no clients.
func NewBroadcaster(opts Options) *Broadcaster {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	timeout := opts.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Broadcaster{
		upgrader:     websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		buffer:       buffer,
		writeTimeout: timeout,
		logger:       logger.WithField("component", "stream"),
		clients:      make(map[*client]struct{}),
	}
}

// Compile-time interface checks.
var (
	_ storage.SnapshotSink = (*Broadcaster)(nil)
	_ http.Handler         = (*Broadcaster)(nil)
)

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	kinds  map[domain.AggregateKind]bool // empty means all
	entity string
}

func (c *client) wants(f Frame) bool {
	if len(c.kinds) > 0 && !c.kinds[f.Kind] {
		return false
	}
	return c.entity == "" || strings.HasPrefix(f.Entity, c.entity)
}

// Name implements storage.SnapshotSink.
func (b *Broadcaster) Name() string {
	return "websocket"
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish queues one Update per client holding the changes it subscribed to.
func (b *Broadcaster) Publish(_ context.Context, changes []storage.Change) error {
	if len(changes) == 0 {
		return nil
	}

	frames := make([]Frame, len(changes))
	for i, c := range changes {
		frames[i] = Frame{
			Kind:          c.Kind,
			ID:            c.ID,
			Entity:        c.Entity(),
			BucketStart:   c.Start,
			BucketSeconds: c.Size,
			Created:       c.Created,
			Record:        c.Record,
		}
	}
	all, err := json.Marshal(Update{Changes: frames})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.clients {
		msg := all
		if len(c.kinds) > 0 || c.entity != "" {
			var picked []Frame
			for _, f := range frames {
				if c.wants(f) {
					picked = append(picked, f)
				}
			}
			if len(picked) == 0 {
				continue
			}
			if msg, err = json.Marshal(Update{Changes: picked}); err != nil {
				return fmt.Errorf("marshal update: %w", err)
			}
		}

		select {
		case c.send <- msg:
		default:
			b.logger.WithField("remote", c.conn.RemoteAddr().String()).Warn("Client too slow, disconnecting")
			b.dropLocked(c)
		}
	}
	return nil
}

// ServeHTTP upgrades the request and streams updates until the client
// disconnects or the Broadcaster is closed.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kinds, err := parseKinds(r.URL.Query().Get("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		http.Error(w, "stream closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		b.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, b.buffer),
		done:   make(chan struct{}),
		kinds:  kinds,
		entity: strings.ToLower(r.URL.Query().Get("entity")),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	b.logger.WithField("remote", conn.RemoteAddr().String()).Info("Stream client connected")

	go b.writeLoop(c)
	b.readLoop(c)
}

// readLoop discards client messages; it returns when the connection fails.
func (b *Broadcaster) readLoop(c *client) {
	defer b.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				b.logger.WithError(err).Debug("Websocket write failed")
				b.drop(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.drop(c)
				return
			}
		}
	}
}

func (b *Broadcaster) drop(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropLocked(c)
}

func (b *Broadcaster) dropLocked(c *client) {
	if _, ok := b.clients[c]; !ok {
		return
	}
	delete(b.clients, c)
	close(c.done)
	c.conn.Close()
}

// Close disconnects every client and refuses new ones.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for c := range b.clients {
		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		b.dropLocked(c)
	}
	return nil
}

func parseKinds(raw string) (map[domain.AggregateKind]bool, error) {
	if raw == "" {
		return nil, nil
	}
	kinds := make(map[domain.AggregateKind]bool)
	for _, part := range strings.Split(raw, ",") {
		k := domain.AggregateKind(strings.TrimSpace(part))
		if !k.Valid() {
			return nil, fmt.Errorf("unknown aggregate kind %q", k)
		}
		kinds[k] = true
	}
	return kinds, nil
}
