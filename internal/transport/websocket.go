// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"pitch/internal/log"

	"github.com/gorilla/websocket"
)

// WebSocketPath is where frames are served.
const WebSocketPath = "/zoom"

const (
	broadcastQueue = 64
	writeTimeout   = time.Second
)

// WebSocketTransport broadcasts frames as JSON to every connected client.
// Send only queues the frame; a single goroutine does the writes, and
// frames are dropped while the queue is full.
//
// Thread Safety:
//   - Uses mutex for client map access, never held during a write
//   - Rate limits sends with a mutex-guarded timestamp
type WebSocketTransport struct {
	addr     string
	upgrader websocket.Upgrader
	server   *http.Server
	logger   *log.Logger

	clients   map[*websocket.Conn]struct{}
	clientsMu sync.Mutex

	// write sends one frame to one client. Only the broadcast goroutine calls it.
	write func(conn *websocket.Conn, frame Frame) error

	broadcast chan Frame
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	rateMu          sync.Mutex
	lastSend        time.Time
	minSendInterval time.Duration // Minimum time between sends, 0 sends every frame.
}

// NewWebSocketTransport prepares a transport for addr. Call Start to listen
// or mount Handler on an existing server.
func NewWebSocketTransport(addr string, minSendInterval time.Duration) *WebSocketTransport {
	t := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local visualisers connect from file:// pages.
			},
		},
		logger:          log.Named("websocket"),
		clients:         make(map[*websocket.Conn]struct{}),
		write:           writeFrame,
		broadcast:       make(chan Frame, broadcastQueue),
		done:            make(chan struct{}),
		minSendInterval: minSendInterval,
	}

	t.wg.Add(1)
	go t.handleBroadcasts()
	return t
}

// Handler returns the HTTP handler that serves WebSocketPath.
func (t *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, t.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves in the background.
// The listener is opened synchronously so address errors are reported.
func (t *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return err
	}
	t.server = &http.Server{
		Handler:           t.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		t.logger.Infof("serving frames on ws://%s%s", ln.Addr(), WebSocketPath)
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Errorf("server error: %v", err)
		}
	}()
	return nil
}

// Clients returns the number of connected clients.
func (t *WebSocketTransport) Clients() int {
	t.clientsMu.Lock()
	defer t.clientsMu.Unlock()
	return len(t.clients)
}

func (t *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Warnf("upgrade error: %v", err)
		return
	}

	t.clientsMu.Lock()
	t.clients[conn] = struct{}{}
	total := len(t.clients)
	t.clientsMu.Unlock()
	t.logger.Debugf("client connected, total: %d", total)

	// Clients only listen; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.drop(conn)
				return
			}
		}
	}()
}

func (t *WebSocketTransport) drop(conn *websocket.Conn) {
	t.clientsMu.Lock()
	_, ok := t.clients[conn]
	delete(t.clients, conn)
	total := len(t.clients)
	t.clientsMu.Unlock()

	if ok {
		conn.Close()
		t.logger.Debugf("client disconnected, total: %d", total)
	}
}

func (t *WebSocketTransport) handleBroadcasts() {
	defer t.wg.Done()
	for {
		select {
		case frame := <-t.broadcast:
			for _, client := range t.snapshot() {
				if err := t.write(client, frame); err != nil {
					t.logger.Debugf("error sending to client: %v", err)
					t.drop(client)
				}
			}
		case <-t.done:
			return
		}
	}
}

// snapshot copies the client set so a slow client does not hold the lock.
func (t *WebSocketTransport) snapshot() []*websocket.Conn {
	t.clientsMu.Lock()
	defer t.clientsMu.Unlock()
	conns := make([]*websocket.Conn, 0, len(t.clients))
	for conn := range t.clients {
		conns = append(conns, conn)
	}
	return conns
}

func writeFrame(conn *websocket.Conn, frame Frame) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(frame)
}

// Send queues frame for broadcast. Frames arriving faster than the minimum
// send interval or while the queue is full are dropped.
func (t *WebSocketTransport) Send(frame Frame) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	if t.minSendInterval > 0 {
		t.rateMu.Lock()
		now := time.Now()
		if now.Sub(t.lastSend) < t.minSendInterval {
			t.rateMu.Unlock()
			return nil
		}
		t.lastSend = now
		t.rateMu.Unlock()
	}

	select {
	case t.broadcast <- frame:
	default:
	}
	return nil
}

// Close disconnects all clients and shuts the server down. It is idempotent.
func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		t.wg.Wait()

		t.clientsMu.Lock()
		for client := range t.clients {
			client.Close()
		}
		t.clients = make(map[*websocket.Conn]struct{})
		t.clientsMu.Unlock()

		if t.server != nil {
			err = t.server.Close()
		}
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
