// Package sockets fans messages out to websocket clients.
package sockets

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrClosed     = errors.New("connection closed")
	ErrSlowClient = errors.New("websocket client too slow, disconnecting")
)

// Hub accepts websocket clients over HTTP and broadcasts every message to
// all of them. Clients are write-only; anything they send is discarded.
type Hub struct {
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	sendBuffer   int
	onError      func(error)
	onConnected  func(*Conn)

	mu      sync.Mutex
	clients map[*Conn]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// Conn is one connected client.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func New(opts ...func(*Hub)) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: 30 * time.Second,
		writeTimeout: 10 * time.Second,
		sendBuffer:   16,
		clients:      make(map[*Conn]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.error(err)
		return
	}

	c := &Conn{
		ws:   ws,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = ws.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)

	if h.onConnected != nil {
		h.onConnected(c)
	}
}

// Broadcast queues msg for every client. A client whose queue is full is dropped.
func (h *Hub) Broadcast(msg []byte) {
	slow := 0
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.remove(c)
			slow++
		}
	}
	h.mu.Unlock()
	if slow > 0 {
		h.error(ErrSlowClient)
	}
}

// Send queues msg for a single client.
func (c *Conn) Send(msg []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their goroutines to exit.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		h.remove(c)
	}
	h.mu.Unlock()
	h.wg.Wait()
	return nil
}

// remove must be called with h.mu held.
func (h *Hub) remove(c *Conn) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
}

func (h *Hub) drop(c *Conn) {
	h.mu.Lock()
	h.remove(c)
	h.mu.Unlock()
}

func (c *Conn) close() {
	c.once.Do(func() { close(c.done) })
}

func (h *Hub) writeLoop(c *Conn) {
	defer h.wg.Done()
	defer c.ws.Close()
	defer h.drop(c)

	var ping <-chan time.Time
	if h.pingInterval > 0 {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.error(err)
				return
			}
		case <-ping:
			_ = c.ws.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.error(err)
				return
			}
		}
	}
}

func (h *Hub) readLoop(c *Conn) {
	defer h.wg.Done()
	defer h.drop(c)

	// Deadlines left over from the HTTP server are replaced by a pong-driven one.
	var deadline time.Time
	if h.pingInterval > 0 {
		wait := 2 * h.pingInterval
		deadline = time.Now().Add(wait)
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(wait))
		})
	}
	_ = c.ws.SetReadDeadline(deadline)

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.error(err)
			}
			return
		}
	}
}

func (h *Hub) error(err error) {
	if h.onError != nil {
		h.onError(err)
	}
}
