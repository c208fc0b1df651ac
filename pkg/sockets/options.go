package sockets

import "time"

func WithPingInterval(d time.Duration) func(*Hub) {
	return func(h *Hub) {
		h.pingInterval = d
	}
}

// WithSendBuffer sets how many messages may queue for one client before it
// is considered too slow and disconnected.
func WithSendBuffer(n int) func(*Hub) {
	return func(h *Hub) {
		h.sendBuffer = n
	}
}

func WithWriteTimeout(d time.Duration) func(*Hub) {
	return func(h *Hub) {
		h.writeTimeout = d
	}
}

func OnError(f func(error)) func(*Hub) {
	return func(h *Hub) {
		h.onError = f
	}
}

func OnConnected(f func(*Conn)) func(*Hub) {
	return func(h *Hub) {
		h.onConnected = f
	}
}
