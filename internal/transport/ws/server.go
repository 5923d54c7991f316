// SPDX-License-Identifier: MIT
// Package ws broadcasts band snapshots to WebSocket clients as JSON frames,
// the browser-friendly mirror of the binary UDP publisher.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	applog "spectra/internal/log"
	"spectra/internal/transport"

	"github.com/gorilla/websocket"
)

// bandMessage is one broadcast frame.
type bandMessage struct {
	Seq   uint64    `json:"seq"`
	TS    int64     `json:"ts"` // unix nanoseconds
	Bands []float64 `json:"bands"`
}

// Broadcaster serves a /bands WebSocket endpoint and pushes the latest band
// snapshot to every connected client at a fixed minimum interval.
type Broadcaster struct {
	provider transport.SnapshotProvider
	interval time.Duration
	upgrader websocket.Upgrader

	server *http.Server

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool

	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	seq   uint64
	bands []float64
}

// NewBroadcaster prepares a broadcaster listening on the given port. An
// interval <= 0 falls back to ~30Hz.
func NewBroadcaster(port string, interval time.Duration, provider transport.SnapshotProvider) (*Broadcaster, error) {
	if provider == nil {
		return nil, fmt.Errorf("ws: snapshot provider cannot be nil")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("ws: invalid send interval, defaulting to %s", interval)
	}

	b := &Broadcaster{
		provider: provider,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local visualizer clients connect from file:// pages and
			// localhost dev servers; origin checking buys nothing here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  make(map[*websocket.Conn]bool),
		doneChan: make(chan struct{}),
		bands:    make([]float64, provider.BandCount()),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/bands", b.handleUpgrade)
	b.server = &http.Server{Addr: ":" + port, Handler: mux}

	return b, nil
}

// Start launches the HTTP server and the broadcast loop.
func (b *Broadcaster) Start() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		applog.Infof("ws: serving /bands on %s", b.server.Addr)
		if err := b.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("ws: server error: %v", err)
		}
	}()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.broadcast()
			case <-b.doneChan:
				return
			}
		}
	}()
}

// handleUpgrade turns an HTTP request into a broadcast subscription. Reads
// are drained only to notice the client going away.
func (b *Broadcaster) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("ws: upgrade failed: %v", err)
		return
	}

	b.clientsMu.Lock()
	b.clients[conn] = true
	n := len(b.clients)
	b.clientsMu.Unlock()
	applog.Infof("ws: client connected (%d total)", n)

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				b.drop(conn)
				return
			}
		}
	}()
}

// broadcast sends the latest snapshot to every client, pruning the ones
// whose writes fail.
func (b *Broadcaster) broadcast() {
	seq, ok := b.provider.SnapshotInto(b.bands)
	if !ok || seq == b.seq {
		return // nothing new since the last tick
	}
	b.seq = seq

	msg := bandMessage{Seq: seq, TS: time.Now().UnixNano(), Bands: b.bands}

	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()
	for conn := range b.clients {
		if err := conn.WriteJSON(msg); err != nil {
			applog.Debugf("ws: dropping client after write error: %v", err)
			conn.Close()
			delete(b.clients, conn)
		}
	}
}

func (b *Broadcaster) drop(conn *websocket.Conn) {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()
	if b.clients[conn] {
		conn.Close()
		delete(b.clients, conn)
		applog.Infof("ws: client disconnected (%d total)", len(b.clients))
	}
}

// Close stops broadcasting, disconnects every client and shuts the server
// down. Safe to call more than once.
func (b *Broadcaster) Close() error {
	var err error
	b.stopOnce.Do(func() {
		close(b.doneChan)

		b.clientsMu.Lock()
		for conn := range b.clients {
			conn.Close()
			delete(b.clients, conn)
		}
		b.clientsMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = b.server.Shutdown(ctx)

		b.wg.Wait()
	})
	return err
}
