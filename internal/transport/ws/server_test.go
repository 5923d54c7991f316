// SPDX-License-Identifier: MIT
package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeProvider serves an incrementing snapshot so every broadcast looks new.
type fakeProvider struct {
	bands []float64
	seq   uint64
}

func (f *fakeProvider) SnapshotInto(dst []float64) (uint64, bool) {
	if f.seq == 0 {
		return 0, false
	}
	copy(dst, f.bands)
	return f.seq, true
}

func (f *fakeProvider) BandCount() int {
	return len(f.bands)
}

func dialTestClient(t *testing.T, b *Broadcaster) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(b.handleUpgrade))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bands"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastDeliversJSON(t *testing.T) {
	provider := &fakeProvider{bands: []float64{0.1, 0.9}, seq: 5}
	b, err := NewBroadcaster("0", 10*time.Millisecond, provider)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	conn := dialTestClient(t, b)

	// Give the register a moment, then push one frame by hand.
	time.Sleep(20 * time.Millisecond)
	b.broadcast()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg bandMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading broadcast: %v", err)
	}

	if msg.Seq != 5 {
		t.Errorf("seq = %d, want 5", msg.Seq)
	}
	if len(msg.Bands) != 2 || msg.Bands[0] != 0.1 || msg.Bands[1] != 0.9 {
		t.Errorf("bands = %v, want [0.1 0.9]", msg.Bands)
	}
	if msg.TS == 0 {
		t.Error("timestamp missing")
	}
}

func TestBroadcastSkipsStaleSnapshots(t *testing.T) {
	provider := &fakeProvider{bands: []float64{0.5}, seq: 1}
	b, err := NewBroadcaster("0", 10*time.Millisecond, provider)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	conn := dialTestClient(t, b)
	time.Sleep(20 * time.Millisecond)

	b.broadcast() // seq 1, delivered
	b.broadcast() // same seq, suppressed
	provider.seq = 2
	b.broadcast() // new seq, delivered

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second bandMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatal(err)
	}
	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("got seqs %d, %d; want 1, 2", first.Seq, second.Seq)
	}
}

func TestBroadcastPrunesDeadClients(t *testing.T) {
	provider := &fakeProvider{bands: []float64{0.5}, seq: 1}
	b, err := NewBroadcaster("0", 10*time.Millisecond, provider)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	conn := dialTestClient(t, b)
	time.Sleep(20 * time.Millisecond)
	conn.Close()

	// The write may not fail until the close propagates; broadcast until
	// the client map drains.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		provider.seq++
		b.broadcast()
		b.clientsMu.Lock()
		n := len(b.clients)
		b.clientsMu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("closed client never pruned")
}

func TestCloseIdempotent(t *testing.T) {
	b, err := NewBroadcaster("0", 10*time.Millisecond, &fakeProvider{bands: []float64{0}})
	if err != nil {
		t.Fatal(err)
	}
	b.Start()

	for i := 0; i < 3; i++ {
		if err := b.Close(); err != nil {
			t.Errorf("Close #%d: %v", i, err)
		}
	}
}
