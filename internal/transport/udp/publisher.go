// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "spectra/internal/log"
	"spectra/internal/transport"
)

/*
Packet layout (BigEndian):

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |  Band Count   |       Band Values       |
|      (uint32)     |   (int64, unix ns)    |    (uint16)   |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+

The sequence number counts packets sent by this publisher, not audio frames;
the snapshot's own frame sequence is not on the wire.
*/

// Publisher periodically snapshots the pipeline's band values, packs them
// into the binary layout above and sends them over UDP.
type Publisher struct {
	sender   *Sender
	provider transport.SnapshotProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum uint32

	// Pre-allocated buffers keep the tick path allocation-free.
	bands  []float64
	f32    []float32
	packet *bytes.Buffer
}

// NewPublisher creates a publisher pulling from the given provider. An
// interval <= 0 falls back to ~30Hz.
func NewPublisher(interval time.Duration, sender *Sender, provider transport.SnapshotProvider) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp: sender cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("udp: snapshot provider cannot be nil")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("udp: invalid send interval, defaulting to %s", interval)
	}

	n := provider.BandCount()
	applog.Infof("udp: publisher ready (interval %s, %d bands)", interval, n)

	return &Publisher{
		sender:   sender,
		provider: provider,
		interval: interval,
		bands:    make([]float64, n),
		f32:      make([]float32, n),
		packet:   new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("udp: Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine, waits for it to exit and leaves the sender
// open for the caller to close. Safe to call more than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// buildAndSendPacket runs once per tick: snapshot, convert, pack, send.
func (p *Publisher) buildAndSendPacket() {
	if _, ok := p.provider.SnapshotInto(p.bands); !ok {
		return // nothing analyzed yet
	}

	for i, v := range p.bands {
		p.f32[i] = float32(v)
	}

	p.sequenceNum++
	p.packet.Reset()

	err := binary.Write(p.packet, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packet, binary.BigEndian, time.Now().UnixNano())
	}
	if err == nil {
		err = binary.Write(p.packet, binary.BigEndian, uint16(len(p.f32)))
	}
	if err == nil {
		err = binary.Write(p.packet, binary.BigEndian, p.f32)
	}
	if err != nil {
		applog.Errorf("udp: packing packet: %v", err)
		return
	}

	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		applog.Debugf("udp: send failed: %v", err)
		return
	}
	applog.Debugf("udp: sent packet %d (%d bytes)", p.sequenceNum, p.packet.Len())
}

// Close stops the publisher.
func (p *Publisher) Close() error {
	return p.Stop()
}
