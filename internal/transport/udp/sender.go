// SPDX-License-Identifier: MIT
package udp

import (
	"fmt"
	"net"
	"sync"

	applog "spectra/internal/log"
)

// Sender transmits packets to one UDP target. Safe for concurrent use,
// though the publisher calls it from a single goroutine.
type Sender struct {
	conn   *net.UDPConn
	mu     sync.Mutex
	closed bool
}

// NewSender dials the target ("host:port").
func NewSender(targetAddress string) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("resolving UDP target %q: %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dialing UDP target %q: %w", targetAddress, err)
	}

	applog.Infof("udp: sending to %s", conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Send transmits one packet.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("udp: sender is closed")
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("udp: sending packet: %w", err)
	}
	return nil
}

// Close shuts the connection down. Safe to call more than once.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
