// SPDX-License-Identifier: MIT
// Package transport defines the boundary between the pipeline and the
// optional outbound band publishers (UDP, WebSocket).
package transport

// SnapshotProvider supplies the latest smoothed band values to publishers.
// Implementations must never block: publishers run on their own tickers and
// the audio cadence must not wait for them.
type SnapshotProvider interface {
	// SnapshotInto copies the most recent band values into dst and returns
	// the audio sequence number they derive from. ok is false while no
	// snapshot has been published yet; dst is untouched in that case.
	SnapshotInto(dst []float64) (seq uint64, ok bool)

	// BandCount returns the number of values a snapshot carries.
	BandCount() int
}
