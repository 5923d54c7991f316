// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"strings"
)

// Spacing selects how FFT bins are distributed across bands.
type Spacing int

const (
	// SpacingLog spreads bands logarithmically, giving low frequencies
	// more resolution the way hearing does.
	SpacingLog Spacing = iota
	// SpacingLinear gives every band an equal share of bins.
	SpacingLinear
)

// ParseSpacing converts a string name (case-insensitive) to a Spacing enum.
func ParseSpacing(name string) (Spacing, error) {
	switch strings.ToLower(name) {
	case "log", "logarithmic":
		return SpacingLog, nil
	case "linear":
		return SpacingLinear, nil
	default:
		return SpacingLog, fmt.Errorf("unknown band spacing: %q", name)
	}
}

// bandEdges partitions the bin range 0..maxBin (inclusive) into numBands
// half-open ranges [edges[i], edges[i+1]). Every bin belongs to exactly one
// band and every band gets at least one bin, which requires
// numBands <= maxBin.
func bandEdges(maxBin, numBands int, spacing Spacing) []int {
	edges := make([]int, numBands+1)
	edges[0] = 0
	edges[numBands] = maxBin + 1

	for i := 1; i < numBands; i++ {
		var e int
		if spacing == SpacingLinear {
			e = i * (maxBin + 1) / numBands
		} else {
			e = int(math.Round(math.Pow(float64(maxBin), float64(i)/float64(numBands))))
		}
		edges[i] = e
	}

	// Two fixup passes keep the edges strictly ascending even where the
	// rounded curve is flat: first push edges up off their left neighbor,
	// then pull them down under their right one. There is always room
	// because numBands <= maxBin.
	for i := 1; i < numBands; i++ {
		if edges[i] <= edges[i-1] {
			edges[i] = edges[i-1] + 1
		}
	}
	for i := numBands - 1; i >= 1; i-- {
		if edges[i] >= edges[i+1] {
			edges[i] = edges[i+1] - 1
		}
	}

	return edges
}
