// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"

	"spectra/cmd"
	"spectra/pkg/build"
)

// main only primes build metadata and hands off to the CLI; the pipeline
// lifecycle (startup, concurrent cadences, signal-driven shutdown) lives in
// the cmd package.
func main() {
	build.Initialize()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", build.GetBuildFlags().Name, err)
		os.Exit(1)
	}
}
