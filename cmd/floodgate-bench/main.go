/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command floodgate-bench replays synthetic traffic against floodgate and reference rate limiters
// on a virtual clock and prints how many events each of them allowed and suppressed.
package main

import (
	"fmt"
	"os"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
