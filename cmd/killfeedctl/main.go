// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

// Command killfeedctl is the operator tool for a killfeed deployment. It
// issues command API tokens, hashes API keys for api.api_key_hash and checks
// zKillboard links before they are submitted.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
