// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package monitoring holds the diagnostic logger shared by host code.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger so tests and tools can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Every returns a logger that forwards only the first call and then one in
// every n calls, with the running call count appended.
func Every(n int) func(format string, v ...interface{}) {
	count := 0
	return func(format string, v ...interface{}) {
		count++
		if count == 1 || (n > 0 && count%n == 0) {
			Logf(format+" (x%d)", append(v, count)...)
		}
	}
}
