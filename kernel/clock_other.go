//go:build !unix

package kernel

import "time"

// monotonicNow falls back to time.Now on platforms without
// CLOCK_MONOTONIC (golang.org/x/sys/unix doesn't build there either).
func monotonicNow() time.Time {
	return time.Now()
}
