// Package memzero wipes key material held in memory.
package memzero

import "runtime"

// Zero overwrites every byte of b. The KeepAlive stops the compiler from
// treating the writes as dead stores when b is not read again.
func Zero(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}
