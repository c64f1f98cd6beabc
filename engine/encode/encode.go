// Package encode implements the video/image encoder collaborator
// (component U): an Encoder interface the Offscreen engine fans readback
// frames out to, plus a PNG-sequence and a raw-RGBA-dump realization.
package encode

// Encoder consumes successive readback frames. Implementations must
// tolerate being invoked from the Offscreen engine's readback goroutine and
// must not block it for long; a slow encoder should buffer internally.
type Encoder interface {
	// Encode receives one frame's tightly packed RGBA8 rows and its
	// simulated timestamp in seconds.
	Encode(rgba []byte, width, height int, timestamp float64) error
	// Close flushes and releases any resources the encoder holds.
	Close() error
}
