// Package audiobridge implements the audio sample bridge (component V): a
// fixed-capacity ring buffer an external audio thread would write into
// (never implemented here — spec.md §1 excludes audio I/O), read by the
// render loop once per frame and handed to every live Scinth as the
// current sample behind the @tweenSampler intrinsic. Absent a producer,
// reads return silence.
package audiobridge

import "github.com/spaghettifunk/scinthd/engine/containers"

// Bridge wraps a containers.RingQueue[float32] (component V's adaptation
// of the teacher's ring_queue.go) with the one-writer/one-reader-per-frame
// contract this bridge needs.
type Bridge struct {
	queue *containers.RingQueue[float32]
}

// New returns a Bridge buffering up to capacity unread samples.
func New(capacity int) *Bridge {
	if capacity < 1 {
		capacity = 1
	}
	return &Bridge{queue: containers.NewRingQueue[float32](capacity)}
}

// Write pushes samples from the producer thread. A full bridge overwrites
// its oldest unread sample rather than blocking the producer.
func (b *Bridge) Write(samples []float32) {
	for _, v := range samples {
		b.queue.EnqueueOverwrite(v)
	}
}

// Sample returns the most recently written sample, or 0 (silence) if the
// bridge has never been written to. Nondestructive: the render loop reads
// the same most-recent value every frame until the producer writes again.
func (b *Bridge) Sample() float32 {
	var latest [1]float32
	if b.queue.Snapshot(latest[:]) == 0 {
		return 0
	}
	return latest[0]
}
