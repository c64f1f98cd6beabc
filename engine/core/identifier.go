package core

import (
	"fmt"
	"sync"
)

// IDPool hands out small reusable integer handles, reusing freed slots
// before growing. Safe for concurrent use.
type IDPool struct {
	mu     sync.Mutex
	owners []interface{}
}

// NewIDPool returns an IDPool pre-sized to capacity initial slots.
func NewIDPool(capacity int) *IDPool {
	if capacity <= 0 {
		capacity = 16
	}
	return &IDPool{owners: make([]interface{}, capacity)}
}

// Acquire returns a new id for owner, reusing the lowest free slot if any.
func (p *IDPool) Acquire(owner interface{}) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, o := range p.owners {
		if o == nil {
			p.owners[i] = owner
			return uint32(i)
		}
	}
	p.owners = append(p.owners, owner)
	return uint32(len(p.owners) - 1)
}

// Release frees id for reuse.
func (p *IDPool) Release(id uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int(id) >= len(p.owners) {
		return fmt.Errorf("identifier: id %d out of range (max=%d)", id, len(p.owners))
	}
	p.owners[id] = nil
	return nil
}

// Owner returns the value registered for id, or nil if the slot is free or
// out of range.
func (p *IDPool) Owner(id uint32) interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int(id) >= len(p.owners) {
		return nil
	}
	return p.owners[id]
}
