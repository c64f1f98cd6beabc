// Package compositor implements the Compositor (component L): the ordered
// list of live Scinths rendered every frame. Mutation (Add/Remove) is owned
// by the command dispatcher goroutine; RenderFrame is owned by the render
// thread. A mutex (the same coarse-grained guard the teacher's JobSystem
// uses around its queue) separates the two.
package compositor

import (
	"sync"

	"github.com/spaghettifunk/scinthd/engine/audiobridge"
	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/rendercontext"
	"github.com/spaghettifunk/scinthd/engine/scinth"
)

// Compositor holds the ordered set of Scinths currently live on the server
// and drives one frame's worth of PrepareFrame calls across them.
type Compositor struct {
	ctx    rendercontext.Context
	logger *core.Logger

	mu      sync.Mutex
	order   []int // node ids, in append order
	scinths map[int]*scinth.Scinth

	audio *audiobridge.Bridge
}

// New returns an empty Compositor submitting frames through ctx.
func New(ctx rendercontext.Context, logger *core.Logger) *Compositor {
	return &Compositor{
		ctx:     ctx,
		logger:  logger,
		scinths: make(map[int]*scinth.Scinth),
	}
}

// SetAudioBridge attaches the audio sample bridge (component V) RenderFrame
// reads from once per frame, before distributing its value to every live
// Scinth. A nil bridge (the default) leaves every Scinth's audio sample at
// silence.
func (c *Compositor) SetAudioBridge(b *audiobridge.Bridge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audio = b
}

// Add appends s to the render order, keyed by its node id. A duplicate node
// id replaces (and destroys) whatever was previously registered under it,
// matching ScinthNew's effect on the command dispatcher's node table.
func (c *Compositor) Add(s *scinth.Scinth) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.scinths[s.NodeID]; ok {
		existing.Destroy()
	} else {
		c.order = append(c.order, s.NodeID)
	}
	c.scinths[s.NodeID] = s
}

// Remove drops the Scinth registered under nodeID, destroying its GPU
// resources. A no-op if nodeID is not registered.
func (c *Compositor) Remove(nodeID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.scinths[nodeID]
	if !ok {
		return
	}
	s.Destroy()
	delete(c.scinths, nodeID)
	for i, id := range c.order {
		if id == nodeID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Get returns the Scinth registered under nodeID, or nil if not found.
func (c *Compositor) Get(nodeID int) *scinth.Scinth {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scinths[nodeID]
}

// Count returns the number of live Scinths, for the Status command reply.
func (c *Compositor) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// RenderFrame drives one frame for every live Scinth, in append order:
// reset/begin is BeginFrame's responsibility, PrepareFrame is called for
// each running Scinth in turn, and EndFrame submits. Returns the number of
// Scinths that actually rendered this frame (paused Scinths are skipped).
func (c *Compositor) RenderFrame(imageIndex int, clockTime, dt float64) (int, error) {
	ready, err := c.ctx.BeginFrame(dt)
	if err != nil {
		return 0, err
	}
	if !ready {
		return 0, nil
	}

	c.mu.Lock()
	order := make([]int, len(c.order))
	copy(order, c.order)
	var audioSample float32
	if c.audio != nil {
		audioSample = c.audio.Sample()
	}
	c.mu.Unlock()

	rendered := 0
	for _, nodeID := range order {
		c.mu.Lock()
		s := c.scinths[nodeID]
		c.mu.Unlock()
		if s == nil {
			continue
		}
		s.SetAudioSample(audioSample)
		running, err := s.PrepareFrame(imageIndex, clockTime, dt)
		if err != nil {
			if c.logger != nil {
				c.logger.Errorf("compositor: scinth %d prepareFrame: %v", nodeID, err)
			}
			continue
		}
		if running {
			rendered++
		}
	}

	if err := c.ctx.EndFrame(dt); err != nil {
		return rendered, err
	}
	return rendered, nil
}
