// Package offscreen implements the Offscreen engine (component N): a
// headless render loop pipelined across numberOfImages image slots, one of
// which is always reserved for readback/encoding while the rest form the
// render ring. Grounded on original_source/src/vulkan/Offscreen.{hpp,cpp}'s
// create/start/pause/advanceFrame/renderFrame/stop contract.
package offscreen

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/scinthd/engine/compositor"
	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/encode"
	"github.com/spaghettifunk/scinthd/engine/rendercontext"
)

// SlotState names one image slot's position in the
// Idle -> Rendering -> ReadyForReadback -> Readback -> Encoding -> Idle
// pipeline.
type SlotState int

const (
	SlotIdle SlotState = iota
	SlotRendering
	SlotReadyForReadback
	SlotReadback
	SlotEncoding
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotRendering:
		return "rendering"
	case SlotReadyForReadback:
		return "readyForReadback"
	case SlotReadback:
		return "readback"
	case SlotEncoding:
		return "encoding"
	default:
		return "unknown"
	}
}

type slot struct {
	index int
	state SlotState
	image rendercontext.Image
}

// Engine drives compositor frames against a ring of render-target images,
// one of which is reserved for readback/encode at any moment, and fans
// completed readbacks out to every registered Encoder.
type Engine struct {
	ctx        rendercontext.Context
	compositor *compositor.Compositor
	logger     *core.Logger

	width, height int
	slots         []*slot

	encodersMu sync.Mutex
	encoders   []encode.Encoder

	renderMu   sync.Mutex
	renderCond *sync.Cond
	render     bool
	frameRate  int
	simTime    float64
	nextSlot   int

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup

	// BeforeTick, if set, runs at the start of every tick, before the
	// compositor renders a frame — the render thread's point to drain the
	// dispatcher's pending-command queue (component O's ApplyPending).
	BeforeTick func()
	// AfterTick, if set, runs at the end of every tick, after the frame's
	// readback has been fanned out to encoders — the render thread's point
	// to mark the frame timer (component M's MarkFrame).
	AfterTick func()
}

// New creates an Engine with numberOfImages image slots (must be >= 2: one
// render-ring slot plus one always-reserved readback slot at minimum).
func New(ctx rendercontext.Context, comp *compositor.Compositor, logger *core.Logger, width, height, numberOfImages int) (*Engine, error) {
	if numberOfImages < 2 {
		return nil, core.NewError(core.KindValidation, fmt.Errorf("offscreen: numberOfImages %d, want >= 2", numberOfImages))
	}

	e := &Engine{
		ctx:        ctx,
		compositor: comp,
		logger:     logger,
		width:      width,
		height:     height,
		stopCh:     make(chan struct{}),
	}
	e.renderCond = sync.NewCond(&e.renderMu)

	for i := 0; i < numberOfImages; i++ {
		img, err := ctx.CreateRenderImage(width, height)
		if err != nil {
			e.destroySlots(i)
			return nil, core.NewError(core.KindGpuResource, err)
		}
		e.slots = append(e.slots, &slot{index: i, state: SlotIdle, image: img})
	}
	return e, nil
}

func (e *Engine) destroySlots(upTo int) {
	for i := 0; i < upTo; i++ {
		_ = e.ctx.DestroyImage(e.slots[i].image)
	}
}

// AddEncoder registers an encoder to receive every subsequent readback.
func (e *Engine) AddEncoder(enc encode.Encoder) {
	e.encodersMu.Lock()
	defer e.encodersMu.Unlock()
	e.encoders = append(e.encoders, enc)
}

// RemoveEncoder unregisters enc, if present.
func (e *Engine) RemoveEncoder(enc encode.Encoder) {
	e.encodersMu.Lock()
	defer e.encodersMu.Unlock()
	for i, existing := range e.encoders {
		if existing == enc {
			e.encoders = append(e.encoders[:i], e.encoders[i+1:]...)
			return
		}
	}
}

// Start launches the render thread at frameRate frames per second. A
// frameRate of 0 means fully manual advance via RenderFrame; no background
// goroutine is started in that mode.
func (e *Engine) Start(frameRate int) {
	e.renderMu.Lock()
	e.frameRate = frameRate
	e.render = true
	e.renderMu.Unlock()

	if frameRate <= 0 {
		return
	}

	e.wg.Add(1)
	go e.runAtFrameRate(frameRate)
}

func (e *Engine) runAtFrameRate(frameRate int) {
	defer e.wg.Done()
	period := time.Second / time.Duration(frameRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.renderMu.Lock()
			for !e.render {
				e.renderCond.Wait()
				select {
				case <-e.stopCh:
					e.renderMu.Unlock()
					return
				default:
				}
			}
			e.renderMu.Unlock()

			if err := e.tick(period.Seconds()); err != nil && e.logger != nil {
				e.logger.Errorf("offscreen: tick: %v", err)
			}
		}
	}
}

// Pause stops the render thread from advancing frames until Start resumes
// it; while paused, AdvanceFrame renders single frames. Safe to call before
// or after Start.
func (e *Engine) Pause() {
	e.renderMu.Lock()
	e.render = false
	e.renderMu.Unlock()
}

// AdvanceFrame renders exactly one additional frame of a paused,
// nonzero-framerate Engine on the calling goroutine; the render thread
// stays paused.
func (e *Engine) AdvanceFrame() error {
	return e.tick(1.0 / float64(maxInt(e.frameRate, 1)))
}

// RenderFrame advances simulated time by dt and issues one render. Used
// when the Engine is running in fully manual mode (frameRate == 0).
func (e *Engine) RenderFrame(dt float64) error {
	if dt < 0 {
		return core.NewError(core.KindValidation, fmt.Errorf("offscreen: dt %v must be >= 0", dt))
	}
	return e.tick(dt)
}

// tick advances simulated time by dt, renders into the next available
// render-ring slot, and walks that slot through
// Rendering -> ReadyForReadback -> Readback -> Encoding -> Idle, fanning the
// readback out to every registered encoder.
func (e *Engine) tick(dt float64) error {
	if e.BeforeTick != nil {
		e.BeforeTick()
	}
	defer func() {
		if e.AfterTick != nil {
			e.AfterTick()
		}
	}()

	e.simTime += dt

	s := e.nextRenderSlot()
	s.state = SlotRendering

	rendered, err := e.compositor.RenderFrame(s.index, e.simTime, dt)
	if err != nil {
		s.state = SlotIdle
		return err
	}
	_ = rendered
	s.state = SlotReadyForReadback

	s.state = SlotReadback
	rgba, w, h, err := e.ctx.ReadbackImage(s.image)
	if err != nil {
		s.state = SlotIdle
		return err
	}

	s.state = SlotEncoding
	e.fanOut(rgba, w, h, e.simTime)
	s.state = SlotIdle
	return nil
}

// nextRenderSlot returns the image slot to render into this tick, rotating
// round-robin across every slot but the last — the render ring reserves one
// slot for readback/encoding, per 4.N's "depth numberOfImages, one image
// always reserved for readback" contract. len(e.slots) >= 2 is enforced at
// construction.
func (e *Engine) nextRenderSlot() *slot {
	s := e.slots[e.nextSlot]
	e.nextSlot = (e.nextSlot + 1) % (len(e.slots) - 1)
	return s
}

func (e *Engine) fanOut(rgba []byte, width, height int, timestamp float64) {
	e.encodersMu.Lock()
	encoders := make([]encode.Encoder, len(e.encoders))
	copy(encoders, e.encoders)
	e.encodersMu.Unlock()

	for _, enc := range encoders {
		if err := enc.Encode(rgba, width, height, timestamp); err != nil && e.logger != nil {
			e.logger.Errorf("offscreen: encoder failed: %v", err)
		}
	}
}

// Stop halts the render thread and blocks until it has exited.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		e.renderCond.Broadcast()
	})
	e.wg.Wait()
}

// Destroy releases every image slot's GPU resources. Call after Stop.
func (e *Engine) Destroy() {
	e.destroySlots(len(e.slots))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
