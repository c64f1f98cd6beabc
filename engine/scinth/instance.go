package scinth

import (
	"fmt"
	stdmath "math"

	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/intrinsic"
	"github.com/spaghettifunk/scinthd/engine/rendercontext"
	"github.com/spaghettifunk/scinthd/engine/tween"
)

// Scinth is a running instance of a ScinthDef, bound to a node id and
// carrying its own parameter state and uniform buffers.
type Scinth struct {
	Def    *Def
	NodeID int

	ctx rendercontext.Context

	startTime float64 // clock-relative seconds at instantiation

	uniformBuffers []rendercontext.Buffer
	computeBuffers []rendercontext.Buffer
	parameters     []float32
	tweens         map[int]*tween.Tween

	// audioSample is the most recent value the Compositor read from the
	// audio sample bridge (component V) this frame; written into the
	// compute storage buffer's @tweenSampler intrinsic slot alongside the
	// uniform buffer's @time slot.
	audioSample float32

	commandBuffersDirty bool
	running             bool
}

// New instantiates a Scinth from def, allocating numSwapImages uniform
// buffers sized by def's uniform manifest and copying default parameter
// values into an internally owned vector. now is the creating clock's
// current elapsed seconds, used as this Scinth's Time-intrinsic origin.
func New(def *Def, nodeID int, numSwapImages int, ctx rendercontext.Context, now float64) (*Scinth, error) {
	s := &Scinth{
		Def:       def,
		NodeID:    nodeID,
		ctx:       ctx,
		startTime: now,
		tweens:    make(map[int]*tween.Tween),
		running:   true,
	}

	s.parameters = make([]float32, len(def.Compiled.Parameters))
	for i, p := range def.Compiled.Parameters {
		s.parameters[i] = p.DefaultValue
	}

	stride := def.Compiled.UniformManifest.Stride()
	s.uniformBuffers = make([]rendercontext.Buffer, numSwapImages)
	for i := 0; i < numSwapImages; i++ {
		buf, err := ctx.CreateBuffer(int(stride), rendercontext.BufferUsageUniform, nil)
		if err != nil {
			s.destroyUniformBuffers(i)
			return nil, core.NewError(core.KindGpuResource, err)
		}
		s.uniformBuffers[i] = buf
	}

	// The compute storage buffer only exists when this ScinthDef's template
	// graph actually references a compute-stage element (a frame-rate VGen
	// output read by another stage, or the audio bridge's @tweenSampler
	// intrinsic); most ScinthDefs
	// have zero-stride ComputeManifests and allocate nothing here.
	if computeStride := def.Compiled.ComputeManifest.Stride(); computeStride > 0 {
		s.computeBuffers = make([]rendercontext.Buffer, numSwapImages)
		for i := 0; i < numSwapImages; i++ {
			buf, err := ctx.CreateBuffer(int(computeStride), rendercontext.BufferUsageStorage, nil)
			if err != nil {
				s.destroyUniformBuffers(numSwapImages)
				s.destroyComputeBuffers(i)
				return nil, core.NewError(core.KindGpuResource, err)
			}
			s.computeBuffers[i] = buf
		}
	}

	s.commandBuffersDirty = true
	return s, nil
}

func (s *Scinth) destroyUniformBuffers(upTo int) {
	for i := 0; i < upTo; i++ {
		if s.uniformBuffers[i] != nil {
			_ = s.ctx.DestroyBuffer(s.uniformBuffers[i])
		}
	}
}

func (s *Scinth) destroyComputeBuffers(upTo int) {
	for i := 0; i < upTo; i++ {
		if s.computeBuffers[i] != nil {
			_ = s.ctx.DestroyBuffer(s.computeBuffers[i])
		}
	}
}

// Destroy releases every GPU resource this Scinth owns. The bound Def is not
// destroyed; it may be shared with other Scinth instances.
func (s *Scinth) Destroy() {
	s.destroyUniformBuffers(len(s.uniformBuffers))
	s.destroyComputeBuffers(len(s.computeBuffers))
}

// SetAudioSample stores v (the audio sample bridge's current value, read
// once per frame by the Compositor) for the next PrepareFrame to write
// into the compute storage buffer.
func (s *Scinth) SetAudioSample(v float32) {
	s.audioSample = v
}

// SetParameterByIndex writes value at index and marks the Scinth dirty so
// the next PrepareFrame picks it up. Any in-flight tween on that parameter
// is cancelled.
func (s *Scinth) SetParameterByIndex(index int, value float32) error {
	if index < 0 || index >= len(s.parameters) {
		return core.NewError(core.KindValidation, fmt.Errorf("scinth %d: parameter index %d out of range", s.NodeID, index))
	}
	s.parameters[index] = value
	delete(s.tweens, index)
	s.commandBuffersDirty = true
	return nil
}

// SetParameterByName resolves name against the bound Def and writes value.
func (s *Scinth) SetParameterByName(name string, value float32) error {
	index := s.Def.Compiled.IndexForParameterName(name)
	if index < 0 {
		return core.NewError(core.KindValidation, fmt.Errorf("scinth %d: unknown parameter %q", s.NodeID, name))
	}
	return s.SetParameterByIndex(index, value)
}

// SetParameterTween ramps the named parameter from its current value to
// target over duration seconds along curve, evaluated once per
// PrepareFrame. A zero or negative duration behaves like an immediate
// SetParameterByName.
func (s *Scinth) SetParameterTween(name string, target float32, duration float64, curve tween.Curve) error {
	index := s.Def.Compiled.IndexForParameterName(name)
	if index < 0 {
		return core.NewError(core.KindValidation, fmt.Errorf("scinth %d: unknown parameter %q", s.NodeID, name))
	}
	if duration <= 0 {
		return s.SetParameterByIndex(index, target)
	}
	s.tweens[index] = tween.New(curve, s.parameters[index], target, duration)
	return nil
}

// Run sets the play/pause flag. A paused Scinth is skipped by the
// Compositor but keeps its GPU resources and parameter state.
func (s *Scinth) Run(running bool) {
	s.running = running
}

// Running reports the current play/pause flag.
func (s *Scinth) Running() bool {
	return s.running
}

// ParameterValue returns the current host-side value of the parameter at
// index, reflecting any in-flight tween as of the last PrepareFrame.
func (s *Scinth) ParameterValue(index int) float32 {
	return s.parameters[index]
}

// PrepareFrame advances any in-flight tweens by dt, re-records command
// buffers if dirty, and copies the time intrinsic into the uniform buffer
// slot for imageIndex (parameter values are not written there). clockTime
// is the shared render
// clock's current elapsed seconds. Returns whether the Scinth is running
// (callers should skip emitting this Scinth's draw commands when false).
func (s *Scinth) PrepareFrame(imageIndex int, clockTime float64, dt float64) (bool, error) {
	if !s.running {
		return false, nil
	}

	for index, tw := range s.tweens {
		s.parameters[index] = tw.Advance(dt)
		if tw.Done() {
			delete(s.tweens, index)
		}
	}

	if s.commandBuffersDirty {
		s.recordCommandBuffers()
		s.commandBuffersDirty = false
	}

	if err := s.writeUniformSlot(imageIndex, clockTime); err != nil {
		return false, err
	}
	if err := s.writeComputeSlot(imageIndex); err != nil {
		return false, err
	}
	return true, nil
}

// recordCommandBuffers is a placeholder for the render-context-specific
// secondary command buffer recording the Compositor submits per swap image;
// actual recording is a rendercontext.Context responsibility out of this
// package's scope (see engine/rendercontext's package doc).
func (s *Scinth) recordCommandBuffers() {}

func (s *Scinth) writeUniformSlot(imageIndex int, clockTime float64) error {
	if imageIndex < 0 || imageIndex >= len(s.uniformBuffers) {
		return core.NewError(core.KindValidation, fmt.Errorf("scinth %d: image index %d out of range", s.NodeID, imageIndex))
	}

	um := s.Def.Compiled.UniformManifest
	data := make([]byte, um.Stride())
	for _, el := range um.Elements() {
		if !el.HasIntrinsic {
			continue
		}
		if el.Intrinsic == intrinsic.Time {
			writeFloat32(data, el.Offset, float32(clockTime-s.startTime))
		}
	}
	return s.ctx.WriteBuffer(s.uniformBuffers[imageIndex], 0, data)
}

// writeComputeSlot copies the audio sample bridge's current value into the
// compute storage buffer's @tweenSampler slot, for ScinthDefs whose
// template graph references it. A no-op for the common case of no compute
// buffer at all.
func (s *Scinth) writeComputeSlot(imageIndex int) error {
	if len(s.computeBuffers) == 0 {
		return nil
	}
	if imageIndex < 0 || imageIndex >= len(s.computeBuffers) {
		return core.NewError(core.KindValidation, fmt.Errorf("scinth %d: image index %d out of range", s.NodeID, imageIndex))
	}

	cm := s.Def.Compiled.ComputeManifest
	data := make([]byte, cm.Stride())
	for _, el := range cm.Elements() {
		if el.HasIntrinsic && el.Intrinsic == intrinsic.TweenSampler {
			writeFloat32(data, el.Offset, s.audioSample)
		}
	}
	return s.ctx.WriteBuffer(s.computeBuffers[imageIndex], 0, data)
}

func writeFloat32(data []byte, offset uint32, v float32) {
	bits := stdmath.Float32bits(v)
	data[offset+0] = byte(bits)
	data[offset+1] = byte(bits >> 8)
	data[offset+2] = byte(bits >> 16)
	data[offset+3] = byte(bits >> 24)
}
