// Package rendercontext defines the thin seam (component T) between the
// domain layer (ScinthDef compiler, SamplerFactory, Compositor, Offscreen
// engine) and whatever GPU driver or windowing library actually realizes
// GPU resources. Its internals are intentionally out of core scope: this
// package exists only to give those components something concrete to call
// against. The only realization in this module is the no-op one
// (NoopContext), for tests and headless development; there is no
// Vulkan-backed realization here.
package rendercontext

import (
	"github.com/spaghettifunk/scinthd/engine/sampler"
	"github.com/spaghettifunk/scinthd/engine/shadercompiler"
)

// ShaderModule is an opaque handle to a realized GPU shader module.
type ShaderModule interface{}

// Image is an opaque handle to a realized GPU image (render target,
// readback target, or sampled texture).
type Image interface{}

// Pipeline is an opaque handle to a realized GPU graphics or compute
// pipeline.
type Pipeline interface{}

// Buffer is an opaque handle to a realized GPU buffer (vertex, index, or
// uniform).
type Buffer interface{}

// BufferUsage classifies what a Buffer is bound for, so a realization can
// pick the right memory type and usage flags.
type BufferUsage int

const (
	BufferUsageVertex BufferUsage = iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
)

// DescriptorSetLayout is an opaque handle to a realized GPU descriptor set
// layout, matching one ScinthDef's compiled binding order.
type DescriptorSetLayout interface{}

// DescriptorBindingKind names what a descriptor set layout binding slot
// holds, in compiled-shader declaration order.
type DescriptorBindingKind int

const (
	BindingUniformBuffer DescriptorBindingKind = iota
	BindingSampler
	BindingStorageBuffer
)

// DescriptorSetLayoutDescriptor lists a ScinthDef's descriptor bindings in
// the same binding-index order the compiler emitted layout(binding = N)
// declarations for (see scinthdef.Compiled.DescriptorBindingCounts).
type DescriptorSetLayoutDescriptor struct {
	Bindings []DescriptorBindingKind
}

// Topology mirrors shape.Topology without importing the shape package,
// keeping this package's dependency surface limited to sampler and
// shadercompiler.
type Topology int

const (
	TopologyTriangleStrip Topology = iota
	TopologyTriangleList
)

// PipelineDescriptor names everything a graphics pipeline realization needs
// beyond the shader modules themselves.
type PipelineDescriptor struct {
	VertexShader   ShaderModule
	FragmentShader ShaderModule
	Topology       Topology
	Wireframe      bool
	PointList      bool
}

// Context is the capability surface the domain layer needs from a GPU
// backend: shader module and sampler creation (satisfying
// sampler.Realizer), buffer and pipeline creation for ScinthDef
// realization, image allocation for the Offscreen engine's pipelined
// readback, and per-frame submission.
type Context interface {
	sampler.Realizer

	// CreateShaderModule loads compiled SPIR-V bytecode for the given
	// stage into a GPU shader module.
	CreateShaderModule(stage shadercompiler.Stage, spirv []byte) (ShaderModule, error)
	DestroyShaderModule(ShaderModule) error

	// CreateBuffer allocates a GPU buffer of size bytes for the given
	// usage and uploads initial, optionally empty, contents.
	CreateBuffer(size int, usage BufferUsage, initial []byte) (Buffer, error)
	WriteBuffer(buf Buffer, offset int, data []byte) error
	DestroyBuffer(Buffer) error

	// CreatePipeline builds a graphics pipeline bound to the given shader
	// modules and rasterizer configuration.
	CreatePipeline(desc PipelineDescriptor) (Pipeline, error)
	DestroyPipeline(Pipeline) error

	// CreateDescriptorSetLayout builds the descriptor set layout a
	// ScinthDef's uniform buffer, image samplers, and compute storage
	// buffer bind against.
	CreateDescriptorSetLayout(desc DescriptorSetLayoutDescriptor) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(DescriptorSetLayout) error

	// CreateRenderImage allocates a width x height RGBA render target.
	CreateRenderImage(width, height int) (Image, error)
	DestroyImage(Image) error

	// BeginFrame and EndFrame bracket one frame's GPU submission.
	// BeginFrame returns false when the swapchain (if any) is not ready to
	// accept a frame this call (e.g. mid-resize); callers should skip the
	// frame and retry on the next tick.
	BeginFrame(deltaTime float64) (bool, error)
	EndFrame(deltaTime float64) error

	// ReadbackImage copies img's current contents back to host memory as
	// tightly packed RGBA8 rows.
	ReadbackImage(img Image) (rgba []byte, width, height int, err error)
}
