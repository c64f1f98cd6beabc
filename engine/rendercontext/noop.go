package rendercontext

import (
	"github.com/spaghettifunk/scinthd/engine/sampler"
	"github.com/spaghettifunk/scinthd/engine/shadercompiler"
)

// noopShaderModule, noopImage, noopSampler are opaque placeholder handles
// the NoopContext hands back; they carry no GPU resources.
type noopShaderModule struct{ id int }
type noopImage struct {
	id            int
	width, height int
}
type noopSampler struct{ id int }
type noopBuffer struct {
	id    int
	usage BufferUsage
	data  []byte
}
type noopPipeline struct{ id int }
type noopDescriptorSetLayout struct {
	id       int
	bindings []DescriptorBindingKind
}

// NoopContext realizes every Context operation without touching a GPU. It
// exists for unit tests and for running the server with --offscreen in
// environments with no display or Vulkan driver — frames "render" to a
// solid zeroed buffer.
type NoopContext struct {
	nextID int
}

// NewNoopContext returns a Context backed by no real GPU resources.
func NewNoopContext() *NoopContext {
	return &NoopContext{}
}

func (n *NoopContext) id() int {
	n.nextID++
	return n.nextID
}

func (n *NoopContext) CreateSampler(sampler.Abstract) (sampler.GPUSampler, error) {
	return &noopSampler{id: n.id()}, nil
}

func (n *NoopContext) DestroySampler(sampler.GPUSampler) error { return nil }

func (n *NoopContext) CreateShaderModule(stage shadercompiler.Stage, spirv []byte) (ShaderModule, error) {
	return &noopShaderModule{id: n.id()}, nil
}

func (n *NoopContext) DestroyShaderModule(ShaderModule) error { return nil }

func (n *NoopContext) CreateBuffer(size int, usage BufferUsage, initial []byte) (Buffer, error) {
	data := make([]byte, size)
	copy(data, initial)
	return &noopBuffer{id: n.id(), usage: usage, data: data}, nil
}

func (n *NoopContext) WriteBuffer(buf Buffer, offset int, data []byte) error {
	nb, ok := buf.(*noopBuffer)
	if !ok {
		return nil
	}
	copy(nb.data[offset:], data)
	return nil
}

func (n *NoopContext) DestroyBuffer(Buffer) error { return nil }

func (n *NoopContext) CreatePipeline(desc PipelineDescriptor) (Pipeline, error) {
	return &noopPipeline{id: n.id()}, nil
}

func (n *NoopContext) DestroyPipeline(Pipeline) error { return nil }

func (n *NoopContext) CreateDescriptorSetLayout(desc DescriptorSetLayoutDescriptor) (DescriptorSetLayout, error) {
	return &noopDescriptorSetLayout{id: n.id(), bindings: desc.Bindings}, nil
}

func (n *NoopContext) DestroyDescriptorSetLayout(DescriptorSetLayout) error { return nil }

func (n *NoopContext) CreateRenderImage(width, height int) (Image, error) {
	return &noopImage{id: n.id(), width: width, height: height}, nil
}

func (n *NoopContext) DestroyImage(Image) error { return nil }

func (n *NoopContext) BeginFrame(deltaTime float64) (bool, error) { return true, nil }

func (n *NoopContext) EndFrame(deltaTime float64) error { return nil }

func (n *NoopContext) ReadbackImage(img Image) ([]byte, int, int, error) {
	ni, ok := img.(*noopImage)
	if !ok {
		return nil, 0, 0, nil
	}
	return make([]byte, ni.width*ni.height*4), ni.width, ni.height, nil
}
