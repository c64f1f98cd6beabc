// Package scinth implements ScinthDef (component J), the realized GPU
// object built from a compiled AbstractScinthDef, and Scinth (component K),
// a running instance of one bound to a node id.
package scinth

import (
	"fmt"
	stdmath "math"

	"github.com/spaghettifunk/scinthd/engine/core"
	scinmath "github.com/spaghettifunk/scinthd/engine/math"
	"github.com/spaghettifunk/scinthd/engine/rendercontext"
	"github.com/spaghettifunk/scinthd/engine/sampler"
	"github.com/spaghettifunk/scinthd/engine/scinthdef"
	"github.com/spaghettifunk/scinthd/engine/shadercompiler"
	"github.com/spaghettifunk/scinthd/engine/shape"
)

// Def is a ScinthDef realized against a render context: compiled shader
// modules, a graphics pipeline, and the vertex/index buffers the bound
// Shape has populated.
type Def struct {
	Compiled *scinthdef.Compiled
	Shape    shape.Shape

	ctx     rendercontext.Context
	factory *sampler.Factory

	vertexModule        rendercontext.ShaderModule
	fragmentModule      rendercontext.ShaderModule
	computeModule       rendercontext.ShaderModule
	pipeline            rendercontext.Pipeline
	descriptorSetLayout rendercontext.DescriptorSetLayout

	vertexBuffer rendercontext.Buffer
	indexBuffer  rendercontext.Buffer

	// samplers holds the distinct sampler abstracts this Def acquired from
	// factory, one GetSampler call per distinct hash across the compiler's
	// four fixed/parameterized draw/compute image maps — shared samplers
	// used by more than one image slot in the same ScinthDef are only
	// acquired (and later released) once.
	samplers []sampler.Abstract
}

// Build compiles c's three shader sources through compiler, realizes shader
// modules and a graphics pipeline through ctx, materializes the vertex and
// index buffers by asking shape to populate them against c's vertex
// manifest, and acquires a realized sampler from factory (component I) for
// every distinct sampler configuration c's draw and compute stages
// reference. Fails atomically: on any subcomponent error, every resource
// already realized for this call — including acquired samplers — is torn
// back down before returning.
func Build(c *scinthdef.Compiled, s shape.Shape, compiler *shadercompiler.Compiler, ctx rendercontext.Context, factory *sampler.Factory) (*Def, error) {
	d := &Def{Compiled: c, Shape: s, ctx: ctx, factory: factory}

	if err := d.acquireSamplers(); err != nil {
		return nil, err
	}

	vertexSPIRV, err := compiler.Compile(shadercompiler.StageVertex, c.Name+"_vert", c.VertexShader)
	if err != nil {
		d.releaseSamplers()
		return nil, err
	}
	d.vertexModule, err = ctx.CreateShaderModule(shadercompiler.StageVertex, vertexSPIRV)
	if err != nil {
		d.teardown()
		return nil, core.NewError(core.KindGpuResource, fmt.Errorf("scinth: creating vertex shader module for %q: %w", c.Name, err))
	}

	fragmentSPIRV, err := compiler.Compile(shadercompiler.StageFragment, c.Name+"_frag", c.FragmentShader)
	if err != nil {
		d.teardown()
		return nil, err
	}
	d.fragmentModule, err = ctx.CreateShaderModule(shadercompiler.StageFragment, fragmentSPIRV)
	if err != nil {
		d.teardown()
		return nil, core.NewError(core.KindGpuResource, fmt.Errorf("scinth: creating fragment shader module for %q: %w", c.Name, err))
	}

	if c.HasComputeStage {
		computeSPIRV, err := compiler.Compile(shadercompiler.StageCompute, c.Name+"_comp", c.ComputeShader)
		if err != nil {
			d.teardown()
			return nil, err
		}
		d.computeModule, err = ctx.CreateShaderModule(shadercompiler.StageCompute, computeSPIRV)
		if err != nil {
			d.teardown()
			return nil, core.NewError(core.KindGpuResource, fmt.Errorf("scinth: creating compute shader module for %q: %w", c.Name, err))
		}
	}

	if err := d.buildBuffers(); err != nil {
		d.teardown()
		return nil, err
	}

	if err := d.buildDescriptorSetLayout(); err != nil {
		d.teardown()
		return nil, err
	}

	topology := rendercontext.TopologyTriangleStrip
	if s.Topology() == shape.TriangleList {
		topology = rendercontext.TopologyTriangleList
	}
	d.pipeline, err = ctx.CreatePipeline(rendercontext.PipelineDescriptor{
		VertexShader:   d.vertexModule,
		FragmentShader: d.fragmentModule,
		Topology:       topology,
		Wireframe:      c.RenderOptions.PolygonMode == scinthdef.PolygonLine,
		PointList:      c.RenderOptions.PolygonMode == scinthdef.PolygonPoint,
	})
	if err != nil {
		d.teardown()
		return nil, core.NewError(core.KindGpuResource, fmt.Errorf("scinth: creating pipeline for %q: %w", c.Name, err))
	}

	return d, nil
}

// acquireSamplers realizes (or shares, via factory's refcounted cache) one
// GPU sampler per distinct sampler hash referenced across the compiler's
// fixed/parameterized draw/compute image bindings. A ScinthDef with no
// sampler-backed VGens touches nothing here.
func (d *Def) acquireSamplers() error {
	if d.factory == nil {
		return nil
	}
	c := d.Compiled
	seen := make(map[uint32]bool)
	for _, m := range []map[scinthdef.ImageKey]int{
		c.DrawFixedImages, c.DrawParameterizedImages, c.ComputeFixedImages, c.ComputeParameterizedImages,
	} {
		for key := range m {
			if seen[key.SamplerHash] {
				continue
			}
			seen[key.SamplerHash] = true

			abstract, ok := c.SamplerAbstracts[key.SamplerHash]
			if !ok {
				return core.NewError(core.KindValidation,
					fmt.Errorf("scinth: %q: no sampler abstract recorded for hash %d", c.Name, key.SamplerHash))
			}
			if _, err := d.factory.GetSampler(abstract); err != nil {
				d.releaseSamplers()
				return err
			}
			d.samplers = append(d.samplers, abstract)
		}
	}
	return nil
}

// releaseSamplers gives back every sampler acquireSamplers acquired. Safe to
// call on a Def that never acquired any (a nil factory, or a ScinthDef with
// no sampler-backed VGens).
func (d *Def) releaseSamplers() {
	if d.factory == nil {
		return
	}
	for _, abstract := range d.samplers {
		_ = d.factory.ReleaseSampler(abstract)
	}
	d.samplers = nil
}

// buildDescriptorSetLayout constructs the descriptor set layout matching
// this ScinthDef's compiled binding order: a uniform buffer, its fixed and
// parameterized image samplers, then its compute storage buffer, mirroring
// scinthdef.Compiled.DescriptorBindingCounts exactly.
func (d *Def) buildDescriptorSetLayout() error {
	hasUniform, fixedSamplers, paramSamplers, hasStorage := d.Compiled.DescriptorBindingCounts()

	var bindings []rendercontext.DescriptorBindingKind
	if hasUniform {
		bindings = append(bindings, rendercontext.BindingUniformBuffer)
	}
	for i := 0; i < fixedSamplers; i++ {
		bindings = append(bindings, rendercontext.BindingSampler)
	}
	for i := 0; i < paramSamplers; i++ {
		bindings = append(bindings, rendercontext.BindingSampler)
	}
	if hasStorage {
		bindings = append(bindings, rendercontext.BindingStorageBuffer)
	}

	layout, err := d.ctx.CreateDescriptorSetLayout(rendercontext.DescriptorSetLayoutDescriptor{Bindings: bindings})
	if err != nil {
		return core.NewError(core.KindGpuResource, fmt.Errorf("scinth: creating descriptor set layout for %q: %w", d.Compiled.Name, err))
	}
	d.descriptorSetLayout = layout
	return nil
}

func (d *Def) buildBuffers() error {
	c := d.Compiled
	vertexFloats := c.VertexManifest.Stride() / 4 * d.Shape.NumberOfVertices()
	vertexData := make([]float32, vertexFloats)
	if err := d.Shape.StoreVertexData(c.VertexManifest, scinmath.Vec2{X: 1, Y: 1}, vertexData); err != nil {
		return err
	}

	indexData := make([]uint16, d.Shape.NumberOfIndices())
	if err := d.Shape.StoreIndexData(indexData); err != nil {
		return err
	}

	vertexBytes := float32SliceToBytes(vertexData)
	var err error
	d.vertexBuffer, err = d.ctx.CreateBuffer(len(vertexBytes), rendercontext.BufferUsageVertex, vertexBytes)
	if err != nil {
		return core.NewError(core.KindGpuResource, fmt.Errorf("scinth: creating vertex buffer for %q: %w", c.Name, err))
	}

	indexBytes := uint16SliceToBytes(indexData)
	d.indexBuffer, err = d.ctx.CreateBuffer(len(indexBytes), rendercontext.BufferUsageIndex, indexBytes)
	if err != nil {
		return core.NewError(core.KindGpuResource, fmt.Errorf("scinth: creating index buffer for %q: %w", c.Name, err))
	}
	return nil
}

// teardown releases every resource this Def has realized so far. Safe to
// call on a partially built Def; nil handles are skipped.
func (d *Def) teardown() {
	d.releaseSamplers()
	if d.pipeline != nil {
		_ = d.ctx.DestroyPipeline(d.pipeline)
	}
	if d.descriptorSetLayout != nil {
		_ = d.ctx.DestroyDescriptorSetLayout(d.descriptorSetLayout)
	}
	if d.vertexBuffer != nil {
		_ = d.ctx.DestroyBuffer(d.vertexBuffer)
	}
	if d.indexBuffer != nil {
		_ = d.ctx.DestroyBuffer(d.indexBuffer)
	}
	if d.vertexModule != nil {
		_ = d.ctx.DestroyShaderModule(d.vertexModule)
	}
	if d.fragmentModule != nil {
		_ = d.ctx.DestroyShaderModule(d.fragmentModule)
	}
	if d.computeModule != nil {
		_ = d.ctx.DestroyShaderModule(d.computeModule)
	}
}

// Destroy releases every GPU resource this Def owns.
func (d *Def) Destroy() {
	d.teardown()
}

func float32SliceToBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		bits := stdmath.Float32bits(f)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

func uint16SliceToBytes(v []uint16) []byte {
	out := make([]byte, len(v)*2)
	for i, u := range v {
		out[i*2+0] = byte(u)
		out[i*2+1] = byte(u >> 8)
	}
	return out
}
