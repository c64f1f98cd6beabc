// Package scinthdef implements AbstractScinthDef (component G), the
// compiler that walks a VGen instance graph and emits GLSL vertex,
// fragment, and (optionally) compute shader sources along with the
// vertex/uniform/compute manifests a render context needs to bind them.
package scinthdef

import (
	"github.com/spaghettifunk/scinthd/engine/manifest"
	"github.com/spaghettifunk/scinthd/engine/sampler"
)

// PolygonMode selects the rasterizer fill mode a ScinthDef's draw stage
// uses.
type PolygonMode int

const (
	PolygonFill PolygonMode = iota
	PolygonLine
	PolygonPoint
)

// RenderOptions holds per-ScinthDef rasterizer configuration.
type RenderOptions struct {
	PolygonMode PolygonMode
}

// Parameter is a named, float-valued control exposed to Scinth instances at
// runtime via push constants.
type Parameter struct {
	Name         string
	DefaultValue float32
}

// Compiled holds the outputs of compiling an AbstractScinthDef: ready-to-
// realize shader sources and the manifests describing their bound data.
type Compiled struct {
	Name             string
	Prefix           string
	RenderOptions    RenderOptions
	VertexShader     string
	FragmentShader   string
	ComputeShader    string
	HasComputeStage  bool

	VertexManifest   *manifest.Manifest
	FragmentManifest *manifest.Manifest
	UniformManifest  *manifest.Manifest
	ComputeManifest  *manifest.Manifest

	Parameters       []Parameter
	ParameterIndices map[string]int

	// DrawFixedImages/DrawParameterizedImages/ComputeFixedImages/
	// ComputeParameterizedImages map a sampler hash key to the image slot
	// index it is bound to, keeping fixed (constant-bound) and
	// parameterized (runtime-selectable) image samplers distinct so the
	// render context can allocate descriptor bindings for each.
	DrawFixedImages           map[ImageKey]int
	DrawParameterizedImages   map[ImageKey]int
	ComputeFixedImages        map[ImageKey]int
	ComputeParameterizedImages map[ImageKey]int

	// SamplerAbstracts maps each ImageKey.SamplerHash appearing in the four
	// image maps above back to the sampler configuration it was hashed
	// from, so a realizer can round-trip a key into something
	// component I's SamplerFactory can actually realize.
	SamplerAbstracts map[uint32]sampler.Abstract
}

// ImageKey identifies one (sampler configuration, image slot) pair.
type ImageKey struct {
	SamplerHash uint32
	ImageIndex  int
}

// DescriptorBindingCounts reports how many bindings of each kind the
// compiled draw stage needs, in the same order finalizeShaders emitted
// layout(binding = N) declarations: a uniform buffer (if any uniform
// element exists), one sampler per fixed image, one sampler per
// parameterized image, then a storage buffer (if any compute element
// exists). A realization builds its descriptor set layout by walking these
// counts in this order.
func (c *Compiled) DescriptorBindingCounts() (hasUniform bool, fixedSamplers, paramSamplers int, hasStorage bool) {
	return c.UniformManifest.NumberOfElements() > 0,
		len(c.DrawFixedImages),
		len(c.DrawParameterizedImages),
		c.ComputeManifest.NumberOfElements() > 0
}

// IndexForParameterName returns the index of the named parameter, or -1 if
// not found.
func (c *Compiled) IndexForParameterName(name string) int {
	if i, ok := c.ParameterIndices[name]; ok {
		return i
	}
	return -1
}
