package vgen

import (
	"fmt"

	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/sampler"
)

// BindingKind discriminates a VGen input's binding variant.
type BindingKind int

const (
	BindingConstant BindingKind = iota
	BindingParameter
	BindingVGenOutput
)

// Binding is the tagged union of a VGen input's source: a literal constant,
// a reference to a named ScinthDef parameter, or a reference to an earlier
// instance's output.
type Binding struct {
	Kind BindingKind

	// BindingConstant: up to 4 components (scalar|vec2|vec3|vec4).
	Constant []float32

	// BindingParameter:
	ParamIndex int

	// BindingVGenOutput: must refer to an earlier position in the instance
	// list (topological).
	VGenIndex   int
	OutputIndex int
	Dimension   int
}

// ImageArgType distinguishes a sampler VGen's image-selection argument.
type ImageArgType int

const (
	ImageArgConstant ImageArgType = iota
	ImageArgParameter
)

// Instance is one node in a signal graph: a reference to an AbstractVGen, a
// chosen rate, per-input bindings, output dimensions, and (for sampler
// VGens) the image/sampler binding.
type Instance struct {
	Abstract *Abstract
	Rate     Rate
	Inputs   []Binding
	// OutputDims[j] is the output dimension instance-site chose for output
	// j, matching one of Abstract's allowed dimension tuples.
	OutputDims []int

	ImageIndex   int
	ImageArgType ImageArgType
	Sampler      sampler.Abstract
}

// NewInstance validates and constructs a VGen instance. index is this
// instance's position in the owning ScinthDef's instance list, used to
// enforce the topological-reference invariant on VGenOutput bindings.
func NewInstance(abstract *Abstract, rate Rate, inputs []Binding, outputDims []int, index int) (*Instance, error) {
	if !abstract.SupportedRates.Supports(rate) {
		return nil, core.NewError(core.KindValidation,
			fmt.Errorf("vgen %q: rate %v not in supported set", abstract.Name, rate))
	}
	if len(inputs) != len(abstract.Inputs) {
		return nil, core.NewError(core.KindValidation,
			fmt.Errorf("vgen %q: got %d input bindings, want %d", abstract.Name, len(inputs), len(abstract.Inputs)))
	}
	if len(outputDims) != len(abstract.Outputs) {
		return nil, core.NewError(core.KindValidation,
			fmt.Errorf("vgen %q: got %d output dimensions, want %d", abstract.Name, len(outputDims), len(abstract.Outputs)))
	}
	for _, b := range inputs {
		if b.Kind == BindingVGenOutput && b.VGenIndex >= index {
			return nil, core.NewError(core.KindValidation,
				fmt.Errorf("vgen %q: input references instance %d, which is not strictly earlier than %d",
					abstract.Name, b.VGenIndex, index))
		}
	}
	return &Instance{
		Abstract:   abstract,
		Rate:       rate,
		Inputs:     inputs,
		OutputDims: outputDims,
	}, nil
}

// OutputDimension returns the dimension of output o.
func (i *Instance) OutputDimension(o int) int {
	return i.OutputDims[o]
}
