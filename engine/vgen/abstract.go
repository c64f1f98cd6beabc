// Package vgen implements the AbstractVGen template (component B) and the
// VGen instance (component D): one node in a signal graph.
package vgen

import (
	"fmt"
	"regexp"

	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/intrinsic"
)

var placeholderRE = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_]*)`)

// placeholderKind discriminates what an @name placeholder resolves to.
type placeholderKind int

const (
	placeholderInput placeholderKind = iota
	placeholderOutput
	placeholderIntrinsic
)

type placeholder struct {
	kind      placeholderKind
	index     int // input or output index
	intrinsic intrinsic.Intrinsic
}

// Abstract is an immutable-after-validation template for a parameterizable
// shader fragment, suitable for composition in a VGen graph.
type Abstract struct {
	Name           string
	SupportedRates Rate
	IsSampler      bool
	Inputs         []string
	Outputs        []string
	// InputDimensions[j] gives the acceptable input-dimension tuple for
	// output j; len(InputDimensions) == len(OutputDimensions) == len(Outputs).
	InputDimensions  [][]int
	OutputDimensions []int
	Shader           string

	intrinsics   map[intrinsic.Intrinsic]bool
	placeholders map[string]placeholder
}

// New validates and constructs an Abstract VGen template.
func New(name string, supportedRates Rate, isSampler bool, inputs, outputs []string,
	inputDimensions [][]int, outputDimensions []int, shader string) (*Abstract, error) {

	a := &Abstract{
		Name:             name,
		SupportedRates:   supportedRates,
		IsSampler:        isSampler,
		Inputs:           inputs,
		Outputs:          outputs,
		InputDimensions:  inputDimensions,
		OutputDimensions: outputDimensions,
		Shader:           shader,
	}
	if err := a.validate(); err != nil {
		return nil, core.NewError(core.KindValidation, fmt.Errorf("vgen %q: %w", name, err))
	}
	return a, nil
}

func (a *Abstract) validate() error {
	if len(a.Outputs) == 0 {
		return fmt.Errorf("must declare at least one output")
	}
	if len(a.InputDimensions) != len(a.Outputs) {
		return fmt.Errorf("inputDimensions has %d entries, want one per output (%d)",
			len(a.InputDimensions), len(a.Outputs))
	}
	if len(a.OutputDimensions) != len(a.Outputs) {
		return fmt.Errorf("outputDimensions has %d entries, want one per output (%d)",
			len(a.OutputDimensions), len(a.Outputs))
	}
	for _, dims := range a.InputDimensions {
		if len(dims) != len(a.Inputs) {
			return fmt.Errorf("input dimension tuple has %d entries, want one per input (%d)",
				len(dims), len(a.Inputs))
		}
	}

	seen := make(map[string]bool, len(a.Inputs)+len(a.Outputs))
	for _, name := range a.Inputs {
		if intrinsic.IsReserved(name) {
			return fmt.Errorf("input %q collides with a reserved intrinsic name", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate input name %q", name)
		}
		seen[name] = true
	}
	for _, name := range a.Outputs {
		if intrinsic.IsReserved(name) {
			return fmt.Errorf("output %q collides with a reserved intrinsic name", name)
		}
		seen[name] = true
	}

	a.intrinsics = make(map[intrinsic.Intrinsic]bool)
	a.placeholders = make(map[string]placeholder)

	for _, m := range placeholderRE.FindAllStringSubmatch(a.Shader, -1) {
		name := m[1]
		if _, ok := a.placeholders[name]; ok {
			continue
		}
		if idx := indexOf(a.Inputs, name); idx >= 0 {
			a.placeholders[name] = placeholder{kind: placeholderInput, index: idx}
			continue
		}
		if idx := indexOf(a.Outputs, name); idx >= 0 {
			a.placeholders[name] = placeholder{kind: placeholderOutput, index: idx}
			continue
		}
		if intr := intrinsic.Named(name); intr != intrinsic.NotFound {
			a.placeholders[name] = placeholder{kind: placeholderIntrinsic, intrinsic: intr}
			a.intrinsics[intr] = true
			continue
		}
		return fmt.Errorf("@%s in shader template resolves to neither an input, output, nor known intrinsic", name)
	}

	return nil
}

// Intrinsics returns the set of intrinsics this template's shader references.
func (a *Abstract) Intrinsics() map[intrinsic.Intrinsic]bool {
	return a.intrinsics
}

// Parameterize substitutes every @name placeholder in the shader template
// and returns the resulting source fragment. inputs and outputs must align
// positionally with a.Inputs/a.Outputs; intrinsics maps each intrinsic this
// template references to its resolved textual reference.
func (a *Abstract) Parameterize(inputs []string, intrinsics map[intrinsic.Intrinsic]string, outputs []string) (string, error) {
	if len(inputs) != len(a.Inputs) {
		return "", fmt.Errorf("vgen %q: got %d input references, want %d", a.Name, len(inputs), len(a.Inputs))
	}
	if len(outputs) != len(a.Outputs) {
		return "", fmt.Errorf("vgen %q: got %d output references, want %d", a.Name, len(outputs), len(a.Outputs))
	}

	return placeholderRE.ReplaceAllStringFunc(a.Shader, func(tok string) string {
		name := tok[1:]
		p, ok := a.placeholders[name]
		if !ok {
			return tok
		}
		switch p.kind {
		case placeholderInput:
			return inputs[p.index]
		case placeholderOutput:
			return outputs[p.index]
		case placeholderIntrinsic:
			if v, ok := intrinsics[p.intrinsic]; ok {
				return v
			}
			return tok
		default:
			return tok
		}
	}), nil
}

func indexOf(haystack []string, needle string) int {
	for i, s := range haystack {
		if s == needle {
			return i
		}
	}
	return -1
}

// Registry is a lookup table of AbstractVGen templates by name.
type Registry struct {
	byName map[string]*Abstract
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Abstract)}
}

// Register adds v under v.Name, replacing any existing entry with that name
// (used by the YAML loader's reload path).
func (r *Registry) Register(v *Abstract) {
	r.byName[v.Name] = v
}

// Lookup returns the Abstract registered under name, and whether it exists.
func (r *Registry) Lookup(name string) (*Abstract, bool) {
	v, ok := r.byName[name]
	return v, ok
}

// Names returns every registered name in no particular order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	return names
}
