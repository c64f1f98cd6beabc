// Package loader implements the YAML loader (component R): decoding
// AbstractVGen and AbstractScinthDef documents off disk into the engine's
// in-memory types, and watching the configured directories for changes.
// Grounded on spec.md §6's schema and cross-checked against
// original_source/src/core/ScinthDefParser.cpp, with the `parameter` input
// type and ScinthDef-level `parameters` key added where the distilled spec
// extends the original format.
package loader

import (
	"fmt"

	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/scinthdef"
	"github.com/spaghettifunk/scinthd/engine/shape"
	"github.com/spaghettifunk/scinthd/engine/vgen"
	"gopkg.in/yaml.v3"
)

// vgenYAML is the on-disk shape of one AbstractVGen document.
type vgenYAML struct {
	Name             string     `yaml:"name"`
	Fragment         string     `yaml:"fragment"`
	Inputs           []string   `yaml:"inputs"`
	Outputs          []string   `yaml:"outputs"`
	Parameters       []string   `yaml:"parameters"`
	Intermediates    []string   `yaml:"intermediates"`
	Rates            []string   `yaml:"rates"`
	IsSampler        bool       `yaml:"isSampler"`
	InputDimensions  [][]int    `yaml:"inputDimensions"`
	OutputDimensions []int      `yaml:"outputDimensions"`
}

// ParseVGen decodes one AbstractVGen YAML document. The `parameters` and
// `intermediates` keys are accepted for format compatibility but not
// otherwise interpreted: the engine's vgen.Abstract template, unlike
// original_source's AbstractVGen, carries only Inputs/Outputs, so a
// template's bindable surface is exactly its `inputs` list. Recorded as a
// simplification in DESIGN.md.
func ParseVGen(data []byte) (*vgen.Abstract, error) {
	var doc vgenYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, core.NewError(core.KindParse, fmt.Errorf("vgen yaml: %w", err))
	}
	if doc.Name == "" {
		return nil, core.NewError(core.KindParse, fmt.Errorf("vgen yaml: missing name"))
	}
	if doc.Fragment == "" {
		return nil, core.NewError(core.KindParse, fmt.Errorf("vgen yaml %q: missing fragment", doc.Name))
	}

	inputs := doc.Inputs

	rates := vgen.RateNone
	if len(doc.Rates) == 0 {
		rates = vgen.RateFrame | vgen.RateShape | vgen.RatePixel
	} else {
		for _, r := range doc.Rates {
			named := vgen.RateNamed(r)
			if named == vgen.RateNone {
				return nil, core.NewError(core.KindParse, fmt.Errorf("vgen yaml %q: unknown rate %q", doc.Name, r))
			}
			rates |= named
		}
	}

	outputDims := doc.OutputDimensions
	if outputDims == nil {
		outputDims = make([]int, len(doc.Outputs))
		for i := range outputDims {
			outputDims[i] = 1
		}
	}
	inputDims := doc.InputDimensions
	if inputDims == nil {
		inputDims = make([][]int, len(doc.Outputs))
		for i := range inputDims {
			tuple := make([]int, len(inputs))
			for j := range tuple {
				tuple[j] = 1
			}
			inputDims[i] = tuple
		}
	}

	return vgen.New(doc.Name, rates, doc.IsSampler, inputs, doc.Outputs, inputDims, outputDims, doc.Fragment)
}

// inputYAML is one VGen instance's input binding.
type inputYAML struct {
	Type string `yaml:"type"`

	// type: constant
	Value  *float32  `yaml:"value"`
	Values []float32 `yaml:"values"`

	// type: parameter
	Name string `yaml:"name"`

	// type: vgen
	VGenIndex   int `yaml:"vgenIndex"`
	OutputIndex int `yaml:"outputIndex"`
}

// vgenRefYAML is one vgens[] entry in a ScinthDef document.
type vgenRefYAML struct {
	ClassName string      `yaml:"className"`
	Rate      string      `yaml:"rate"`
	Inputs    []inputYAML `yaml:"inputs"`
}

// parameterYAML declares one exposed, runtime-settable control.
type parameterYAML struct {
	Name    string  `yaml:"name"`
	Default float32 `yaml:"default"`
}

// scinthDefYAML is the on-disk shape of one ScinthDef document.
type scinthDefYAML struct {
	Name       string          `yaml:"name"`
	Parameters []parameterYAML `yaml:"parameters"`
	VGens      []vgenRefYAML   `yaml:"vgens"`
}

// ParseScinthDef decodes one ScinthDef YAML document, resolving each vgens[]
// entry's className against registry. Every compiled ScinthDef renders onto
// a single full-screen quad (original_source's ScintillatorSynth draws
// every ScinthDef over a quad primitive; no YAML key selects another
// shape), recorded as an open-question resolution in DESIGN.md.
func ParseScinthDef(data []byte, registry *vgen.Registry) (*scinthdef.Abstract, error) {
	var doc scinthDefYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, core.NewError(core.KindParse, fmt.Errorf("scinthdef yaml: %w", err))
	}
	if doc.Name == "" {
		return nil, core.NewError(core.KindParse, fmt.Errorf("scinthdef yaml: missing name"))
	}
	if len(doc.VGens) == 0 {
		return nil, core.NewError(core.KindValidation, fmt.Errorf("scinthdef %q: empty graph", doc.Name))
	}

	params := make([]scinthdef.Parameter, len(doc.Parameters))
	paramIndex := make(map[string]int, len(doc.Parameters))
	for i, p := range doc.Parameters {
		if p.Name == "" {
			return nil, core.NewError(core.KindParse, fmt.Errorf("scinthdef %q: parameter %d missing name", doc.Name, i))
		}
		params[i] = scinthdef.Parameter{Name: p.Name, DefaultValue: p.Default}
		paramIndex[p.Name] = i
	}

	instances := make([]*vgen.Instance, len(doc.VGens))
	for i, ref := range doc.VGens {
		if ref.ClassName == "" {
			return nil, core.NewError(core.KindParse, fmt.Errorf("scinthdef %q: vgen %d missing className", doc.Name, i))
		}
		abstract, ok := registry.Lookup(ref.ClassName)
		if !ok {
			return nil, core.NewError(core.KindValidation, fmt.Errorf("scinthdef %q: vgen class %q not registered", doc.Name, ref.ClassName))
		}
		rate := vgen.RateNamed(ref.Rate)
		if rate == vgen.RateNone {
			return nil, core.NewError(core.KindParse, fmt.Errorf("scinthdef %q: vgen %d: unknown rate %q", doc.Name, i, ref.Rate))
		}

		bindings := make([]vgen.Binding, len(ref.Inputs))
		for j, in := range ref.Inputs {
			b, err := resolveBinding(doc.Name, ref.ClassName, i, j, in, paramIndex)
			if err != nil {
				return nil, err
			}
			bindings[j] = b
		}

		outputDims := make([]int, len(abstract.Outputs))
		for k := range outputDims {
			outputDims[k] = abstract.OutputDimensions[k]
		}

		inst, err := vgen.NewInstance(abstract, rate, bindings, outputDims, i)
		if err != nil {
			return nil, err
		}
		instances[i] = inst
	}

	return &scinthdef.Abstract{
		Name:       doc.Name,
		Shape:      shape.NewQuad(1, 1),
		Parameters: params,
		Instances:  instances,
	}, nil
}

func resolveBinding(defName, className string, vgenIdx, inputIdx int, in inputYAML, paramIndex map[string]int) (vgen.Binding, error) {
	switch in.Type {
	case "constant":
		var values []float32
		switch {
		case in.Values != nil:
			values = in.Values
		case in.Value != nil:
			values = []float32{*in.Value}
		default:
			return vgen.Binding{}, core.NewError(core.KindParse,
				fmt.Errorf("scinthdef %q: vgen %d (%s) input %d: constant missing value", defName, vgenIdx, className, inputIdx))
		}
		return vgen.Binding{Kind: vgen.BindingConstant, Constant: values}, nil

	case "parameter":
		idx, ok := paramIndex[in.Name]
		if !ok {
			return vgen.Binding{}, core.NewError(core.KindValidation,
				fmt.Errorf("scinthdef %q: vgen %d (%s) input %d: unknown parameter %q", defName, vgenIdx, className, inputIdx, in.Name))
		}
		return vgen.Binding{Kind: vgen.BindingParameter, ParamIndex: idx}, nil

	case "vgen":
		return vgen.Binding{Kind: vgen.BindingVGenOutput, VGenIndex: in.VGenIndex, OutputIndex: in.OutputIndex}, nil

	default:
		return vgen.Binding{}, core.NewError(core.KindParse,
			fmt.Errorf("scinthdef %q: vgen %d (%s) input %d: unknown input type %q", defName, vgenIdx, className, inputIdx, in.Type))
	}
}
