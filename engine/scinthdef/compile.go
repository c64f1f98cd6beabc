package scinthdef

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/intrinsic"
	"github.com/spaghettifunk/scinthd/engine/manifest"
	"github.com/spaghettifunk/scinthd/engine/sampler"
	"github.com/spaghettifunk/scinthd/engine/shape"
	"github.com/spaghettifunk/scinthd/engine/vgen"
)

// Abstract is the uncompiled description of a ScinthDef: a named shape, a
// set of exposed parameters, and a topologically-ordered graph of VGen
// instances producing its vertex, fragment, and (optionally) compute shader
// stages.
type Abstract struct {
	Name          string
	Shape         shape.Shape
	RenderOptions RenderOptions
	Parameters    []Parameter
	Instances     []*vgen.Instance
}

// compilation holds the mutable state threaded through Build's passes. It
// exists so the pass methods read like the original compiler's member
// functions without smuggling dozens of return values between them.
type compilation struct {
	abstract *Abstract
	compiled *Compiled

	fragmentOutputName string

	computeVGens  map[int]bool
	vertexVGens   map[int]bool
	fragmentVGens map[int]bool
}

// Build compiles the instance graph into shader sources and manifests,
// mirroring AbstractScinthDef::build's four passes: group VGens by rate,
// emit the draw (vertex+fragment) stage, emit the compute stage, then
// finalize headers and pack manifests.
func (a *Abstract) Build() (*Compiled, error) {
	if len(a.Instances) == 0 {
		return nil, core.NewError(core.KindValidation, fmt.Errorf("scinthdef %q: no VGen instances", a.Name))
	}

	c := &compilation{
		abstract: a,
		compiled: &Compiled{
			Name:                       a.Name,
			RenderOptions:              a.RenderOptions,
			Parameters:                 a.Parameters,
			ParameterIndices:           make(map[string]int, len(a.Parameters)),
			VertexManifest:             manifest.New(),
			FragmentManifest:           manifest.New(),
			UniformManifest:            manifest.New(),
			ComputeManifest:            manifest.New(),
			DrawFixedImages:            make(map[ImageKey]int),
			DrawParameterizedImages:    make(map[ImageKey]int),
			ComputeFixedImages:         make(map[ImageKey]int),
			ComputeParameterizedImages: make(map[ImageKey]int),
			SamplerAbstracts:           make(map[uint32]sampler.Abstract),
		},
		computeVGens:  make(map[int]bool),
		vertexVGens:   make(map[int]bool),
		fragmentVGens: make(map[int]bool),
	}

	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")
	c.compiled.Prefix = fmt.Sprintf("%s_%s", a.Name, suffix)
	c.fragmentOutputName = c.compiled.Prefix + "_outColor"

	for i, p := range a.Parameters {
		c.compiled.ParameterIndices[p.Name] = i
	}

	if err := c.groupVGens(len(a.Instances)-1, vgen.RatePixel); err != nil {
		return nil, err
	}
	if err := c.buildDrawStage(); err != nil {
		return nil, err
	}
	if err := c.buildComputeStage(); err != nil {
		return nil, err
	}
	if err := c.finalizeShaders(); err != nil {
		return nil, err
	}
	return c.compiled, nil
}


// groupVGens buckets every instance into the compute/vertex/fragment stage
// matching its rate and validates the rate-monotonicity invariant: every
// input edge must reference an earlier instance whose rate is no higher
// than the referencing instance's own rate (Frame < Shape < Pixel must be
// non-decreasing walking from producer to consumer). Because instances are
// already in topological order by construction (NewInstance enforces
// VGenIndex < index), a single linear forward pass suffices — there is no
// need to re-descend the graph recursively from the final output.
func (c *compilation) groupVGens(rootIndex int, rootMaxRate vgen.Rate) error {
	for index, inst := range c.abstract.Instances {
		rate := inst.Rate

		switch rate {
		case vgen.RateFrame:
			c.computeVGens[index] = true
		case vgen.RateShape:
			c.vertexVGens[index] = true
		case vgen.RatePixel:
			c.fragmentVGens[index] = true
		default:
			return core.NewError(core.KindValidation,
				fmt.Errorf("scinthdef %q: invalid or absent rate on instance %d", c.abstract.Name, index))
		}

		if index == rootIndex && rate.Rank() > rootMaxRate.Rank() {
			return core.NewError(core.KindValidation,
				fmt.Errorf("scinthdef %q: root instance %d has rate %v above the permitted maximum %v", c.abstract.Name, index, rate, rootMaxRate))
		}

		if inst.Abstract.IsSampler {
			key := ImageKey{SamplerHash: inst.Sampler.Key(), ImageIndex: inst.ImageIndex}
			c.compiled.SamplerAbstracts[key.SamplerHash] = inst.Sampler
			switch inst.ImageArgType {
			case vgen.ImageArgConstant:
				if rate == vgen.RateFrame {
					c.compiled.ComputeFixedImages[key] = inst.ImageIndex
				} else {
					c.compiled.DrawFixedImages[key] = inst.ImageIndex
				}
			case vgen.ImageArgParameter:
				if rate == vgen.RateFrame {
					c.compiled.ComputeParameterizedImages[key] = inst.ImageIndex
				} else {
					c.compiled.DrawParameterizedImages[key] = inst.ImageIndex
				}
			default:
				return core.NewError(core.KindValidation,
					fmt.Errorf("scinthdef %q: instance %d has unknown sampler image argument type", c.abstract.Name, index))
			}
		}

		for _, b := range inst.Inputs {
			if b.Kind != vgen.BindingVGenOutput {
				continue
			}
			producerRate := c.abstract.Instances[b.VGenIndex].Rate
			if producerRate.Rank() > rate.Rank() {
				return core.NewError(core.KindValidation,
					fmt.Errorf("scinthdef %q: instance %d (rate %v) reads instance %d (rate %v), which exceeds its own rate",
						c.abstract.Name, index, rate, b.VGenIndex, producerRate))
			}
		}
	}
	return nil
}

func sortedIndices(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// resolveInputs turns one instance's input bindings into GLSL textual
// references, recording manifest entries as a side effect for bindings that
// cross a rate boundary (a shape-rate output consumed at pixel rate becomes
// a vertex-to-fragment varying; a frame-rate output consumed anywhere
// becomes a compute-buffer read).
func (c *compilation) resolveInputs(index int, inst *vgen.Instance, allowShapeRate bool) ([]string, error) {
	inputs := make([]string, 0, len(inst.Inputs))
	prefix := c.compiled.Prefix

	for _, b := range inst.Inputs {
		switch b.Kind {
		case vgen.BindingConstant:
			v := float32(0)
			if len(b.Constant) > 0 {
				v = b.Constant[0]
			}
			inputs = append(inputs, fmt.Sprintf("%gf", v))

		case vgen.BindingParameter:
			if b.ParamIndex < 0 || b.ParamIndex >= len(c.abstract.Parameters) {
				return nil, core.NewError(core.KindValidation,
					fmt.Errorf("scinthdef %q: instance %d references unknown parameter %d", c.abstract.Name, index, b.ParamIndex))
			}
			inputs = append(inputs, fmt.Sprintf("%s_parameters.%s", prefix, c.abstract.Parameters[b.ParamIndex].Name))

		case vgen.BindingVGenOutput:
			srcRate := c.abstract.Instances[b.VGenIndex].Rate
			switch srcRate {
			case vgen.RatePixel:
				inputs = append(inputs, fmt.Sprintf("%s_out_%d_%d", prefix, b.VGenIndex, b.OutputIndex))

			case vgen.RateShape:
				if !allowShapeRate {
					// Vertex stage reading a shape-rate source: same-stage local.
					inputs = append(inputs, fmt.Sprintf("%s_out_%d_%d", prefix, b.VGenIndex, b.OutputIndex))
					break
				}
				name := fmt.Sprintf("out_%d_%d", b.VGenIndex, b.OutputIndex)
				c.compiled.FragmentManifest.AddElement(name, manifest.ElementType(b.Dimension-1))
				inputs = append(inputs, fmt.Sprintf("%s_in_%s", prefix, name))

			case vgen.RateFrame:
				name := fmt.Sprintf("out_%d_%d", b.VGenIndex, b.OutputIndex)
				c.compiled.ComputeManifest.AddElement(name, manifest.ElementType(b.Dimension-1))
				inputs = append(inputs, fmt.Sprintf("%s_compute_buffer.%s", prefix, name))

			default:
				return nil, core.NewError(core.KindValidation,
					fmt.Errorf("scinthdef %q: unsupported source rate for instance %d input", c.abstract.Name, index))
			}

		default:
			return nil, core.NewError(core.KindValidation,
				fmt.Errorf("scinthdef %q: instance %d has unknown binding kind", c.abstract.Name, index))
		}
	}
	return inputs, nil
}

// resolveIntrinsics builds the intrinsic-name substitution table for one
// instance, registering the manifest entries and uniform-buffer members
// each referenced intrinsic requires. stage gates @fragCoord, which is
// accepted only in the pixel (fragment) stage.
func (c *compilation) resolveIntrinsics(index int, inst *vgen.Instance, stage stageKind) (map[intrinsic.Intrinsic]string, error) {
	prefix := c.compiled.Prefix
	out := make(map[intrinsic.Intrinsic]string)

	for intr := range inst.Abstract.Intrinsics() {
		switch intr {
		case intrinsic.FragCoord:
			if stage != stagePixel {
				return nil, core.NewError(core.KindValidation,
					fmt.Errorf("scinthdef %q: @fragCoord not supported in %v-rate instance %d", c.abstract.Name, stage, index))
			}
			out[intrinsic.FragCoord] = "gl_FragCoord"

		case intrinsic.NormPos:
			if stage == stagePixel {
				c.compiled.FragmentManifest.AddElementIntrinsic("normPos", manifest.Vec2, intrinsic.NormPos, true)
			}
			if stage != stageFrame {
				c.compiled.VertexManifest.AddElementIntrinsic("normPos", manifest.Vec2, intrinsic.NormPos, true)
			}
			out[intrinsic.NormPos] = prefix + "_in_normPos"

		case intrinsic.Pi:
			out[intrinsic.Pi] = "3.1415926535897932384626433832795f"

		case intrinsic.Sampler:
			arg := "param"
			if inst.ImageArgType == vgen.ImageArgConstant {
				arg = "fixed"
			}
			out[intrinsic.Sampler] = fmt.Sprintf("%s_sampler_%08x_%s_%d", prefix, inst.Sampler.Key(), arg, inst.ImageIndex)

		case intrinsic.Time:
			c.compiled.UniformManifest.AddElementIntrinsic("time", manifest.Float, intrinsic.Time, true)
			out[intrinsic.Time] = prefix + "_ubo.time"

		case intrinsic.TexPos:
			if stage == stagePixel {
				c.compiled.FragmentManifest.AddElementIntrinsic("texPos", manifest.Vec2, intrinsic.TexPos, true)
			}
			if stage != stageFrame {
				c.compiled.VertexManifest.AddElementIntrinsic("texPos", manifest.Vec2, intrinsic.TexPos, true)
			}
			out[intrinsic.TexPos] = prefix + "_in_texPos"

		case intrinsic.TweenSampler:
			if stage != stageFrame {
				return nil, core.NewError(core.KindValidation,
					fmt.Errorf("scinthdef %q: @tweenSampler only supported in frame-rate instance %d", c.abstract.Name, index))
			}
			c.compiled.ComputeManifest.AddElementIntrinsic("audioSample", manifest.Float, intrinsic.TweenSampler, true)
			out[intrinsic.TweenSampler] = prefix + "_compute_buffer.audioSample"

		case intrinsic.TweenDuration:
			c.compiled.UniformManifest.AddElementIntrinsic("tweenPhase", manifest.Float, intrinsic.TweenDuration, true)
			out[intrinsic.TweenDuration] = prefix + "_ubo.tweenPhase"

		case intrinsic.NotFound:
			return nil, core.NewError(core.KindValidation,
				fmt.Errorf("scinthdef %q: instance %d has unresolved intrinsic", c.abstract.Name, index))
		}
	}
	return out, nil
}

type stageKind int

const (
	stageFrame stageKind = iota
	stageShape
	stagePixel
)

func (s stageKind) String() string {
	switch s {
	case stageFrame:
		return "frame"
	case stageShape:
		return "shape"
	default:
		return "pixel"
	}
}

// buildDrawStage emits the fragment shader body (iterating fragmentVGens)
// followed by the vertex shader body (iterating vertexVGens), in ascending
// instance-index order within each stage.
func (c *compilation) buildDrawStage() error {
	prefix := c.compiled.Prefix
	var fragment strings.Builder

	for _, index := range sortedIndices(c.fragmentVGens) {
		inst := c.abstract.Instances[index]

		inputs, err := c.resolveInputs(index, inst, true)
		if err != nil {
			return err
		}
		intrinsics, err := c.resolveIntrinsics(index, inst, stagePixel)
		if err != nil {
			return err
		}

		outputs := make([]string, len(inst.Abstract.Outputs))
		for j := range outputs {
			if index < len(c.abstract.Instances)-1 || j > 0 {
				outputs[j] = fmt.Sprintf("%s_out_%d_%d", prefix, index, j)
			} else {
				outputs[j] = c.fragmentOutputName
			}
		}

		body, err := inst.Abstract.Parameterize(inputs, intrinsics, outputs)
		if err != nil {
			return core.NewError(core.KindShaderCompile, fmt.Errorf("scinthdef %q: %w", c.abstract.Name, err))
		}
		fmt.Fprintf(&fragment, "\n    // --- %s\n    %s\n", inst.Abstract.Name, body)
	}
	c.compiled.FragmentShader = fragment.String()

	c.compiled.VertexManifest.AddElementIntrinsic("position", manifestElementFor(c.abstract.Shape), intrinsic.Position, true)

	var vertex strings.Builder
	for _, index := range sortedIndices(c.vertexVGens) {
		inst := c.abstract.Instances[index]

		inputs, err := c.resolveInputs(index, inst, false)
		if err != nil {
			return err
		}
		intrinsics, err := c.resolveIntrinsics(index, inst, stageShape)
		if err != nil {
			return err
		}

		outputs := make([]string, len(inst.Abstract.Outputs))
		for j := range outputs {
			outputs[j] = fmt.Sprintf("%s_out_%d_%d", prefix, index, j)
		}

		body, err := inst.Abstract.Parameterize(inputs, intrinsics, outputs)
		if err != nil {
			return core.NewError(core.KindShaderCompile, fmt.Errorf("scinthdef %q: %w", c.abstract.Name, err))
		}
		fmt.Fprintf(&vertex, "\n    // --- %s\n    %s\n", inst.Abstract.Name, body)
	}
	c.compiled.VertexShader = vertex.String()
	return nil
}

func manifestElementFor(s shape.Shape) manifest.ElementType {
	return s.ElementType()
}

// buildComputeStage emits the compute shader body from frame-rate
// instances, if any. A ScinthDef with no frame-rate VGens has no compute
// stage at all.
func (c *compilation) buildComputeStage() error {
	c.compiled.HasComputeStage = len(c.computeVGens) > 0
	if !c.compiled.HasComputeStage {
		return nil
	}

	prefix := c.compiled.Prefix
	var compute strings.Builder

	for _, index := range sortedIndices(c.computeVGens) {
		inst := c.abstract.Instances[index]

		inputs := make([]string, 0, len(inst.Inputs))
		for _, b := range inst.Inputs {
			switch b.Kind {
			case vgen.BindingConstant:
				v := float32(0)
				if len(b.Constant) > 0 {
					v = b.Constant[0]
				}
				inputs = append(inputs, fmt.Sprintf("%gf", v))
			case vgen.BindingParameter:
				inputs = append(inputs, fmt.Sprintf("%s_parameters.%s", prefix, c.abstract.Parameters[b.ParamIndex].Name))
			case vgen.BindingVGenOutput:
				srcRate := c.abstract.Instances[b.VGenIndex].Rate
				if srcRate != vgen.RateFrame {
					return core.NewError(core.KindValidation,
						fmt.Errorf("scinthdef %q: frame-rate instance %d reads non frame-rate instance %d", c.abstract.Name, index, b.VGenIndex))
				}
				inputs = append(inputs, fmt.Sprintf("out_%d_%d", b.VGenIndex, b.OutputIndex))
			}
		}

		intrinsics, err := c.resolveIntrinsics(index, inst, stageFrame)
		if err != nil {
			return err
		}

		outputs := make([]string, len(inst.Abstract.Outputs))
		for j := range outputs {
			outputs[j] = fmt.Sprintf("%s_out_%d_%d", prefix, index, j)
		}

		body, err := inst.Abstract.Parameterize(inputs, intrinsics, outputs)
		if err != nil {
			return core.NewError(core.KindShaderCompile, fmt.Errorf("scinthdef %q: %w", c.abstract.Name, err))
		}
		fmt.Fprintf(&compute, "\n    // --- %s\n    %s\n", inst.Abstract.Name, body)
	}
	c.compiled.ComputeShader = compute.String()
	return nil
}
