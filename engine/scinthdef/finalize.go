package scinthdef

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spaghettifunk/scinthd/engine/intrinsic"
	"github.com/spaghettifunk/scinthd/engine/manifest"
)

func sortedImageKeys(m map[ImageKey]int) []ImageKey {
	out := make([]ImageKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SamplerHash != out[j].SamplerHash {
			return out[i].SamplerHash < out[j].SamplerHash
		}
		return out[i].ImageIndex < out[j].ImageIndex
	})
	return out
}

// finalizeShaders packs every manifest, then emits GLSL headers (vertex
// inputs, vertex-to-fragment varyings, uniform buffer, sampler bindings,
// compute storage buffer, parameter push constants) around the per-instance
// bodies buildDrawStage and buildComputeStage already accumulated.
func (c *compilation) finalizeShaders() error {
	c.compiled.FragmentManifest.Pack()
	c.compiled.UniformManifest.Pack()
	c.compiled.VertexManifest.Pack()
	c.compiled.ComputeManifest.Pack()

	prefix := c.compiled.Prefix
	const glslHeader = "#version 450\n#extension GL_ARB_separate_shader_objects : enable\n"

	var vertexHeader, fragmentHeader strings.Builder
	vertexHeader.WriteString(glslHeader)
	fragmentHeader.WriteString(glslHeader)

	vertexHeader.WriteString("\n// --- vertex shader inputs from vertex format\n")
	for i := 0; i < c.compiled.VertexManifest.NumberOfElements(); i++ {
		el := c.compiled.VertexManifest.ElementAt(i)
		fmt.Fprintf(&vertexHeader, "layout(location = %d) in %s %s_in_%s;\n", i, el.Type.GLSLName(), prefix, el.Name)
	}

	if c.compiled.FragmentManifest.NumberOfElements() > 0 {
		vertexHeader.WriteString("\n// -- vertex shader outputs to fragment shader\n")
		fragmentHeader.WriteString("\n// --- fragment shader inputs from vertex shader\n")

		var vertexCopy strings.Builder
		for i := 0; i < c.compiled.FragmentManifest.NumberOfElements(); i++ {
			el := c.compiled.FragmentManifest.ElementAt(i)
			if el.Intrinsic == intrinsic.Position && el.HasIntrinsic {
				continue
			}
			fmt.Fprintf(&fragmentHeader, "layout(location = %d) in %s %s_in_%s;\n", i, el.Type.GLSLName(), prefix, el.Name)
			fmt.Fprintf(&vertexHeader, "layout(location = %d) out %s %s_out_%s;\n", i, el.Type.GLSLName(), prefix, el.Name)

			switch {
			case el.HasIntrinsic && (el.Intrinsic == intrinsic.TexPos || el.Intrinsic == intrinsic.NormPos):
				fmt.Fprintf(&vertexCopy, "\n    // --- copy vertex format element to fragment shader\n    %s_out_%s = %s_in_%s;\n", prefix, el.Name, prefix, el.Name)
			case !el.HasIntrinsic:
				fmt.Fprintf(&vertexCopy, "\n    // --- export VGen output to fragment shader\n    %s_out_%s = %s;\n", prefix, el.Name, el.Name)
			}
		}
		c.compiled.VertexShader += vertexCopy.String()
	}

	binding := 0
	if c.compiled.UniformManifest.NumberOfElements() > 0 {
		uboBody := manifestBody(c.compiled.UniformManifest)
		fmt.Fprintf(&vertexHeader, "\n// -- vertex shader uniform buffer\nlayout(binding = %d) uniform UBO {\n%s} %s_ubo;\n", binding, uboBody, prefix)
		fmt.Fprintf(&fragmentHeader, "\n// --- fragment shader uniform buffer\nlayout(binding = %d) uniform UBO {\n%s} %s_ubo;\n", binding, uboBody, prefix)
		binding++
	}

	binding = writeSamplerBlock(&vertexHeader, &fragmentHeader, c.compiled.DrawFixedImages, prefix, "fixed", binding)
	binding = writeSamplerBlock(&vertexHeader, &fragmentHeader, c.compiled.DrawParameterizedImages, prefix, "param", binding)

	if c.compiled.ComputeManifest.NumberOfElements() > 0 {
		bufferBody := manifestBody(c.compiled.ComputeManifest)
		fmt.Fprintf(&vertexHeader, "\n// --- buffer for compute shader outputs\nlayout(binding = %d) buffer ComputeBuffer {\n%s} %s_compute_buffer;\n", binding, bufferBody, prefix)
		fmt.Fprintf(&fragmentHeader, "\n// --- buffer for compute shader outputs\nlayout(binding = %d) buffer ComputeBuffer {\n%s} %s_compute_buffer;\n", binding, bufferBody, prefix)
		binding++
	}

	if len(c.abstract.Parameters) > 0 {
		paramBody := parameterBody(c.abstract.Parameters)
		fmt.Fprintf(&vertexHeader, "\n// --- vertex shader parameter push constants\nlayout(push_constant) uniform parametersBlock {\n%s} %s_parameters;\n", paramBody, prefix)
		fmt.Fprintf(&fragmentHeader, "\n// --- fragment shader parameter push constants\nlayout(push_constant) uniform parametersBlock {\n%s} %s_parameters;\n", paramBody, prefix)
	}

	c.compiled.VertexShader += "\n    // --- hard-coded vertex position output.\n" + positionAssignment(prefix, c.abstract.Shape.ElementType())
	c.compiled.VertexShader = vertexHeader.String() + "\nvoid main() {" + c.compiled.VertexShader + "}\n"

	fragmentHeader.WriteString("\n// --- fragment output color\n")
	fmt.Fprintf(&fragmentHeader, "layout(location = 0) out vec4 %s;\n", c.fragmentOutputName)
	c.compiled.FragmentShader = fragmentHeader.String() + "\nvoid main() {" + c.compiled.FragmentShader + "}\n"

	if c.compiled.HasComputeStage {
		var computeHeader strings.Builder
		computeHeader.WriteString("#version 450\n")
		cbinding := 0
		if c.compiled.UniformManifest.NumberOfElements() > 0 {
			fmt.Fprintf(&computeHeader, "\n// -- compute shader uniform buffer\nlayout(binding = %d) uniform UBO {\n%s} %s_ubo;\n",
				cbinding, manifestBody(c.compiled.UniformManifest), prefix)
			cbinding++
		}
		cbinding = writeSingleSamplerBlock(&computeHeader, c.compiled.ComputeFixedImages, prefix, "fixed", cbinding)
		cbinding = writeSingleSamplerBlock(&computeHeader, c.compiled.ComputeParameterizedImages, prefix, "param", cbinding)

		var exportCopies strings.Builder
		for i := 0; i < c.compiled.ComputeManifest.NumberOfElements(); i++ {
			el := c.compiled.ComputeManifest.ElementAt(i)
			fmt.Fprintf(&exportCopies, "\n    // -- export compute VGen output to uniform buffer\n    %s_compute_buffer.%s = %s_%s;\n", prefix, el.Name, prefix, el.Name)
		}
		fmt.Fprintf(&computeHeader, "\n// --- buffer for compute shader outputs\nlayout(binding = %d) buffer ComputeBuffer {\n%s} %s_compute_buffer;\n",
			cbinding, manifestBody(c.compiled.ComputeManifest), prefix)
		cbinding++

		if len(c.abstract.Parameters) > 0 {
			fmt.Fprintf(&computeHeader, "\n// --- compute shader parameter push constants\nlayout(push_constant) uniform parametersBlock {\n%s} %s_parameters;\n",
				parameterBody(c.abstract.Parameters), prefix)
		}

		c.compiled.ComputeShader = computeHeader.String() + "\nvoid main() {" + c.compiled.ComputeShader + exportCopies.String() + "}\n"
	}

	return nil
}

func manifestBody(m *manifest.Manifest) string {
	var b strings.Builder
	for i := 0; i < m.NumberOfElements(); i++ {
		el := m.ElementAt(i)
		fmt.Fprintf(&b, "    %s %s;\n", el.Type.GLSLName(), el.Name)
	}
	return b.String()
}

func parameterBody(params []Parameter) string {
	var b strings.Builder
	for _, p := range params {
		fmt.Fprintf(&b, "  float %s;\n", p.Name)
	}
	return b.String()
}

func writeSamplerBlock(vertexHeader, fragmentHeader *strings.Builder, images map[ImageKey]int, prefix, kind string, binding int) int {
	keys := sortedImageKeys(images)
	if len(keys) == 0 {
		return binding
	}
	var body strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&body, "layout(binding = %d) uniform sampler2D %s_sampler_%08x_%s_%d;\n", binding, prefix, k.SamplerHash, kind, k.ImageIndex)
		binding++
	}
	fmt.Fprintf(vertexHeader, "\n// -- %s image sampler inputs\n%s", kind, body.String())
	fmt.Fprintf(fragmentHeader, "\n// --- %s image sampler inputs\n%s", kind, body.String())
	return binding
}

func writeSingleSamplerBlock(header *strings.Builder, images map[ImageKey]int, prefix, kind string, binding int) int {
	keys := sortedImageKeys(images)
	if len(keys) == 0 {
		return binding
	}
	fmt.Fprintf(header, "\n// -- %s image sampler inputs\n", kind)
	for _, k := range keys {
		fmt.Fprintf(header, "layout(binding = %d) uniform sampler2D %s_sampler_%08x_%s_%d;\n", binding, prefix, k.SamplerHash, kind, k.ImageIndex)
		binding++
	}
	return binding
}

func positionAssignment(prefix string, t manifest.ElementType) string {
	switch t {
	case manifest.Float:
		return fmt.Sprintf("    gl_Position = vec4(%s_in_position, 0.0f, 0.0f, 1.0f);\n", prefix)
	case manifest.Vec2:
		return fmt.Sprintf("    gl_Position = vec4(%s_in_position, 0.0f, 1.0f);\n", prefix)
	case manifest.Vec3:
		return fmt.Sprintf("    gl_Position = vec4(%s_in_position, 1.0f);\n", prefix)
	default:
		return fmt.Sprintf("    gl_Position = %s_in_position;\n", prefix)
	}
}
