// Package shadercompiler implements the ShaderCompiler (component H): it
// takes the GLSL source text emitted by the scinthdef compiler and turns it
// into SPIR-V bytecode a render context can load into a shader module.
package shadercompiler

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spaghettifunk/scinthd/engine/core"
)

// Stage names one shader stage's GLSL dialect, used to pick glslc's
// -fshader-stage flag.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

func (s Stage) glslcFlag() string {
	switch s {
	case StageVertex:
		return "vert"
	case StageFragment:
		return "frag"
	default:
		return "comp"
	}
}

func (s Stage) extension() string {
	switch s {
	case StageVertex:
		return "vert"
	case StageFragment:
		return "frag"
	default:
		return "comp"
	}
}

// Compiler invokes glslc (the Vulkan SDK's GLSL-to-SPIR-V compiler) as a
// subprocess to compile generated shader source text into SPIR-V bytecode.
// There is no glslang/shaderc Go binding in the ecosystem this project
// draws from; shelling out to the same glslc binary the build tooling
// already depends on is the idiom this codebase uses elsewhere for shader
// compilation.
type Compiler struct {
	glslcPath string
	logger    *core.Logger
}

// New returns a Compiler that invokes the glslc binary at path. If path is
// empty, "glslc" is resolved from $PATH.
func New(path string, logger *core.Logger) *Compiler {
	if path == "" {
		path = "glslc"
	}
	return &Compiler{glslcPath: path, logger: logger}
}

// Compile writes source to a temp file with the extension glslc expects for
// stage, invokes glslc against it, and returns the resulting SPIR-V bytes.
func (c *Compiler) Compile(stage Stage, name, source string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "scinthd-shader-*")
	if err != nil {
		return nil, core.NewError(core.KindRuntime, fmt.Errorf("shadercompiler: creating temp dir: %w", err))
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, fmt.Sprintf("%s.%s.glsl", name, stage.extension()))
	outPath := filepath.Join(dir, fmt.Sprintf("%s.%s.spv", name, stage.extension()))

	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		return nil, core.NewError(core.KindRuntime, fmt.Errorf("shadercompiler: writing source: %w", err))
	}

	args := []string{"-fshader-stage=" + stage.glslcFlag(), srcPath, "-o", outPath}
	cmd := exec.Command(c.glslcPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if c.logger != nil {
			c.logger.Errorf("shadercompiler: glslc failed for %s: %s", name, stderr.String())
		}
		return nil, core.NewError(core.KindShaderCompile,
			fmt.Errorf("shadercompiler: glslc failed for %s: %w: %s", name, err, stderr.String()))
	}

	spirv, err := os.ReadFile(outPath)
	if err != nil {
		return nil, core.NewError(core.KindRuntime, fmt.Errorf("shadercompiler: reading SPIR-V output: %w", err))
	}
	return spirv, nil
}
