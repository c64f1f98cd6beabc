package scinth

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spaghettifunk/scinthd/engine/rendercontext"
	"github.com/spaghettifunk/scinthd/engine/sampler"
	"github.com/spaghettifunk/scinthd/engine/scinthdef"
	"github.com/spaghettifunk/scinthd/engine/shadercompiler"
	"github.com/spaghettifunk/scinthd/engine/shape"
	"github.com/spaghettifunk/scinthd/engine/vgen"
)

// fakeGlslc stands in for the real glslc binary: it copies the generated
// source to the requested output path so Def.Build's plumbing can be
// exercised without a Vulkan SDK installed.
func fakeGlslc(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake glslc script is a POSIX shell script")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-glslc.sh")
	script := "#!/bin/sh\nsrc=\"$2\"\nout=\"$4\"\ncp \"$src\" \"$out\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake glslc: %v", err)
	}
	return path
}

func simpleCompiled(t *testing.T) *scinthdef.Compiled {
	t.Helper()
	dc, err := vgen.New("DC", vgen.RatePixel|vgen.RateShape|vgen.RateFrame, false,
		[]string{"value"}, []string{"out"}, [][]int{{1}}, []int{1}, "@out = vec4(@value);")
	if err != nil {
		t.Fatalf("vgen.New: %v", err)
	}
	binding := vgen.Binding{Kind: vgen.BindingConstant, Constant: []float32{0.5}}
	inst, err := vgen.NewInstance(dc, vgen.RatePixel, []vgen.Binding{binding}, []int{4}, 0)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	abstract := &scinthdef.Abstract{
		Name:      "SimpleColor",
		Shape:     shape.NewQuad(1, 1),
		Instances: []*vgen.Instance{inst},
	}
	compiled, err := abstract.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return compiled
}

func TestDefBuildRealizesModulesBuffersAndPipeline(t *testing.T) {
	compiled := simpleCompiled(t)
	ctx := rendercontext.NewNoopContext()
	compiler := shadercompiler.New(fakeGlslc(t), nil)
	factory := sampler.NewFactory(ctx, nil)

	def, err := Build(compiled, shape.NewQuad(1, 1), compiler, ctx, factory)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if def.pipeline == nil {
		t.Fatal("expected a realized pipeline")
	}
	if def.vertexBuffer == nil || def.indexBuffer == nil {
		t.Fatal("expected realized vertex and index buffers")
	}
	if def.descriptorSetLayout == nil {
		t.Fatal("expected a realized descriptor set layout")
	}
	def.Destroy()
}

func TestDefBuildFailsAtomicallyOnShaderCompileError(t *testing.T) {
	compiled := simpleCompiled(t)
	ctx := rendercontext.NewNoopContext()

	dir := t.TempDir()
	path := filepath.Join(dir, "failing-glslc.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("writing failing glslc: %v", err)
	}
	compiler := shadercompiler.New(path, nil)
	factory := sampler.NewFactory(ctx, nil)

	if _, err := Build(compiled, shape.NewQuad(1, 1), compiler, ctx, factory); err == nil {
		t.Fatal("expected error when shader compilation fails")
	}
}
