package dispatcher

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spaghettifunk/scinthd/engine/compositor"
	"github.com/spaghettifunk/scinthd/engine/frametimer"
	"github.com/spaghettifunk/scinthd/engine/loader"
	"github.com/spaghettifunk/scinthd/engine/rendercontext"
	"github.com/spaghettifunk/scinthd/engine/sampler"
	"github.com/spaghettifunk/scinthd/engine/shadercompiler"
	"github.com/spaghettifunk/scinthd/engine/vgen"
)

// fakeGlslc stands in for the real glslc binary, duplicated from the
// scinth package's test helper since it isn't exported across packages.
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

const dcVGenYAML = `
name: DC
fragment: "@out = vec4(@value);"
inputs: [value]
outputs: [out]
rates: [frame, shape, pixel]
`

const simpleColorDefYAML = `
name: SimpleColor
parameters:
  - name: brightness
    default: 0.5
vgens:
  - className: DC
    rate: pixel
    inputs:
      - type: parameter
        name: brightness
`

func newTestDispatcher(t *testing.T) (*Dispatcher, *compositor.Compositor) {
	t.Helper()
	registry := vgen.NewRegistry()
	ctx := rendercontext.NewNoopContext()
	comp := compositor.New(ctx, nil)
	ft := frametimer.New(true, nil)
	ft.Start()
	compiler := shadercompiler.New(fakeGlslc(t), nil)
	factory := sampler.NewFactory(ctx, nil)

	d := New(nil, "test-version", registry, ctx, compiler, factory, 2, comp, ft, func() float64 { return 0 }, nil)
	return d, comp
}

// mustDCAbstract parses the DC vgen template via the YAML loader (component
// R), the same path a real server uses at startup; tests register it
// directly against the Dispatcher's vgen.Registry since component O's
// command table has no "register a VGen" control message — that's the
// loader's job, not the wire protocol's.
func mustDCAbstract(t *testing.T) *vgen.Abstract {
	t.Helper()
	a, err := loader.ParseVGen([]byte(dcVGenYAML))
	if err != nil {
		t.Fatalf("ParseVGen: %v", err)
	}
	return a
}

func TestStatusReportsCompositorAndFrameTimerState(t *testing.T) {
	d, _ := newTestDispatcher(t)
	reply, err := d.Handle(Command{Kind: KindStatus})
	if err != nil {
		t.Fatalf("Handle(Status): %v", err)
	}
	if reply == nil || reply.Kind != ReplyStatus {
		t.Fatalf("expected a status reply, got %+v", reply)
	}
	if reply.ScinthCount != 0 {
		t.Fatalf("ScinthCount = %d, want 0", reply.ScinthCount)
	}
}

func TestVersionReportsConfiguredVersion(t *testing.T) {
	d, _ := newTestDispatcher(t)
	reply, err := d.Handle(Command{Kind: KindVersion})
	if err != nil {
		t.Fatalf("Handle(Version): %v", err)
	}
	if reply == nil || reply.Version != "test-version" {
		t.Fatalf("reply = %+v, want version test-version", reply)
	}
}

func TestScinthDefLoadThenScinthNewAddsToCompositorAfterApplyPending(t *testing.T) {
	d, comp := newTestDispatcher(t)
	d.registry.Register(mustDCAbstract(t))

	if _, err := d.Handle(Command{Kind: KindScinthDefReceive, YAML: []byte(simpleColorDefYAML)}); err != nil {
		t.Fatalf("Handle(ScinthDefReceive): %v", err)
	}

	if _, err := d.Handle(Command{Kind: KindScinthNew, DefName: "SimpleColor", NodeID: 1}); err != nil {
		t.Fatalf("Handle(ScinthNew): %v", err)
	}

	if comp.Count() != 0 {
		t.Fatal("expected ScinthNew to not touch the compositor before ApplyPending")
	}
	d.ApplyPending()
	if comp.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 after ApplyPending", comp.Count())
	}
}

func TestScinthNewUnknownDefNameReturnsError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	if _, err := d.Handle(Command{Kind: KindScinthNew, DefName: "Nope", NodeID: 1}); err == nil {
		t.Fatal("expected error for unregistered ScinthDef name")
	}
}

func TestScinthFreeRemovesAfterApplyPending(t *testing.T) {
	d, comp := newTestDispatcher(t)
	d.registry.Register(mustDCAbstract(t))
	if _, err := d.Handle(Command{Kind: KindScinthDefReceive, YAML: []byte(simpleColorDefYAML)}); err != nil {
		t.Fatalf("Handle(ScinthDefReceive): %v", err)
	}
	if _, err := d.Handle(Command{Kind: KindScinthNew, DefName: "SimpleColor", NodeID: 7}); err != nil {
		t.Fatalf("Handle(ScinthNew): %v", err)
	}
	d.ApplyPending()
	if comp.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", comp.Count())
	}

	if _, err := d.Handle(Command{Kind: KindScinthFree, NodeID: 7}); err != nil {
		t.Fatalf("Handle(ScinthFree): %v", err)
	}
	d.ApplyPending()
	if comp.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 after ScinthFree", comp.Count())
	}
}

func TestScinthSetUpdatesRegisteredScinthParameter(t *testing.T) {
	d, comp := newTestDispatcher(t)
	d.registry.Register(mustDCAbstract(t))
	if _, err := d.Handle(Command{Kind: KindScinthDefReceive, YAML: []byte(simpleColorDefYAML)}); err != nil {
		t.Fatalf("Handle(ScinthDefReceive): %v", err)
	}
	if _, err := d.Handle(Command{Kind: KindScinthNew, DefName: "SimpleColor", NodeID: 3}); err != nil {
		t.Fatalf("Handle(ScinthNew): %v", err)
	}
	d.ApplyPending()

	if _, err := d.Handle(Command{
		Kind:   KindScinthSet,
		NodeID: 3,
		Params: map[string]ParamValue{"brightness": {Value: 0.9}},
	}); err != nil {
		t.Fatalf("Handle(ScinthSet): %v", err)
	}
	d.ApplyPending()

	s := comp.Get(3)
	if s == nil {
		t.Fatal("expected scinth 3 to exist")
	}
	if v := s.ParameterValue(0); v != 0.9 {
		t.Fatalf("ParameterValue(0) = %v, want 0.9", v)
	}
}
