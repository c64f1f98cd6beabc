package scinth

import (
	"testing"

	"github.com/spaghettifunk/scinthd/engine/rendercontext"
	"github.com/spaghettifunk/scinthd/engine/scinthdef"
	"github.com/spaghettifunk/scinthd/engine/shape"
	"github.com/spaghettifunk/scinthd/engine/tween"
	"github.com/spaghettifunk/scinthd/engine/vgen"
)

func simpleCompiledWithParameter(t *testing.T) *scinthdef.Compiled {
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
		Name:       "SimpleColor",
		Shape:      shape.NewQuad(1, 1),
		Parameters: []scinthdef.Parameter{{Name: "brightness", DefaultValue: 0.25}},
		Instances:  []*vgen.Instance{inst},
	}
	compiled, err := abstract.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return compiled
}

func fakeDef(t *testing.T) *Def {
	t.Helper()
	compiled := simpleCompiledWithParameter(t)
	return &Def{Compiled: compiled, Shape: shape.NewQuad(1, 1), ctx: rendercontext.NewNoopContext()}
}

func TestNewScinthCopiesDefaultParameterValues(t *testing.T) {
	def := fakeDef(t)
	s, err := New(def, 1000, 2, rendercontext.NewNoopContext(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if got := s.ParameterValue(0); got != 0.25 {
		t.Fatalf("default parameter value = %v, want 0.25", got)
	}
}

func TestSetParameterByNameMarksDirtyAndUpdatesValue(t *testing.T) {
	def := fakeDef(t)
	s, err := New(def, 1000, 1, rendercontext.NewNoopContext(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if err := s.SetParameterByName("brightness", 0.9); err != nil {
		t.Fatalf("SetParameterByName: %v", err)
	}
	if got := s.ParameterValue(0); got != 0.9 {
		t.Fatalf("parameter value = %v, want 0.9", got)
	}
	if !s.commandBuffersDirty {
		t.Fatal("expected commandBuffersDirty after a parameter set")
	}
}

func TestSetParameterByNameRejectsUnknownName(t *testing.T) {
	def := fakeDef(t)
	s, err := New(def, 1000, 1, rendercontext.NewNoopContext(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if err := s.SetParameterByName("nonexistent", 1); err == nil {
		t.Fatal("expected error for unknown parameter name")
	}
}

func TestSetParameterTweenRampsOverPrepareFrameCalls(t *testing.T) {
	def := fakeDef(t)
	s, err := New(def, 1000, 1, rendercontext.NewNoopContext(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if err := s.SetParameterTween("brightness", 1.0, 2.0, tween.Linear); err != nil {
		t.Fatalf("SetParameterTween: %v", err)
	}

	if _, err := s.PrepareFrame(0, 1.0, 1.0); err != nil {
		t.Fatalf("PrepareFrame: %v", err)
	}
	if got := s.ParameterValue(0); got < 0.6 || got > 0.7 {
		t.Fatalf("halfway tween value = %v, want ~0.625", got)
	}

	if _, err := s.PrepareFrame(0, 2.0, 1.0); err != nil {
		t.Fatalf("PrepareFrame: %v", err)
	}
	if got := s.ParameterValue(0); got != 1.0 {
		t.Fatalf("final tween value = %v, want 1.0", got)
	}
}

func TestPrepareFrameSkipsWhenPaused(t *testing.T) {
	def := fakeDef(t)
	s, err := New(def, 1000, 1, rendercontext.NewNoopContext(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	s.Run(false)
	running, err := s.PrepareFrame(0, 1.0, 1.0)
	if err != nil {
		t.Fatalf("PrepareFrame: %v", err)
	}
	if running {
		t.Fatal("expected PrepareFrame to report not running while paused")
	}
}

func TestPrepareFrameRejectsOutOfRangeImageIndex(t *testing.T) {
	def := fakeDef(t)
	s, err := New(def, 1000, 1, rendercontext.NewNoopContext(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Destroy()

	if _, err := s.PrepareFrame(5, 1.0, 1.0); err == nil {
		t.Fatal("expected error for out-of-range image index")
	}
}
