package vgen

import "testing"

func mustAbstract(t *testing.T, rates Rate) *Abstract {
	t.Helper()
	a, err := New("Pass", rates, false, []string{"in"}, []string{"out"},
		[][]int{{1}}, []int{1}, "@out = @in;")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNewInstanceRejectsUnsupportedRate(t *testing.T) {
	a := mustAbstract(t, RateShape)
	_, err := NewInstance(a, RatePixel, []Binding{{Kind: BindingConstant, Constant: []float32{0}}}, []int{1}, 0)
	if err == nil {
		t.Fatal("expected validation error for unsupported rate")
	}
}

func TestNewInstanceRejectsNonTopologicalReference(t *testing.T) {
	a := mustAbstract(t, RatePixel)
	binding := Binding{Kind: BindingVGenOutput, VGenIndex: 2, OutputIndex: 0, Dimension: 1}
	_, err := NewInstance(a, RatePixel, []Binding{binding}, []int{1}, 2)
	if err == nil {
		t.Fatal("expected validation error for non-topological VGenOutput reference")
	}
}

func TestNewInstanceAcceptsEarlierReference(t *testing.T) {
	a := mustAbstract(t, RatePixel)
	binding := Binding{Kind: BindingVGenOutput, VGenIndex: 0, OutputIndex: 0, Dimension: 1}
	inst, err := NewInstance(a, RatePixel, []Binding{binding}, []int{1}, 1)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	if inst.OutputDimension(0) != 1 {
		t.Fatalf("OutputDimension(0) = %d, want 1", inst.OutputDimension(0))
	}
}
