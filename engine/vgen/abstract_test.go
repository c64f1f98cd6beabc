package vgen

import (
	"testing"

	"github.com/spaghettifunk/scinthd/engine/intrinsic"
)

func TestNewRejectsUnresolvedPlaceholder(t *testing.T) {
	_, err := New("Bad", RatePixel, false, []string{"a"}, []string{"out"},
		[][]int{{1}}, []int{1}, "@out = @notAThing;")
	if err == nil {
		t.Fatal("expected validation error for unresolved placeholder")
	}
}

func TestNewRejectsNoOutputs(t *testing.T) {
	_, err := New("Empty", RatePixel, false, nil, nil, nil, nil, "")
	if err == nil {
		t.Fatal("expected validation error for zero outputs")
	}
}

func TestNewRejectsReservedInputName(t *testing.T) {
	_, err := New("Bad", RatePixel, false, []string{"time"}, []string{"out"},
		[][]int{{1}}, []int{1}, "@out = @time;")
	if err == nil {
		t.Fatal("expected validation error for input colliding with intrinsic name")
	}
}

func TestNewRejectsMismatchedInputDimensionArity(t *testing.T) {
	_, err := New("Bad", RatePixel, false, []string{"a", "b"}, []string{"out"},
		[][]int{{1}}, []int{1}, "@out = @a + @b;")
	if err == nil {
		t.Fatal("expected validation error when inputDimensions tuple arity mismatches input count")
	}
}

func TestParameterizeSubstitutesInputsOutputsIntrinsics(t *testing.T) {
	a, err := New("Mix", RatePixel, false, []string{"a", "b"}, []string{"out"},
		[][]int{{1, 1}}, []int{1}, "@out = @a + @b + @time;")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	intrinsics := a.Intrinsics()
	if !intrinsics[intrinsic.Time] {
		t.Fatalf("expected Time intrinsic to be detected")
	}

	out, err := a.Parameterize(
		[]string{"0.5f", "x_param"},
		map[intrinsic.Intrinsic]string{intrinsic.Time: "ubo.time"},
		[]string{"myOut"},
	)
	if err != nil {
		t.Fatalf("Parameterize: %v", err)
	}
	want := "myOut = 0.5f + x_param + ubo.time;"
	if out != want {
		t.Fatalf("Parameterize = %q, want %q", out, want)
	}
}

func TestParameterizeRejectsArityMismatch(t *testing.T) {
	a, err := New("One", RatePixel, false, []string{"a"}, []string{"out"},
		[][]int{{1}}, []int{1}, "@out = @a;")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := a.Parameterize([]string{"1f", "2f"}, nil, []string{"o"}); err == nil {
		t.Fatal("expected arity-mismatch error")
	}
}
