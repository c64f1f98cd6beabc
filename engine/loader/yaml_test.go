package loader

import (
	"testing"

	"github.com/spaghettifunk/scinthd/engine/vgen"
)

func TestParseVGenBuildsAbstractWithDefaultRates(t *testing.T) {
	doc := []byte(`
name: DC
fragment: "@out = vec4(@value);"
inputs: [value]
outputs: [out]
`)
	a, err := ParseVGen(doc)
	if err != nil {
		t.Fatalf("ParseVGen: %v", err)
	}
	if a.Name != "DC" {
		t.Fatalf("Name = %q, want DC", a.Name)
	}
	if !a.SupportedRates.Supports(vgen.RatePixel) || !a.SupportedRates.Supports(vgen.RateFrame) {
		t.Fatal("expected default rates to include frame and pixel")
	}
}

func TestParseVGenRejectsUnknownRate(t *testing.T) {
	doc := []byte(`
name: DC
fragment: "@out = vec4(@value);"
inputs: [value]
outputs: [out]
rates: [bogus]
`)
	if _, err := ParseVGen(doc); err == nil {
		t.Fatal("expected error for unknown rate name")
	}
}

func TestParseVGenRejectsMissingFragment(t *testing.T) {
	doc := []byte(`
name: DC
outputs: [out]
`)
	if _, err := ParseVGen(doc); err == nil {
		t.Fatal("expected error for missing fragment")
	}
}

func TestParseScinthDefResolvesBindingsAgainstRegistry(t *testing.T) {
	registry := vgen.NewRegistry()
	dc, err := ParseVGen([]byte(`
name: DC
fragment: "@out = vec4(@value);"
inputs: [value]
outputs: [out]
rates: [frame, shape, pixel]
`))
	if err != nil {
		t.Fatalf("ParseVGen: %v", err)
	}
	registry.Register(dc)

	doc := []byte(`
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
`)
	abstract, err := ParseScinthDef(doc, registry)
	if err != nil {
		t.Fatalf("ParseScinthDef: %v", err)
	}
	if abstract.Name != "SimpleColor" {
		t.Fatalf("Name = %q, want SimpleColor", abstract.Name)
	}
	if len(abstract.Instances) != 1 {
		t.Fatalf("got %d instances, want 1", len(abstract.Instances))
	}
	binding := abstract.Instances[0].Inputs[0]
	if binding.Kind != vgen.BindingParameter || binding.ParamIndex != 0 {
		t.Fatalf("binding = %+v, want parameter index 0", binding)
	}

	compiled, err := abstract.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if compiled.IndexForParameterName("brightness") != 0 {
		t.Fatal("expected compiled ScinthDef to carry the brightness parameter")
	}
}

func TestParseScinthDefRejectsUnregisteredClassName(t *testing.T) {
	registry := vgen.NewRegistry()
	doc := []byte(`
name: Broken
vgens:
  - className: Missing
    rate: pixel
`)
	if _, err := ParseScinthDef(doc, registry); err == nil {
		t.Fatal("expected error for unregistered vgen class")
	}
}

func TestParseScinthDefRejectsEmptyGraph(t *testing.T) {
	registry := vgen.NewRegistry()
	doc := []byte(`
name: Empty
vgens: []
`)
	if _, err := ParseScinthDef(doc, registry); err == nil {
		t.Fatal("expected error for empty vgen graph")
	}
}

func TestParseScinthDefResolvesConstantAndVGenBindings(t *testing.T) {
	registry := vgen.NewRegistry()
	producer, err := ParseVGen([]byte(`
name: Producer
fragment: "@out = 1.0f;"
outputs: [out]
rates: [pixel]
`))
	if err != nil {
		t.Fatalf("ParseVGen(producer): %v", err)
	}
	registry.Register(producer)

	consumer, err := ParseVGen([]byte(`
name: Consumer
fragment: "@out = @a + @b;"
inputs: [a, b]
outputs: [out]
rates: [pixel]
`))
	if err != nil {
		t.Fatalf("ParseVGen(consumer): %v", err)
	}
	registry.Register(consumer)

	doc := []byte(`
name: Combined
vgens:
  - className: Producer
    rate: pixel
  - className: Consumer
    rate: pixel
    inputs:
      - type: vgen
        vgenIndex: 0
        outputIndex: 0
      - type: constant
        value: 0.25
`)
	abstract, err := ParseScinthDef(doc, registry)
	if err != nil {
		t.Fatalf("ParseScinthDef: %v", err)
	}
	if _, err := abstract.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
}
