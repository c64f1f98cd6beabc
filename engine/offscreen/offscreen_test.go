package offscreen

import (
	"sync"
	"testing"

	"github.com/spaghettifunk/scinthd/engine/compositor"
	"github.com/spaghettifunk/scinthd/engine/rendercontext"
)

type countingEncoder struct {
	mu    sync.Mutex
	calls int
}

func (c *countingEncoder) Encode(rgba []byte, width, height int, timestamp float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingEncoder) Close() error { return nil }

func (c *countingEncoder) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestNewRejectsFewerThanTwoImages(t *testing.T) {
	ctx := rendercontext.NewNoopContext()
	comp := compositor.New(ctx, nil)
	if _, err := New(ctx, comp, nil, 4, 4, 1); err == nil {
		t.Fatal("expected error for numberOfImages < 2")
	}
}

func TestRenderFrameFansOutToEncoders(t *testing.T) {
	ctx := rendercontext.NewNoopContext()
	comp := compositor.New(ctx, nil)
	eng, err := New(ctx, comp, nil, 4, 4, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Destroy()

	enc := &countingEncoder{}
	eng.AddEncoder(enc)

	if err := eng.RenderFrame(1.0 / 60.0); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if enc.Calls() != 1 {
		t.Fatalf("encoder calls = %d, want 1", enc.Calls())
	}
}

func TestRemoveEncoderStopsFurtherCalls(t *testing.T) {
	ctx := rendercontext.NewNoopContext()
	comp := compositor.New(ctx, nil)
	eng, err := New(ctx, comp, nil, 4, 4, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Destroy()

	enc := &countingEncoder{}
	eng.AddEncoder(enc)
	eng.RemoveEncoder(enc)

	if err := eng.RenderFrame(1.0 / 60.0); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if enc.Calls() != 0 {
		t.Fatalf("encoder calls = %d, want 0 after RemoveEncoder", enc.Calls())
	}
}

func TestRenderFrameRejectsNegativeDt(t *testing.T) {
	ctx := rendercontext.NewNoopContext()
	comp := compositor.New(ctx, nil)
	eng, err := New(ctx, comp, nil, 4, 4, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Destroy()

	if err := eng.RenderFrame(-1); err == nil {
		t.Fatal("expected error for negative dt")
	}
}

func TestNextRenderSlotRotatesAcrossRenderRing(t *testing.T) {
	ctx := rendercontext.NewNoopContext()
	comp := compositor.New(ctx, nil)
	eng, err := New(ctx, comp, nil, 4, 4, 3) // ring of 2, 1 reserved
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Destroy()

	seen := map[int]bool{}
	for i := 0; i < 4; i++ {
		s := eng.nextRenderSlot()
		seen[s.index] = true
	}
	if len(seen) != 2 {
		t.Fatalf("expected rotation across exactly 2 ring slots, saw %d", len(seen))
	}
	if seen[2] {
		t.Fatal("expected the last slot (index 2) to never be used as a render target")
	}
}

func TestStartStopWithFrameRateTerminatesCleanly(t *testing.T) {
	ctx := rendercontext.NewNoopContext()
	comp := compositor.New(ctx, nil)
	eng, err := New(ctx, comp, nil, 4, 4, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Destroy()

	eng.Start(1000)
	eng.Stop()
}
