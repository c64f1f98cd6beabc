package frametimer

import (
	"testing"
	"time"
)

func TestElapsedTimeTracksFromStartToLastMark(t *testing.T) {
	f := New(false, nil)
	f.Start()
	time.Sleep(5 * time.Millisecond)
	f.MarkFrame()
	if f.ElapsedTime() <= 0 {
		t.Fatalf("ElapsedTime() = %v, want > 0", f.ElapsedTime())
	}
}

func TestMarkFrameDetectsLateFrameOnceWindowIsCredible(t *testing.T) {
	f := New(true, nil)
	f.Start()

	for i := 0; i < windowSize/2; i++ {
		time.Sleep(time.Millisecond)
		f.MarkFrame()
	}
	if f.LateFrameCount() != 0 {
		t.Fatalf("expected no late frames yet, got %d", f.LateFrameCount())
	}

	time.Sleep(10 * time.Millisecond)
	f.MarkFrame()
	if f.LateFrameCount() != 1 {
		t.Fatalf("expected exactly one late frame after a >1.5x-mean period, got %d", f.LateFrameCount())
	}
}

func TestSlidingWindowBoundedAtWindowSize(t *testing.T) {
	f := New(false, nil)
	f.Start()
	for i := 0; i < windowSize+20; i++ {
		f.MarkFrame()
	}
	if len(f.framePeriods) > windowSize {
		t.Fatalf("framePeriods len = %d, want <= %d", len(f.framePeriods), windowSize)
	}
}
