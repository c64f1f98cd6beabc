// Package frametimer implements FrameTimer (component M): a sliding-window
// frame-period tracker used by the render loop to report mean throughput
// and detect dropped/late frames.
package frametimer

import (
	"sync"
	"time"

	"github.com/spaghettifunk/scinthd/engine/core"
)

// windowSize bounds how many recent frame periods feed the running mean.
const windowSize = 60

// reportInterval is how often markFrame logs a throughput summary.
const reportInterval = 10 * time.Second

// FrameTimer tracks frame-to-frame timing, maintaining a bounded sliding
// window of recent frame periods to compute a running mean and flag frames
// that take unusually long.
type FrameTimer struct {
	trackDroppedFrames bool
	logger             *core.Logger

	// mu guards every field below: MarkFrame runs on the render thread,
	// while ElapsedTime/LateFrameCount/MeanFPS are read from the control
	// thread's Status command handler.
	mu sync.Mutex

	framePeriods []float64
	periodSum    float64
	lateFrames   int
	lateTotal    int

	startTime      time.Time
	lastFrameTime  time.Time
	lastReportTime time.Time
}

// New returns a FrameTimer. When trackDroppedFrames is true, markFrame
// detects and counts frames whose period is at least 1.5x the running mean
// once the window holds enough samples to be credible.
func New(trackDroppedFrames bool, logger *core.Logger) *FrameTimer {
	return &FrameTimer{trackDroppedFrames: trackDroppedFrames, logger: logger}
}

// Start records the start time and begins tracking frame-to-frame periods.
func (f *FrameTimer) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.startTime = now
	f.lastFrameTime = now
	f.lastReportTime = now
}

// MarkFrame records one frame boundary, updates the sliding window and
// running mean, flags late frames, and logs a throughput summary at most
// once every reportInterval.
func (f *FrameTimer) MarkFrame() {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	framePeriod := now.Sub(f.lastFrameTime).Seconds()
	f.lastFrameTime = now

	meanPeriod := framePeriod
	if len(f.framePeriods) > 0 {
		meanPeriod = f.periodSum / float64(len(f.framePeriods))
	}
	f.periodSum += framePeriod
	f.framePeriods = append(f.framePeriods, framePeriod)

	// A frame counts as late once we have at least half the window to
	// establish a credible mean, and its period exceeds 1.5x that mean. The
	// outlier is then dropped from the sum so it doesn't bias the mean used
	// to judge subsequent frames.
	if f.trackDroppedFrames && len(f.framePeriods) >= windowSize/2 && framePeriod >= meanPeriod*1.5 {
		f.lateFrames++
		f.lateTotal++
		f.periodSum -= framePeriod
		f.framePeriods = f.framePeriods[:len(f.framePeriods)-1]
	}

	for len(f.framePeriods) > windowSize {
		f.periodSum -= f.framePeriods[0]
		f.framePeriods = f.framePeriods[1:]
	}

	if f.logger != nil && now.Sub(f.lastReportTime) >= reportInterval {
		if f.trackDroppedFrames {
			f.logger.Infof("mean fps: %.1f, late frames: %d", 1.0/meanPeriod, f.lateFrames)
			f.lateFrames = 0
		} else {
			f.logger.Infof("mean fps: %.1f", 1.0/meanPeriod)
		}
		f.lastReportTime = now
	}
}

// ElapsedTime returns the time in seconds from Start to the most recent
// MarkFrame call.
func (f *FrameTimer) ElapsedTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFrameTime.Sub(f.startTime).Seconds()
}

// LateFrameCount returns the total number of late frames detected since the
// FrameTimer was created. The periodic log line reports only the late frames
// since the previous report; this total is not reset by it.
func (f *FrameTimer) LateFrameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lateTotal
}

// MeanFPS returns the current windowed mean frames-per-second, or 0 before
// the first frame has been marked. Used by the Status command reply.
func (f *FrameTimer) MeanFPS() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.framePeriods) == 0 {
		return 0
	}
	mean := f.periodSum / float64(len(f.framePeriods))
	if mean <= 0 {
		return 0
	}
	return 1.0 / mean
}
