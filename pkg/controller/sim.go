package controller

import (
	"sync"
	"time"

	"github.com/armkit/go-irc5/pkg/trajectory"
)

// LoopbackArm simulates a perfectly tracking arm for running the
// controller without hardware: every commanded position becomes the next
// sample's measured position. Sample paces the loop at the configured
// period.
type LoopbackArm struct {
	mu     sync.Mutex
	pos    [trajectory.NumJoints]float64
	period time.Duration
}

// NewLoopbackArm creates a simulated arm at the given start position.
func NewLoopbackArm(start [trajectory.NumJoints]float64, period time.Duration) *LoopbackArm {
	return &LoopbackArm{pos: start, period: period}
}

// Sample returns the simulated arm position after one period.
func (l *LoopbackArm) Sample() (StepInput, error) {
	time.Sleep(l.period)
	l.mu.Lock()
	defer l.mu.Unlock()
	return StepInput{JointAngles: l.pos}, nil
}

// WriteCommand moves the simulated arm directly to the commanded
// position.
func (l *LoopbackArm) WriteCommand(cmd [trajectory.NumJoints]float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pos = cmd
	return nil
}
