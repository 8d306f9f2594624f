// Package trajectory implements the joint-trajectory follower for a
// 6-axis arm. The Adapter accepts time-parameterized joint goals, builds
// a monotone interpolated profile per joint, and supervises execution as
// joint-angle observations arrive: it aborts on tracking error, publishes
// feedback, and detects completion when the trajectory clock reaches the
// end of the path and the arm has converged onto the final target.
package trajectory

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/armkit/go-irc5/internal/log"
)

// Safety thresholds, in radians.
const (
	// StartToleranceRad is the maximum per-joint deviation between the
	// first waypoint and the arm's current position for a goal to be
	// accepted. 5 degrees.
	StartToleranceRad = 5 * math.Pi / 180

	// TrackingAbortRad is the hard per-joint tracking-error cutoff during
	// execution. Exceeding it on any observation aborts the trajectory.
	// 45 degrees.
	TrackingAbortRad = 45 * math.Pi / 180

	// CompletionToleranceRad is the per-joint convergence tolerance for
	// declaring a trajectory succeeded once its clock reaches the end of
	// the path. 0.1 degrees.
	CompletionToleranceRad = 0.1 * math.Pi / 180
)

// Adapter is the trajectory follower for one arm. At most one trajectory
// is active at a time; accepting a new goal aborts the previous one.
//
// Two independent event streams drive the Adapter: goal submission and
// cancellation from the command side, and joint-angle observations from
// the feedback side. Every public operation serializes on one lock, so an
// observation never sees a half-installed trajectory and a goal swap never
// interleaves with an in-flight abort decision.
type Adapter struct {
	mu sync.Mutex

	jointNames []string
	builder    InterpolatorBuilder
	now        func() time.Time

	current [NumJoints]float64

	valid  bool
	interp [NumJoints]Interpolator
	t      float64
	maxT   float64
	gh     GoalHandle
}

// AdapterOption customizes an Adapter.
type AdapterOption func(*Adapter)

// WithJointNames overrides the expected joint name list. names must have
// exactly NumJoints entries.
func WithJointNames(names []string) AdapterOption {
	return func(a *Adapter) { a.jointNames = names }
}

// WithBuilder overrides the interpolator builder.
func WithBuilder(b InterpolatorBuilder) AdapterOption {
	return func(a *Adapter) { a.builder = b }
}

// WithClock overrides the wall-clock source used for feedback timestamps.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) { a.now = now }
}

// NewAdapter creates an Adapter with no active trajectory. Defaults:
// DefaultJointNames, PCHIP interpolation, time.Now.
func NewAdapter(opts ...AdapterOption) *Adapter {
	a := &Adapter{
		jointNames: DefaultJointNames,
		builder:    PCHIP{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SubmitGoal validates and, if valid, activates the goal carried by gh.
//
// Validation order: joint names must match the expected list exactly,
// then every first-waypoint position must be within StartToleranceRad of
// the current joint angles. Each failure rejects the handle and leaves
// adapter state untouched. On success the handle is accepted, any
// previously active trajectory is aborted, and the new trajectory is
// installed with its clock at zero.
func (a *Adapter) SubmitGoal(gh GoalHandle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	g := gh.Goal()
	if !slices.Equal(g.JointNames, a.jointNames) {
		log.Warn("goal rejected: invalid joint names", "names", g.JointNames)
		gh.SetRejected("invalid joint names")
		return
	}
	if len(g.Points) == 0 {
		gh.SetRejected("empty trajectory")
		return
	}
	for j, p := range g.Points[0].Positions {
		if math.Abs(p-a.current[j]) > StartToleranceRad {
			// The arm is not where the trajectory assumes it starts.
			// No reason text on this path.
			gh.SetRejected("")
			return
		}
	}

	times := make([]float64, len(g.Points))
	for i, p := range g.Points {
		times[i] = p.TimeFromStart
	}
	var interps [NumJoints]Interpolator
	positions := make([]float64, len(g.Points))
	for j := 0; j < NumJoints; j++ {
		for i, p := range g.Points {
			positions[i] = p.Positions[j]
		}
		in, err := a.builder.Build(times, positions)
		if err != nil {
			gh.SetRejected(fmt.Sprintf("invalid trajectory: %v", err))
			return
		}
		interps[j] = in
	}

	gh.SetAccepted()

	a.abortLocked()

	a.gh = gh
	a.interp = interps
	a.t = 0
	a.maxT = times[len(times)-1]
	a.valid = true
	log.Info("trajectory goal accepted", "points", len(g.Points), "max_time", a.maxT)
}

// CancelGoal discards any active trajectory and transitions gh to
// canceled. Canceling with no active trajectory still acknowledges the
// cancel on the handle.
func (a *Adapter) CancelGoal(gh GoalHandle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.resetLocked()
	gh.SetCanceled()
}

// ReportJointAngles records a new joint-angle observation from the arm.
// If a trajectory is active, the expected angles at the current trajectory
// time are compared against the observation: deviation beyond
// TrackingAbortRad on any joint aborts the trajectory on this exact
// observation. Otherwise feedback is published to the goal handle.
// Observations never advance the trajectory clock; see SetTrajectoryTime
// and IncrementTrajectoryTime.
func (a *Adapter) ReportJointAngles(joints [NumJoints]float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = joints
	if !a.valid {
		return
	}

	expected := a.evalLocked(a.t)
	for j := range expected {
		if math.Abs(expected[j]-joints[j]) > TrackingAbortRad {
			log.Error("trajectory aborted due to tracking error",
				"joint", a.jointNames[j],
				"deviation_deg", (expected[j]-joints[j])*180/math.Pi)
			a.abortLocked()
			return
		}
	}

	// Feedback reports the end-of-path target in both the desired and
	// actual fields; consumers read the commanded final target from it.
	fb := Feedback{
		Stamp:         a.now(),
		Desired:       a.evalLocked(a.maxT),
		TimeFromStart: a.t,
	}
	fb.Actual = fb.Desired
	a.gh.PublishFeedback(fb)
}

// SetTrajectoryTime moves the trajectory clock to the absolute time t and
// returns the interpolated joint angles there. t above the trajectory's
// max time clamps to the max time; a negative t, or no active trajectory,
// returns ok=false with no state change.
//
// When the clock reaches the end of the path and the last observed joint
// angles are within CompletionToleranceRad of the final target on every
// joint, the trajectory succeeds and is released. Otherwise it stays
// active holding at end of path, awaiting convergence or abort.
func (a *Adapter) SetTrajectoryTime(t float64) ([NumJoints]float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.setTimeLocked(t)
}

// IncrementTrajectoryTime moves the trajectory clock by dt, clamped to
// [0, max time], and otherwise behaves as SetTrajectoryTime.
func (a *Adapter) IncrementTrajectoryTime(dt float64) ([NumJoints]float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.valid {
		return [NumJoints]float64{}, false
	}
	t2 := a.t + dt
	if t2 < 0 {
		t2 = 0
	}
	if t2 > a.maxT {
		t2 = a.maxT
	}
	return a.setTimeLocked(t2)
}

// AbortTrajectory aborts any active trajectory: its goal handle
// transitions to aborted and adapter state resets. No-op when nothing is
// active.
func (a *Adapter) AbortTrajectory() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.valid {
		a.abortLocked()
	}
}

// TrajectoryValid reports whether a trajectory is active.
func (a *Adapter) TrajectoryValid() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.valid
}

// TrajectoryTime returns the active trajectory's internal clock.
func (a *Adapter) TrajectoryTime() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.t
}

// TrajectoryMaxTime returns the active trajectory's nominal duration.
func (a *Adapter) TrajectoryMaxTime() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxT
}

// CurrentJointAngles returns the most recent joint-angle observation.
func (a *Adapter) CurrentJointAngles() [NumJoints]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *Adapter) setTimeLocked(t float64) ([NumJoints]float64, bool) {
	if !a.valid || t < 0 {
		return [NumJoints]float64{}, false
	}
	if t > a.maxT {
		t = a.maxT
	}

	a.t = t
	angles := a.evalLocked(t)

	if t >= a.maxT {
		converged := true
		for j := range angles {
			if math.Abs(a.current[j]-angles[j]) >= CompletionToleranceRad {
				converged = false
				break
			}
		}
		if converged {
			a.completeLocked()
		}
	}
	return angles, true
}

func (a *Adapter) evalLocked(t float64) [NumJoints]float64 {
	var angles [NumJoints]float64
	for j := range a.interp {
		angles[j] = a.interp[j].Predict(t)
	}
	return angles
}

func (a *Adapter) completeLocked() {
	gh := a.gh
	res := gh.DefaultResult()
	res.ErrorCode = ErrorCodeSuccessful
	gh.SetSucceeded(res)
	a.resetLocked()
	log.Info("trajectory complete")
}

func (a *Adapter) abortLocked() {
	if a.gh != nil {
		a.gh.SetAborted()
	}
	a.resetLocked()
}

func (a *Adapter) resetLocked() {
	a.valid = false
	a.maxT = 0
	a.t = 0
	a.interp = [NumJoints]Interpolator{}
	a.gh = nil
}
