package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armkit/go-irc5/pkg/trajectory"
)

type stubGoal struct {
	goal trajectory.Goal

	mu        sync.Mutex
	accepted  bool
	rejected  bool
	canceled  bool
	aborted   bool
	succeeded bool
}

func (s *stubGoal) Goal() trajectory.Goal { return s.goal }

func (s *stubGoal) SetRejected(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected = true
}

func (s *stubGoal) SetAccepted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepted = true
}

func (s *stubGoal) SetCanceled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled = true
}

func (s *stubGoal) SetAborted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
}

func (s *stubGoal) DefaultResult() trajectory.Result { return trajectory.Result{} }

func (s *stubGoal) SetSucceeded(trajectory.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded = true
}

func (s *stubGoal) isAborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

func (s *stubGoal) isSucceeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.succeeded
}

func (s *stubGoal) PublishFeedback(trajectory.Feedback) {}

type capturePub struct {
	mu     sync.Mutex
	states []State
}

func (p *capturePub) PublishState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, s)
}

func (p *capturePub) last() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.states) == 0 {
		return State{}
	}
	return p.states[len(p.states)-1]
}

func submitRamp(t *testing.T, a *trajectory.Adapter, duration float64) *stubGoal {
	t.Helper()
	gh := &stubGoal{goal: trajectory.Goal{
		JointNames: trajectory.DefaultJointNames,
		Points: []trajectory.Waypoint{
			{TimeFromStart: 0},
			{TimeFromStart: duration, Positions: [trajectory.NumJoints]float64{0, 0, 0, 0, 0, 1.0}},
		},
	}}
	a.SubmitGoal(gh)
	require.True(t, gh.accepted)
	return gh
}

func TestSetMode_Validation(t *testing.T) {
	c := New(trajectory.NewAdapter(), 10*time.Millisecond, nil)

	tests := []struct {
		name        string
		mode        Mode
		speedScalar float64
		ftThreshold []float64
		wantErr     bool
	}{
		{"halt", ModeHalt, 1, nil, false},
		{"auto with threshold", ModeAutoTrajectory, 1, []float64{5, 5, 5, 5, 5, 5}, false},
		{"zero speed", ModeJointTeleop, 0, nil, false},
		{"max speed", ModeSharedTrajectory, 5, nil, false},
		{"unknown mode", Mode(7), 1, nil, true},
		{"negative mode", Mode(-1), 1, nil, true},
		{"negative speed", ModeHalt, -0.5, nil, true},
		{"speed above max", ModeHalt, 5.1, nil, true},
		{"short threshold", ModeHalt, 1, []float64{1, 2, 3}, true},
		{"negative threshold", ModeHalt, 1, []float64{1, 1, 1, 1, 1, -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.SetMode(tt.mode, tt.speedScalar, tt.ftThreshold)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStep_FirstSampleSeedsCommand(t *testing.T) {
	c := New(trajectory.NewAdapter(), 10*time.Millisecond, nil)
	angles := [trajectory.NumJoints]float64{0.1, -0.2, 0.3, 0, 0.5, -0.6}

	cmd := c.Step(StepInput{JointAngles: angles})

	assert.Equal(t, angles, cmd, "arm must hold position until a mode drives it")
}

func TestStep_JointTeleopIntegratesVelocity(t *testing.T) {
	c := New(trajectory.NewAdapter(), 100*time.Millisecond, nil)
	require.NoError(t, c.SetMode(ModeJointTeleop, 2.0, nil))

	vel := [trajectory.NumJoints]float64{1.0, 0, 0, 0, 0, -0.5}
	cmd := c.Step(StepInput{JointCmdVel: &vel})

	// 1 rad/s over a 0.1 s step at double speed
	assert.InDelta(t, 0.2, cmd[0], 1e-9)
	assert.InDelta(t, -0.1, cmd[5], 1e-9)

	cmd = c.Step(StepInput{JointCmdVel: &vel})
	assert.InDelta(t, 0.4, cmd[0], 1e-9)
}

func TestStep_JointTeleopClipsToLimits(t *testing.T) {
	low := []float64{-0.1, -1, -1, -1, -1, -1}
	high := []float64{0.1, 1, 1, 1, 1, 1}
	c := New(trajectory.NewAdapter(), 100*time.Millisecond, nil, WithJointLimits(low, high))
	require.NoError(t, c.SetMode(ModeJointTeleop, 1, nil))

	vel := [trajectory.NumJoints]float64{10, 0, 0, 0, 0, 0}
	cmd := c.Step(StepInput{JointCmdVel: &vel})

	assert.InDelta(t, 0.1, cmd[0], 1e-9)
}

func TestStep_HaltAbortsActiveTrajectory(t *testing.T) {
	a := trajectory.NewAdapter()
	c := New(a, 10*time.Millisecond, nil)
	gh := submitRamp(t, a, 2)
	require.NoError(t, c.SetMode(ModeHalt, 1, nil))

	c.Step(StepInput{})

	assert.True(t, gh.isAborted())
	assert.False(t, a.TrajectoryValid())
}

func TestStep_HaltInputForcesHaltMode(t *testing.T) {
	a := trajectory.NewAdapter()
	c := New(a, 10*time.Millisecond, nil)
	gh := submitRamp(t, a, 2)
	require.NoError(t, c.SetMode(ModeAutoTrajectory, 1, nil))

	c.Step(StepInput{Halt: true})

	assert.Equal(t, ModeHalt, c.Mode())
	assert.True(t, gh.isAborted())
}

func TestStep_AutoTrajectoryRunsToCompletion(t *testing.T) {
	a := trajectory.NewAdapter()
	pub := &capturePub{}
	c := New(a, 500*time.Millisecond, pub)
	gh := submitRamp(t, a, 2)
	require.NoError(t, c.SetMode(ModeAutoTrajectory, 1, nil))

	// Loopback: each step's measured position is the previous command
	var pos [trajectory.NumJoints]float64
	for i := 0; i < 6; i++ {
		pos = c.Step(StepInput{JointAngles: pos})
		if gh.isSucceeded() {
			break
		}
	}

	assert.True(t, gh.isSucceeded())
	assert.False(t, a.TrajectoryValid())
	assert.InDelta(t, 1.0, pos[5], 1e-9, "final command is the end-of-path target")

	last := pub.last()
	assert.False(t, last.TrajectoryValid)
	assert.Equal(t, ModeAutoTrajectory, last.Mode)
}

func TestStep_SharedTrajectoryScalesByInputVelocity(t *testing.T) {
	a := trajectory.NewAdapter()
	c := New(a, 500*time.Millisecond, nil)
	submitRamp(t, a, 2)
	require.NoError(t, c.SetMode(ModeSharedTrajectory, 1, nil))

	c.Step(StepInput{TrajectoryVel: 0.5})
	assert.InDelta(t, 0.25, a.TrajectoryTime(), 1e-9)

	// Zero input velocity holds the trajectory clock
	c.Step(StepInput{TrajectoryVel: 0})
	assert.InDelta(t, 0.25, a.TrajectoryTime(), 1e-9)

	// Negative input velocity rewinds
	c.Step(StepInput{TrajectoryVel: -0.5})
	assert.InDelta(t, 0.0, a.TrajectoryTime(), 1e-9)
}

func TestStep_FtThresholdAbortsAndHalts(t *testing.T) {
	a := trajectory.NewAdapter()
	c := New(a, 10*time.Millisecond, nil)
	gh := submitRamp(t, a, 2)
	require.NoError(t, c.SetMode(ModeAutoTrajectory, 1, []float64{5, 5, 5, 5, 5, 5}))

	c.Step(StepInput{Wrench: []float64{0, 0, 10, 0, 0, 0}})

	assert.True(t, gh.isAborted())
	assert.Equal(t, ModeHalt, c.Mode())
}

func TestStep_ArmedThresholdWithoutWrenchHalts(t *testing.T) {
	a := trajectory.NewAdapter()
	c := New(a, 10*time.Millisecond, nil)
	gh := submitRamp(t, a, 2)
	require.NoError(t, c.SetMode(ModeAutoTrajectory, 1, []float64{5, 5, 5, 5, 5, 5}))

	c.Step(StepInput{})

	assert.True(t, gh.isAborted())
	assert.Equal(t, ModeHalt, c.Mode())
}

func TestStep_DisarmedThresholdIgnoresWrench(t *testing.T) {
	a := trajectory.NewAdapter()
	c := New(a, 10*time.Millisecond, nil)
	gh := submitRamp(t, a, 2)
	require.NoError(t, c.SetMode(ModeAutoTrajectory, 1, []float64{0, 0, 0, 0, 0, 0}))

	c.Step(StepInput{Wrench: []float64{100, 100, 100, 100, 100, 100}})

	assert.False(t, gh.isAborted())
	assert.Equal(t, ModeAutoTrajectory, c.Mode())
}

func TestErrorStep_ReportsFaultAndReseedsCommand(t *testing.T) {
	pub := &capturePub{}
	c := New(trajectory.NewAdapter(), 10*time.Millisecond, pub)

	c.Step(StepInput{JointAngles: [trajectory.NumJoints]float64{0.5, 0, 0, 0, 0, 0}})
	c.ErrorStep("feedback timed out")

	assert.Equal(t, "feedback timed out", pub.last().ErrorMsg)

	// Next good sample reseeds the command from the measured position
	angles := [trajectory.NumJoints]float64{0.7, 0, 0, 0, 0, 0}
	cmd := c.Step(StepInput{JointAngles: angles})
	assert.Equal(t, angles, cmd)
	assert.Empty(t, pub.last().ErrorMsg)
}

func TestPublishedState_CarriesTrajectoryProgress(t *testing.T) {
	a := trajectory.NewAdapter()
	pub := &capturePub{}
	c := New(a, 500*time.Millisecond, pub)
	submitRamp(t, a, 2)
	require.NoError(t, c.SetMode(ModeAutoTrajectory, 1, nil))

	c.Step(StepInput{})

	s := pub.last()
	assert.True(t, s.TrajectoryValid)
	assert.InDelta(t, 0.5, s.TrajectoryTime, 1e-9)
	assert.InDelta(t, 2.0, s.TrajectoryMaxTime, 1e-9)
	assert.Equal(t, trajectory.DefaultJointNames, s.JointNames)
	assert.False(t, s.WrenchValid)
}

func TestRun_DrivesLoopbackArmToGoal(t *testing.T) {
	a := trajectory.NewAdapter()
	c := New(a, time.Millisecond, nil)
	gh := submitRamp(t, a, 0.02)
	require.NoError(t, c.SetMode(ModeAutoTrajectory, 1, nil))

	arm := NewLoopbackArm(a.CurrentJointAngles(), time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := c.Run(ctx, arm, arm)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, gh.isSucceeded())
}
