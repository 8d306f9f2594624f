// Package controller implements the mode-based step controller that sits
// between the arm's feedback stream and the trajectory follower. Each
// step it records the measured joint angles, enforces the force/torque
// stop threshold, produces command joint angles according to the active
// mode, and publishes a state snapshot.
package controller

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/armkit/go-irc5/internal/log"
	"github.com/armkit/go-irc5/pkg/trajectory"
)

const ftEpsilon = 1e-6

// Controller produces command joint angles from feedback samples. All
// public methods serialize on one lock; Step and SetMode may be called
// from different goroutines.
type Controller struct {
	mu sync.Mutex

	traj *trajectory.Adapter
	ts   float64 // nominal step period, seconds
	pub  StatePublisher
	now  func() time.Time

	mode           Mode
	speedScalar    float64
	speedScalarMax float64
	ftThreshold    []float64

	limitLow  []float64
	limitHigh []float64

	cmd      [trajectory.NumJoints]float64
	haveCmd  bool
	current  [trajectory.NumJoints]float64
	wrench   []float64
	errorMsg string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock overrides the wall-clock source used for state stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithSpeedScalarMax overrides the upper bound accepted by SetMode.
func WithSpeedScalarMax(max float64) Option {
	return func(c *Controller) { c.speedScalarMax = max }
}

// WithJointLimits sets per-joint command clip limits in radians. Both
// slices must have NumJoints entries.
func WithJointLimits(low, high []float64) Option {
	return func(c *Controller) {
		c.limitLow = low
		c.limitHigh = high
	}
}

// New creates a Controller around traj stepping at the given period.
// pub receives a state snapshot after every step; it may be nil.
func New(traj *trajectory.Adapter, stepPeriod time.Duration, pub StatePublisher, opts ...Option) *Controller {
	c := &Controller{
		traj:           traj,
		ts:             stepPeriod.Seconds(),
		pub:            pub,
		now:            time.Now,
		mode:           ModeHalt,
		speedScalar:    1,
		speedScalarMax: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Trajectory returns the adapter the controller drives. The command
// transport submits and cancels goals through it directly.
func (c *Controller) Trajectory() *trajectory.Adapter {
	return c.traj
}

// SetPublisher installs the state publisher. The transport layer is
// built around the controller, so it attaches itself here after
// construction.
func (c *Controller) SetPublisher(pub StatePublisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pub = pub
}

// Step processes one feedback sample and returns the command joint
// angles. The first sample seeds the command with the measured position
// so the arm holds still until a mode drives it.
func (c *Controller) Step(in StepInput) [trajectory.NumJoints]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.errorMsg = ""
	c.current = in.JointAngles
	if !c.haveCmd {
		c.cmd = in.JointAngles
		c.haveCmd = true
	}
	stepTs := c.ts * c.speedScalar

	c.traj.ReportJointAngles(in.JointAngles)

	if in.Halt {
		c.mode = ModeHalt
	}

	if c.wrenchOKLocked(in.Wrench) {
		switch c.mode {
		case ModeHalt:
			c.traj.AbortTrajectory()
		case ModeJointTeleop:
			if in.JointCmdVel != nil {
				for j := range c.cmd {
					c.cmd[j] += in.JointCmdVel[j] * stepTs
				}
				c.clipLocked()
			}
		case ModeSharedTrajectory:
			if angles, ok := c.traj.IncrementTrajectoryTime(stepTs * in.TrajectoryVel); ok {
				c.cmd = angles
			}
		case ModeAutoTrajectory:
			if angles, ok := c.traj.IncrementTrajectoryTime(stepTs); ok {
				c.cmd = angles
			}
		}
	} else {
		log.Warn("force torque threshold exceeded, trajectory aborted")
		c.traj.AbortTrajectory()
		c.mode = ModeHalt
	}

	c.wrench = in.Wrench
	c.publishLocked(now)
	return c.cmd
}

// ErrorStep handles a feedback fault: the command is invalidated and the
// fault is reported in the published state. The next good sample reseeds
// the command from the measured position.
func (c *Controller) ErrorStep(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.haveCmd = false
	c.errorMsg = msg
	c.wrench = nil
	c.publishLocked(c.now())
}

// SetMode switches the control mode, speed scalar and force/torque stop
// threshold. The threshold must be empty (disarmed) or 6 non-negative
// values.
func (c *Controller) SetMode(mode Mode, speedScalar float64, ftThreshold []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mode < ModeHalt || mode > ModeAutoTrajectory {
		return fmt.Errorf("unknown mode %d", mode)
	}
	if speedScalar < 0 || speedScalar > c.speedScalarMax {
		return fmt.Errorf("speed scalar %f outside [0, %f]", speedScalar, c.speedScalarMax)
	}
	if n := len(ftThreshold); n != 0 && n != trajectory.NumJoints {
		return fmt.Errorf("force torque threshold needs %d entries, got %d", trajectory.NumJoints, n)
	}
	for _, v := range ftThreshold {
		if v < 0 {
			return fmt.Errorf("negative force torque threshold %f", v)
		}
	}

	c.mode = mode
	c.speedScalar = speedScalar
	c.ftThreshold = ftThreshold
	log.Info("controller mode set", "mode", mode.String(), "speed_scalar", speedScalar)
	return nil
}

// Mode returns the active control mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Run drives the controller from src until ctx is done, writing each
// step's command to sink. Sample errors become error steps; write errors
// are logged and dropped.
func (c *Controller) Run(ctx context.Context, src FeedbackSource, sink CommandSink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		in, err := src.Sample()
		if err != nil {
			c.ErrorStep(err.Error())
			continue
		}
		cmd := c.Step(in)
		if sink != nil {
			if err := sink.WriteCommand(cmd); err != nil {
				log.Error("command write failed", "err", err)
			}
		}
	}
}

// wrenchOKLocked reports whether motion may continue given the latest
// force/torque sample. Disarmed (empty or all-zero) thresholds always
// pass; an armed threshold with no sample stops motion.
func (c *Controller) wrenchOKLocked(wrench []float64) bool {
	if len(c.ftThreshold) != trajectory.NumJoints {
		return true
	}
	armed := false
	for _, v := range c.ftThreshold {
		if v > ftEpsilon {
			armed = true
			break
		}
	}
	if !armed {
		return true
	}
	if len(wrench) != trajectory.NumJoints {
		log.Warn("force torque data not received")
		return false
	}
	for j, limit := range c.ftThreshold {
		if limit > ftEpsilon && math.Abs(wrench[j]) > limit {
			return false
		}
	}
	return true
}

func (c *Controller) clipLocked() {
	if len(c.limitLow) != trajectory.NumJoints || len(c.limitHigh) != trajectory.NumJoints {
		return
	}
	for j := range c.cmd {
		if c.cmd[j] < c.limitLow[j] {
			c.cmd[j] = c.limitLow[j]
		}
		if c.cmd[j] > c.limitHigh[j] {
			c.cmd[j] = c.limitHigh[j]
		}
	}
}

func (c *Controller) publishLocked(now time.Time) {
	if c.pub == nil {
		return
	}
	s := State{
		Stamp:             now,
		Mode:              c.mode,
		JointNames:        trajectory.DefaultJointNames,
		JointPosition:     c.current,
		CommandPosition:   c.cmd,
		TrajectoryValid:   c.traj.TrajectoryValid(),
		TrajectoryTime:    c.traj.TrajectoryTime(),
		TrajectoryMaxTime: c.traj.TrajectoryMaxTime(),
		ErrorMsg:          c.errorMsg,
	}
	if len(c.wrench) == trajectory.NumJoints {
		s.Wrench = c.wrench
		s.WrenchValid = true
	}
	c.pub.PublishState(s)
}
