package controller

import (
	"time"

	"github.com/armkit/go-irc5/pkg/trajectory"
)

// Mode selects how the controller produces command joint angles each step.
type Mode int

const (
	// ModeHalt holds the current position and aborts any active
	// trajectory.
	ModeHalt Mode = iota
	// ModeJointTeleop integrates operator joint velocities.
	ModeJointTeleop
	// ModeSharedTrajectory advances the active trajectory at an
	// operator-commanded speed.
	ModeSharedTrajectory
	// ModeAutoTrajectory advances the active trajectory at the nominal
	// rate.
	ModeAutoTrajectory
)

// String returns the mode name for logs and wire messages.
func (m Mode) String() string {
	switch m {
	case ModeHalt:
		return "halt"
	case ModeJointTeleop:
		return "joint_teleop"
	case ModeSharedTrajectory:
		return "shared_trajectory"
	case ModeAutoTrajectory:
		return "auto_trajectory"
	default:
		return "unknown"
	}
}

// StepInput is one control-step sample delivered by the feedback source.
type StepInput struct {
	// JointAngles is the measured arm position.
	JointAngles [trajectory.NumJoints]float64
	// JointCmdVel is the operator joint velocity command, used in
	// ModeJointTeleop. Nil when absent.
	JointCmdVel *[trajectory.NumJoints]float64
	// TrajectoryVel scales trajectory progress in ModeSharedTrajectory.
	TrajectoryVel float64
	// Halt forces ModeHalt before anything else this step.
	Halt bool
	// Wrench is an optional 6-element force/torque sample checked
	// against the configured stop threshold.
	Wrench []float64
}

// State is the snapshot published after every step.
type State struct {
	Stamp             time.Time                     `json:"stamp"`
	Mode              Mode                          `json:"mode"`
	JointNames        []string                      `json:"joint_names"`
	JointPosition     [trajectory.NumJoints]float64 `json:"joint_position"`
	CommandPosition   [trajectory.NumJoints]float64 `json:"joint_command_position"`
	Wrench            []float64                     `json:"ft_wrench,omitempty"`
	WrenchValid       bool                          `json:"ft_wrench_valid"`
	TrajectoryValid   bool                          `json:"trajectory_valid"`
	TrajectoryTime    float64                       `json:"trajectory_time"`
	TrajectoryMaxTime float64                       `json:"trajectory_max_time"`
	ErrorMsg          string                        `json:"error_msg,omitempty"`
}

// StatePublisher receives state snapshots. Implementations must not block
// and must not call back into the Controller.
type StatePublisher interface {
	PublishState(State)
}

// FeedbackSource delivers per-step samples from the arm.
type FeedbackSource interface {
	// Sample blocks until the next sample or an error. An error step
	// clears the command output and is reported in the published state.
	Sample() (StepInput, error)
}

// CommandSink receives the command joint angles produced each step.
type CommandSink interface {
	WriteCommand([trajectory.NumJoints]float64) error
}
