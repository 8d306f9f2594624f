// Package protocol defines the JSON message types carried between the
// arm controller and its commander/dashboard clients, over WebSocket and
// REST.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/armkit/go-irc5/pkg/controller"
	"github.com/armkit/go-irc5/pkg/trajectory"
)

// MessageType identifies the type of message.
type MessageType string

const (
	// Client → controller messages
	TypeGoal       MessageType = "goal"        // Submit a trajectory goal
	TypeCancel     MessageType = "cancel"      // Cancel a goal
	TypeSetMode    MessageType = "set_mode"    // Switch controller mode
	TypeJointState MessageType = "joint_state" // Feedback-side joint report

	// Controller → client messages
	TypeGoalAck  MessageType = "goal_ack" // Accept/reject decision
	TypeFeedback MessageType = "feedback" // Trajectory execution feedback
	TypeResult   MessageType = "result"   // Terminal goal outcome
	TypeState    MessageType = "state"    // Controller state snapshot

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all messages.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct.
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// GoalStatus is the lifecycle state of a goal as seen by clients.
type GoalStatus string

const (
	StatusPending   GoalStatus = "pending"
	StatusActive    GoalStatus = "active"
	StatusSucceeded GoalStatus = "succeeded"
	StatusAborted   GoalStatus = "aborted"
	StatusCanceled  GoalStatus = "canceled"
	StatusRejected  GoalStatus = "rejected"
)

// Terminal reports whether the status is final.
func (s GoalStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusAborted, StatusCanceled, StatusRejected:
		return true
	}
	return false
}

// =============================================================================
// Client → Controller
// =============================================================================

// GoalRequest submits a trajectory goal. ID is assigned by the client
// (a UUID string) and echoed on every message about this goal.
type GoalRequest struct {
	ID   string          `json:"id"`
	Goal trajectory.Goal `json:"goal"`
}

// CancelRequest cancels the identified goal.
type CancelRequest struct {
	ID string `json:"id"`
}

// SetModeRequest switches the controller mode.
type SetModeRequest struct {
	Mode        controller.Mode `json:"mode"`
	SpeedScalar float64         `json:"speed_scalar"`
	FtThreshold []float64       `json:"force_torque_stop_threshold,omitempty"`
}

// JointStateReport feeds the controller one step's feedback from an
// external source over the state socket, in place of the loopback
// simulation.
type JointStateReport struct {
	JointAngles   [trajectory.NumJoints]float64  `json:"joint_angles"`
	JointCmdVel   *[trajectory.NumJoints]float64 `json:"joint_cmd_vel,omitempty"`
	TrajectoryVel float64                        `json:"trajectory_vel,omitempty"`
	Halt          bool                           `json:"halt,omitempty"`
	Wrench        []float64                      `json:"ft_wrench,omitempty"`
}

// =============================================================================
// Controller → Client
// =============================================================================

// GoalAck reports the accept/reject decision for a submitted goal.
// Reason may be empty even on rejection.
type GoalAck struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// FeedbackData streams execution feedback for an active goal.
type FeedbackData struct {
	ID       string              `json:"id"`
	Feedback trajectory.Feedback `json:"feedback"`
}

// GoalResult reports a goal's terminal outcome.
type GoalResult struct {
	ID     string             `json:"id"`
	Status GoalStatus         `json:"status"`
	Result *trajectory.Result `json:"result,omitempty"`
}

// StateData wraps a controller state snapshot.
type StateData struct {
	State controller.State `json:"state"`
}

// =============================================================================
// Bidirectional
// =============================================================================

// PingData contains ping information.
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains the pong response.
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
