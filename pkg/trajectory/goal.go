package trajectory

import "time"

// NumJoints is the number of joints on the arm. The adapter only accepts
// goals whose joint name list matches the configured 6-name list exactly.
const NumJoints = 6

// DefaultJointNames is the joint naming used by the arm's URDF and the
// vendor controller. Order matters.
var DefaultJointNames = []string{
	"joint_1", "joint_2", "joint_3", "joint_4", "joint_5", "joint_6",
}

// Waypoint is a single trajectory sample: where every joint should be at
// TimeFromStart seconds after the trajectory begins. Positions absent
// from a JSON payload decode as zeros; the start-pose check then compares
// those zeros against the arm.
type Waypoint struct {
	TimeFromStart float64            `json:"time_from_start"`
	Positions     [NumJoints]float64 `json:"positions"`
}

// Goal is a client-submitted request to follow a joint trajectory.
// Points must be ordered by strictly increasing TimeFromStart, with the
// first point nominally at t=0.
type Goal struct {
	JointNames []string   `json:"joint_names"`
	Points     []Waypoint `json:"points"`
}

// Feedback is published to the goal handle on every joint-angle
// observation while a trajectory is active.
type Feedback struct {
	Stamp         time.Time          `json:"stamp"`
	Desired       [NumJoints]float64 `json:"desired"`
	Actual        [NumJoints]float64 `json:"actual"`
	TimeFromStart float64            `json:"time_from_start"`
}

// Result error codes.
const (
	ErrorCodeSuccessful int32 = 0
)

// Result is the terminal outcome delivered with SetSucceeded.
type Result struct {
	ErrorCode   int32  `json:"error_code"`
	ErrorString string `json:"error_string,omitempty"`
}

// GoalHandle represents one pending or active goal. It is supplied by the
// transport layer and driven through its lifecycle by the Adapter: exactly
// one terminal transition (SetRejected, SetCanceled, SetAborted or
// SetSucceeded) happens per handle. All methods must be non-blocking and
// must not call back into the Adapter.
type GoalHandle interface {
	// Goal returns the requested trajectory.
	Goal() Goal

	// SetRejected marks the goal rejected before acceptance. reason may
	// be empty.
	SetRejected(reason string)

	// SetAccepted marks the goal accepted.
	SetAccepted()

	// SetCanceled marks the goal canceled in response to a cancel request.
	SetCanceled()

	// SetAborted marks the goal aborted (tracking error, supersession or
	// explicit abort).
	SetAborted()

	// DefaultResult returns a zero-value result for this goal type.
	DefaultResult() Result

	// SetSucceeded marks the goal succeeded with the given result.
	SetSucceeded(Result)

	// PublishFeedback streams a feedback sample to the goal's client.
	PublishFeedback(Feedback)
}
