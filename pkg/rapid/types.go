package rapid

import "time"

// Execution cycle values accepted by Start.
const (
	CycleAsIs    = "asis"
	CycleOnce    = "once"
	CycleForever = "forever"
)

// Status is a snapshot of the RAPID program and controller state.
type Status struct {
	Running   bool   `json:"running"`
	Cycle     string `json:"cycle"`
	OpMode    string `json:"opmode"`
	CtrlState string `json:"ctrlstate"`
}

// EventLogMessage is one entry from the controller's event log.
type EventLogMessage struct {
	MsgType   int       `json:"msgtype"`
	Code      int       `json:"code"`
	Timestamp time.Time `json:"tstamp"`
	Args      []string  `json:"args,omitempty"`
	Title     string    `json:"title"`
	Desc      string    `json:"desc"`
	Conseqs   string    `json:"conseqs"`
	Causes    string    `json:"causes"`
	Actions   string    `json:"actions"`
}

// executionState mirrors the shim's execution resource.
type executionState struct {
	CtrlExecState string `json:"ctrlexecstate"`
	Cycle         string `json:"cycle"`
}
