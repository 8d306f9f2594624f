package web

import (
	"sync"

	"github.com/armkit/go-irc5/internal/log"
	"github.com/armkit/go-irc5/pkg/hub"
	"github.com/armkit/go-irc5/pkg/protocol"
	"github.com/armkit/go-irc5/pkg/trajectory"
)

// goalRecord is the transport-side trajectory.GoalHandle: the adapter
// drives it through its lifecycle, and every transition is broadcast on
// the state hub and retained for REST polling. Transitions after the
// first terminal one are ignored.
type goalRecord struct {
	id   string
	goal trajectory.Goal
	hub  *hub.Hub

	mu     sync.Mutex
	status protocol.GoalStatus
	reason string
	result *trajectory.Result
}

var _ trajectory.GoalHandle = (*goalRecord)(nil)

func newGoalRecord(id string, goal trajectory.Goal, h *hub.Hub) *goalRecord {
	return &goalRecord{
		id:     id,
		goal:   goal,
		hub:    h,
		status: protocol.StatusPending,
	}
}

func (g *goalRecord) Goal() trajectory.Goal { return g.goal }

func (g *goalRecord) SetRejected(reason string) {
	g.mu.Lock()
	if g.status.Terminal() {
		g.mu.Unlock()
		return
	}
	g.status = protocol.StatusRejected
	g.reason = reason
	g.mu.Unlock()

	g.hub.BroadcastMessage(protocol.TypeGoalAck, protocol.GoalAck{
		ID:       g.id,
		Accepted: false,
		Reason:   reason,
	})
}

func (g *goalRecord) SetAccepted() {
	g.mu.Lock()
	if g.status.Terminal() {
		g.mu.Unlock()
		return
	}
	g.status = protocol.StatusActive
	g.mu.Unlock()

	g.hub.BroadcastMessage(protocol.TypeGoalAck, protocol.GoalAck{
		ID:       g.id,
		Accepted: true,
	})
}

func (g *goalRecord) SetCanceled() { g.finish(protocol.StatusCanceled, nil) }

func (g *goalRecord) SetAborted() { g.finish(protocol.StatusAborted, nil) }

func (g *goalRecord) DefaultResult() trajectory.Result { return trajectory.Result{} }

func (g *goalRecord) SetSucceeded(res trajectory.Result) {
	g.finish(protocol.StatusSucceeded, &res)
}

func (g *goalRecord) PublishFeedback(fb trajectory.Feedback) {
	g.hub.BroadcastMessage(protocol.TypeFeedback, protocol.FeedbackData{
		ID:       g.id,
		Feedback: fb,
	})
}

func (g *goalRecord) snapshot() (protocol.GoalStatus, string, *trajectory.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status, g.reason, g.result
}

func (g *goalRecord) finish(status protocol.GoalStatus, res *trajectory.Result) {
	g.mu.Lock()
	if g.status.Terminal() {
		g.mu.Unlock()
		return
	}
	g.status = status
	g.result = res
	g.mu.Unlock()

	log.Info("goal finished", "id", g.id, "status", string(status))
	g.hub.BroadcastMessage(protocol.TypeResult, protocol.GoalResult{
		ID:     g.id,
		Status: status,
		Result: res,
	})
}
