package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/armkit/go-irc5/pkg/protocol"
	"github.com/armkit/go-irc5/pkg/rapid"
	"github.com/armkit/go-irc5/pkg/trajectory"
)

// goalResponse is the REST view of a goal's lifecycle.
type goalResponse struct {
	ID     string              `json:"id"`
	Status protocol.GoalStatus `json:"status"`
	Reason string              `json:"reason,omitempty"`
	Result *trajectory.Result  `json:"result,omitempty"`
}

func (s *Server) handleSubmitGoal(c *fiber.Ctx) error {
	var req protocol.GoalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid goal request")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	rec := newGoalRecord(req.ID, req.Goal, s.stateHub)

	s.mu.Lock()
	if _, exists := s.goals[req.ID]; exists {
		s.mu.Unlock()
		return fiber.NewError(fiber.StatusConflict, "goal id already used")
	}
	s.goals[req.ID] = rec
	s.mu.Unlock()

	// Synchronous: on return the goal is either rejected or active.
	s.ctrl.Trajectory().SubmitGoal(rec)

	status, reason, result := rec.snapshot()
	return c.JSON(goalResponse{ID: req.ID, Status: status, Reason: reason, Result: result})
}

func (s *Server) handleGetGoal(c *fiber.Ctx) error {
	s.mu.Lock()
	rec, ok := s.goals[c.Params("id")]
	s.mu.Unlock()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown goal")
	}

	status, reason, result := rec.snapshot()
	return c.JSON(goalResponse{ID: rec.id, Status: status, Reason: reason, Result: result})
}

func (s *Server) handleCancelGoal(c *fiber.Ctx) error {
	s.mu.Lock()
	rec, ok := s.goals[c.Params("id")]
	s.mu.Unlock()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown goal")
	}

	// The follower only ever tracks one goal, so a cancel for a goal
	// that already finished must not reach it: resetting there would
	// tear down whatever goal is active now.
	if status, reason, result := rec.snapshot(); status.Terminal() {
		return c.JSON(goalResponse{ID: rec.id, Status: status, Reason: reason, Result: result})
	}

	s.ctrl.Trajectory().CancelGoal(rec)

	status, reason, result := rec.snapshot()
	return c.JSON(goalResponse{ID: rec.id, Status: status, Reason: reason, Result: result})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	s.mu.Lock()
	st, ok := s.lastState, s.haveState
	s.mu.Unlock()
	if !ok {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no state received yet")
	}
	return c.JSON(st)
}

func (s *Server) handleSetMode(c *fiber.Ctx) error {
	var req protocol.SetModeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid mode request")
	}
	if err := s.ctrl.SetMode(req.Mode, req.SpeedScalar, req.FtThreshold); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---------------------------------------------------------------------------
// RAPID proxies: no logic, forward and wrap.
// ---------------------------------------------------------------------------

func (s *Server) rapidClient() (*rapid.Client, error) {
	if s.rapid == nil {
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, "no vendor controller configured")
	}
	return s.rapid, nil
}

func (s *Server) handleRapidStatus(c *fiber.Ctx) error {
	rc, err := s.rapidClient()
	if err != nil {
		return err
	}
	status, err := rc.Status()
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(status)
}

func (s *Server) handleRapidStart(c *fiber.Ctx) error {
	rc, err := s.rapidClient()
	if err != nil {
		return err
	}
	var req struct {
		Cycle   string `json:"cycle"`
		ResetPP bool   `json:"reset_pp"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid start request")
	}
	if err := rc.Start(req.Cycle, req.ResetPP); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleRapidStop(c *fiber.Ctx) error {
	rc, err := s.rapidClient()
	if err != nil {
		return err
	}
	if err := rc.Stop(); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleRapidGetIO(c *fiber.Ctx) error {
	rc, err := s.rapidClient()
	if err != nil {
		return err
	}
	value, err := rc.GetDigitalIO(c.Params("signal"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"signal": c.Params("signal"), "lvalue": value})
}

func (s *Server) handleRapidSetIO(c *fiber.Ctx) error {
	rc, err := s.rapidClient()
	if err != nil {
		return err
	}
	var req struct {
		LValue int `json:"lvalue"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid io request")
	}
	if err := rc.SetDigitalIO(c.Params("signal"), req.LValue); err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleRapidEvents(c *fiber.Ctx) error {
	rc, err := s.rapidClient()
	if err != nil {
		return err
	}
	msgs, err := rc.ReadEventLog()
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"messages": msgs})
}
