// Package web exposes the arm controller over REST and WebSocket: goal
// submission and cancellation, controller mode and state, and proxies
// for the vendor controller's RAPID service.
package web

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/armkit/go-irc5/pkg/controller"
	"github.com/armkit/go-irc5/pkg/hub"
	"github.com/armkit/go-irc5/pkg/protocol"
	"github.com/armkit/go-irc5/pkg/rapid"
)

// stateBroadcastInterval throttles state fan-out so a fast control loop
// does not flood websocket clients.
const stateBroadcastInterval = 100 * time.Millisecond

// Server is the armctl API server. It also implements
// controller.StatePublisher so the control loop can hand it state
// snapshots directly.
type Server struct {
	app  *fiber.App
	port int

	ctrl  *controller.Controller
	rapid *rapid.Client

	stateHub *hub.Hub

	mu            sync.Mutex
	goals         map[string]*goalRecord
	lastState     controller.State
	haveState     bool
	lastBroadcast time.Time
}

// NewServer creates the API server around a controller and a RAPID
// client. rapidClient may be nil when no vendor controller is reachable;
// the rapid routes then answer 503.
func NewServer(port int, ctrl *controller.Controller, rapidClient *rapid.Client) *Server {
	s := &Server{
		port:     port,
		ctrl:     ctrl,
		rapid:    rapidClient,
		stateHub: hub.New("state"),
		goals:    make(map[string]*goalRecord),
	}

	app := fiber.New(fiber.Config{
		AppName:               "armctl",
		DisableStartupMessage: true,
	})

	// CORS for the dashboard during development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Post("/mode", s.handleSetMode)
	api.Post("/goal", s.handleSubmitGoal)
	api.Get("/goal/:id", s.handleGetGoal)
	api.Post("/goal/:id/cancel", s.handleCancelGoal)

	api.Get("/rapid/status", s.handleRapidStatus)
	api.Post("/rapid/start", s.handleRapidStart)
	api.Post("/rapid/stop", s.handleRapidStop)
	api.Get("/rapid/io/:signal", s.handleRapidGetIO)
	api.Post("/rapid/io/:signal", s.handleRapidSetIO)
	api.Get("/rapid/events", s.handleRapidEvents)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))

	s.app = app
	return s
}

// Start runs the server. Blocks until Shutdown.
func (s *Server) Start() error {
	go s.stateHub.Run()
	return s.app.Listen(fmt.Sprintf(":%d", s.port))
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// PublishState implements controller.StatePublisher. The latest snapshot
// is retained for GET /api/state; fan-out to websocket clients is
// throttled.
func (s *Server) PublishState(st controller.State) {
	s.mu.Lock()
	s.lastState = st
	s.haveState = true
	due := time.Since(s.lastBroadcast) >= stateBroadcastInterval
	if due {
		s.lastBroadcast = time.Now()
	}
	s.mu.Unlock()

	if due {
		s.stateHub.BroadcastMessage(protocol.TypeState, protocol.StateData{State: st})
	}
}

// handleStateWS serves the state/feedback broadcast stream. Inbound
// messages carry pings and, for externally fed arms, joint-state
// reports; commands go through REST.
func (s *Server) handleStateWS(c *websocket.Conn) {
	client := hub.NewClient(s.stateHub, c)
	client.OnMessage = func(data []byte) {
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			return
		}
		switch msg.Type {
		case protocol.TypePing:
			var ping protocol.PingData
			if err := msg.ParseData(&ping); err != nil {
				return
			}
			now := time.Now().UnixMilli()
			s.stateHub.BroadcastMessage(protocol.TypePong, protocol.PongData{
				ID:        ping.ID,
				PingTS:    ping.Timestamp,
				PongTS:    now,
				LatencyMs: now - ping.Timestamp,
			})

		case protocol.TypeJointState:
			var report protocol.JointStateReport
			if err := msg.ParseData(&report); err != nil {
				return
			}
			s.ctrl.Step(controller.StepInput{
				JointAngles:   report.JointAngles,
				JointCmdVel:   report.JointCmdVel,
				TrajectoryVel: report.TrajectoryVel,
				Halt:          report.Halt,
				Wrench:        report.Wrench,
			})
		}
	}
	client.Run()
}
