// Package client is the commander SDK for an armctl controller: submit
// and cancel trajectory goals, switch controller modes, and stream
// controller state over WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/armkit/go-irc5/internal/httpc"
	"github.com/armkit/go-irc5/pkg/controller"
	"github.com/armkit/go-irc5/pkg/protocol"
	"github.com/armkit/go-irc5/pkg/trajectory"
)

// GoalInfo is the client-side view of a goal's lifecycle.
type GoalInfo struct {
	ID     string              `json:"id"`
	Status protocol.GoalStatus `json:"status"`
	Reason string              `json:"reason,omitempty"`
	Result *trajectory.Result  `json:"result,omitempty"`
}

// Client talks to one armctl controller.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the controller at baseURL,
// e.g. "http://127.0.0.1:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpc.Client,
	}
}

// SubmitGoal submits a trajectory goal and returns its assigned ID and
// the accept/reject decision. A rejected goal is not an error; check
// Status.
func (c *Client) SubmitGoal(goal trajectory.Goal) (GoalInfo, error) {
	req := protocol.GoalRequest{ID: uuid.NewString(), Goal: goal}
	var info GoalInfo
	if err := c.postJSON("/api/goal", req, &info); err != nil {
		return GoalInfo{}, fmt.Errorf("submit goal: %w", err)
	}
	return info, nil
}

// Goal polls the lifecycle state of a goal.
func (c *Client) Goal(id string) (GoalInfo, error) {
	var info GoalInfo
	if err := c.getJSON("/api/goal/"+id, &info); err != nil {
		return GoalInfo{}, fmt.Errorf("get goal %s: %w", id, err)
	}
	return info, nil
}

// CancelGoal cancels a goal and returns its resulting state.
func (c *Client) CancelGoal(id string) (GoalInfo, error) {
	var info GoalInfo
	if err := c.postJSON("/api/goal/"+id+"/cancel", nil, &info); err != nil {
		return GoalInfo{}, fmt.Errorf("cancel goal %s: %w", id, err)
	}
	return info, nil
}

// SetMode switches the controller mode.
func (c *Client) SetMode(mode controller.Mode, speedScalar float64, ftThreshold []float64) error {
	req := protocol.SetModeRequest{
		Mode:        mode,
		SpeedScalar: speedScalar,
		FtThreshold: ftThreshold,
	}
	if err := c.postJSON("/api/mode", req, nil); err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	return nil
}

// State returns the latest controller state snapshot.
func (c *Client) State() (controller.State, error) {
	var st controller.State
	if err := c.getJSON("/api/state", &st); err != nil {
		return controller.State{}, fmt.Errorf("get state: %w", err)
	}
	return st, nil
}

// StreamState subscribes to the controller's broadcast stream. The
// returned channel delivers state, feedback and result messages until
// ctx is done or the connection drops, then closes.
func (c *Client) StreamState(ctx context.Context) (<-chan *protocol.Message, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws/state"
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	ch := make(chan *protocol.Message, 64)
	go func() {
		defer close(ch)
		defer conn.Close()
		go func() {
			<-ctx.Done()
			conn.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				continue
			}
			select {
			case ch <- msg:
			default:
				// Slow consumer, drop
			}
		}
	}()
	return ch, nil
}

// SubmitGoalAndWait submits a goal and blocks until it reaches a
// terminal state or ctx expires.
func (c *Client) SubmitGoalAndWait(ctx context.Context, goal trajectory.Goal) (GoalInfo, error) {
	msgs, err := c.StreamState(ctx)
	if err != nil {
		return GoalInfo{}, err
	}

	info, err := c.SubmitGoal(goal)
	if err != nil {
		return GoalInfo{}, err
	}
	if info.Status.Terminal() {
		return info, nil
	}

	for {
		select {
		case <-ctx.Done():
			return info, ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				// Stream dropped; fall back to a poll.
				return c.Goal(info.ID)
			}
			if msg.Type != protocol.TypeResult {
				continue
			}
			var res protocol.GoalResult
			if err := msg.ParseData(&res); err != nil || res.ID != info.ID {
				continue
			}
			return GoalInfo{
				ID:     res.ID,
				Status: res.Status,
				Result: res.Result,
			}, nil
		}
	}
}

func (c *Client) getJSON(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (c *Client) postJSON(path string, body, out any) error {
	data := []byte("{}")
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
