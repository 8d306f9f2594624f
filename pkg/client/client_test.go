package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armkit/go-irc5/pkg/controller"
	"github.com/armkit/go-irc5/pkg/protocol"
	"github.com/armkit/go-irc5/pkg/trajectory"
)

var upgrader = websocket.Upgrader{}

func validGoal() trajectory.Goal {
	return trajectory.Goal{
		JointNames: trajectory.DefaultJointNames,
		Points: []trajectory.Waypoint{
			{TimeFromStart: 0},
			{TimeFromStart: 2, Positions: [trajectory.NumJoints]float64{0, 0, 0, 0, 0, 1}},
		},
	}
}

func TestSubmitGoal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/goal", r.URL.Path)

		var req protocol.GoalRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.ID, "client assigns the goal id")
		assert.Len(t, req.Goal.Points, 2)

		_ = json.NewEncoder(w).Encode(GoalInfo{ID: req.ID, Status: protocol.StatusActive})
	}))
	defer srv.Close()

	info, err := New(srv.URL).SubmitGoal(validGoal())
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusActive, info.Status)
	assert.NotEmpty(t, info.ID)
}

func TestSubmitGoal_RejectionIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req protocol.GoalRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(GoalInfo{
			ID:     req.ID,
			Status: protocol.StatusRejected,
			Reason: "invalid joint names",
		})
	}))
	defer srv.Close()

	info, err := New(srv.URL).SubmitGoal(validGoal())
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusRejected, info.Status)
	assert.Equal(t, "invalid joint names", info.Reason)
}

func TestCancelGoal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/goal/g1/cancel", r.URL.Path)
		_ = json.NewEncoder(w).Encode(GoalInfo{ID: "g1", Status: protocol.StatusCanceled})
	}))
	defer srv.Close()

	info, err := New(srv.URL).CancelGoal("g1")
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusCanceled, info.Status)
}

func TestSetMode(t *testing.T) {
	var got protocol.SetModeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/mode", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := New(srv.URL).SetMode(controller.ModeAutoTrajectory, 2.0, []float64{5, 5, 5, 5, 5, 5})
	require.NoError(t, err)
	assert.Equal(t, controller.ModeAutoTrajectory, got.Mode)
	assert.Equal(t, 2.0, got.SpeedScalar)
	assert.Len(t, got.FtThreshold, 6)
}

func TestSetMode_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown mode 42", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := New(srv.URL).SetMode(controller.Mode(42), 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode 42")
}

func TestState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/state", r.URL.Path)
		_ = json.NewEncoder(w).Encode(controller.State{
			Mode:            controller.ModeSharedTrajectory,
			TrajectoryValid: true,
			TrajectoryTime:  1.5,
		})
	}))
	defer srv.Close()

	st, err := New(srv.URL).State()
	require.NoError(t, err)
	assert.Equal(t, controller.ModeSharedTrajectory, st.Mode)
	assert.Equal(t, 1.5, st.TrajectoryTime)
}

func TestStreamState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ws/state", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		msg, _ := protocol.NewMessage(protocol.TypeState, protocol.StateData{})
		raw, _ := msg.Bytes()
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

		// Hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msgs, err := New(srv.URL).StreamState(ctx)
	require.NoError(t, err)

	msg := <-msgs
	require.NotNil(t, msg)
	assert.Equal(t, protocol.TypeState, msg.Type)

	cancel()
	for range msgs {
	}
}

func TestSubmitGoalAndWait(t *testing.T) {
	goalID := make(chan string, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/goal", func(w http.ResponseWriter, r *http.Request) {
		var req protocol.GoalRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		goalID <- req.ID
		_ = json.NewEncoder(w).Encode(GoalInfo{ID: req.ID, Status: protocol.StatusActive})
	})
	mux.HandleFunc("/ws/state", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		id := <-goalID
		msg, _ := protocol.NewMessage(protocol.TypeResult, protocol.GoalResult{
			ID:     id,
			Status: protocol.StatusSucceeded,
			Result: &trajectory.Result{ErrorCode: trajectory.ErrorCodeSuccessful},
		})
		raw, _ := msg.Bytes()
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := New(srv.URL).SubmitGoalAndWait(ctx, validGoal())
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusSucceeded, info.Status)
	require.NotNil(t, info.Result)
	assert.Equal(t, trajectory.ErrorCodeSuccessful, info.Result.ErrorCode)
}
