// Package sim serves a rosbridge-compatible navigation action server that
// drives a goal through a scripted scenario. It backs the transport tests and
// the `navgoal sim` command for running without a robot.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/PhamBao-egn/BAOPHAM/internal/nav"
	"github.com/PhamBao-egn/BAOPHAM/internal/protocol"
)

// Scenario scripts how the simulated server treats every goal.
type Scenario struct {
	ActionName string
	// Unavailable leaves the action out of /rosapi/action_servers.
	Unavailable bool
	// NoRosapi answers /rosapi/action_servers with result=false.
	NoRosapi bool
	Reject   bool
	// FinalStatus defaults to succeeded.
	FinalStatus   nav.Status
	FeedbackSteps int
	StepInterval  time.Duration
	// StartDistance defaults to the planar distance from the origin to the goal.
	StartDistance float64
	// DropAfterFeedback closes the connection after the first feedback frame.
	DropAfterFeedback bool
}

// DefaultScenario accepts every goal and reaches it after a few feedback steps.
func DefaultScenario() Scenario {
	return Scenario{
		ActionName:    "/navigate_to_pose",
		FinalStatus:   nav.StatusSucceeded,
		FeedbackSteps: 5,
		StepInterval:  200 * time.Millisecond,
	}
}

// Server is the simulated action server.
type Server struct {
	scenario Scenario
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	goals []nav.PoseGoal
}

// New creates a simulator for sc.
func New(sc Scenario, logger *slog.Logger) *Server {
	if sc.ActionName == "" {
		sc.ActionName = "/navigate_to_pose"
	}
	if sc.FinalStatus == nav.StatusUnknown {
		sc.FinalStatus = nav.StatusSucceeded
	}
	if sc.FeedbackSteps < 0 {
		sc.FeedbackSteps = 0
	}
	return &Server{
		scenario: sc,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Goals returns every goal received so far.
func (s *Server) Goals() []nav.PoseGoal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]nav.PoseGoal(nil), s.goals...)
}

// Handler returns the HTTP handler: the bridge websocket on / and /healthz.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleBridge)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"action": s.scenario.ActionName,
			"goals":  len(s.Goals()),
		})
	})
	return r
}

// Start serves on listen until ctx is cancelled.
func (s *Server) Start(ctx context.Context, listen string) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("simulator listening", "listen", listen, "action", s.scenario.ActionName)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Hijacked websocket connections are not tracked by Shutdown.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("simulator shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("simulator error: %w", err)
	}
}

type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *conn) send(m *protocol.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	w, err := c.ws.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err := protocol.Encode(w, m); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &conn{ws: ws}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		_ = ws.Close()
	}()

	for {
		_, rd, err := ws.NextReader()
		if err != nil {
			return
		}
		msg, err := protocol.Decode(rd)
		if err != nil {
			s.logger.Warn("bad client frame", "error", err)
			continue
		}

		switch msg.Op {
		case protocol.OpCallService:
			if err := c.send(s.serviceResponse(msg)); err != nil {
				return
			}
		case protocol.OpSendActionGoal:
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.runGoal(ctx, c, msg)
			}()
		case protocol.OpCancelActionGoal:
			s.logger.Info("cancel requested", "id", msg.ID)
		}
	}
}

func (s *Server) serviceResponse(req *protocol.Message) *protocol.Message {
	ok := true
	resp := &protocol.Message{
		Op:      protocol.OpServiceResponse,
		ID:      req.ID,
		Service: req.Service,
		Result:  &ok,
	}

	if req.Service != protocol.ActionServersService || s.scenario.NoRosapi {
		failed := false
		resp.Result = &failed
		resp.Values, _ = json.Marshal(fmt.Sprintf("Service %s does not exist", req.Service))
		return resp
	}

	servers := []string{}
	if !s.scenario.Unavailable {
		servers = append(servers, s.scenario.ActionName)
	}
	resp.Values, _ = json.Marshal(protocol.ActionServersResponse{ActionServers: servers})
	return resp
}

func (s *Server) runGoal(ctx context.Context, c *conn, msg *protocol.Message) {
	sc := s.scenario

	fail := func(text string) {
		failed := false
		values, _ := json.Marshal(text)
		_ = c.send(&protocol.Message{
			Op:     protocol.OpActionResult,
			ID:     msg.ID,
			Action: msg.Action,
			Values: values,
			Result: &failed,
		})
	}

	if strings.TrimPrefix(msg.Action, "/") != strings.TrimPrefix(sc.ActionName, "/") || sc.Unavailable {
		fail(fmt.Sprintf("Action %s is not available", msg.Action))
		return
	}

	var goal protocol.NavigateToPoseGoal
	if err := json.Unmarshal(msg.Args, &goal); err != nil {
		fail(fmt.Sprintf("invalid goal: %v", err))
		return
	}
	pose := protocol.PoseFromGoal(goal)
	s.mu.Lock()
	s.goals = append(s.goals, pose)
	s.mu.Unlock()
	s.logger.Info("goal received", "id", msg.ID, "x", pose.X, "y", pose.Y, "frame", pose.Frame)

	if sc.Reject {
		fail("Action goal was rejected")
		return
	}

	start := sc.StartDistance
	if start <= 0 {
		start = math.Hypot(pose.X, pose.Y)
	}

	began := time.Now()
	for i := 0; i < sc.FeedbackSteps; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(sc.StepInterval):
		}

		remaining := start * float64(sc.FeedbackSteps-i-1) / float64(sc.FeedbackSteps)
		fb := protocol.NavigateToPoseFeedback{
			CurrentPose:            goal.Pose,
			NavigationTime:         protocol.DurationFrom(time.Since(began)),
			EstimatedTimeRemaining: protocol.DurationFrom(time.Duration(sc.FeedbackSteps-i-1) * sc.StepInterval),
			DistanceRemaining:      remaining,
		}
		values, _ := json.Marshal(fb)
		if err := c.send(&protocol.Message{
			Op:     protocol.OpActionFeedback,
			ID:     msg.ID,
			Action: msg.Action,
			Values: values,
		}); err != nil {
			return
		}

		if sc.DropAfterFeedback {
			_ = c.ws.Close()
			return
		}
	}

	ok := true
	status := int8(sc.FinalStatus)
	_ = c.send(&protocol.Message{
		Op:     protocol.OpActionResult,
		ID:     msg.ID,
		Action: msg.Action,
		Values: json.RawMessage(`{}`),
		Status: &status,
		Result: &ok,
	})
}
