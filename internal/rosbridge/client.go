package rosbridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PhamBao-egn/BAOPHAM/internal/log"
	"github.com/PhamBao-egn/BAOPHAM/internal/nav"
	"github.com/PhamBao-egn/BAOPHAM/internal/protocol"
)

const (
	// writeTimeout bounds a single frame write.
	writeTimeout = 5 * time.Second

	// feedbackBuffer is how many feedback messages may queue before new ones are dropped.
	feedbackBuffer = 64
)

var (
	ErrServerUnavailable = errors.New("action server unavailable")
	ErrConnectionClosed  = errors.New("bridge connection closed")
	ErrGoalRejected      = errors.New("goal rejected")
	ErrActionFailed      = errors.New("action failed")
	ErrUnknownGoal       = errors.New("unknown goal")
)

// GoalRequest is one send_action_goal call.
type GoalRequest struct {
	ID         string
	Action     string
	ActionType string
	Goal       protocol.NavigateToPoseGoal
}

// Acceptance is the server's answer to a goal.
type Acceptance struct {
	GoalID   string
	Accepted bool
	Reason   string // set when rejected
}

// Options configures a Client.
type Options struct {
	URL         string
	DialTimeout time.Duration
	Logger      *slog.Logger
}

// Client is a rosbridge action client. It is safe for concurrent use.
type Client struct {
	url         string
	dialTimeout time.Duration
	logger      *slog.Logger
	seq         atomic.Int64

	mu    sync.Mutex
	sess  *session
	calls map[string]chan *protocol.Message
	goals map[string]*goal
}

type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
	err     error // valid once done is closed
}

type goal struct {
	id       string
	sess     *session
	ack      chan Acceptance
	feedback chan nav.Feedback
	result   chan *protocol.Message

	// Owned by the session reader. rejected is published through result.
	acked    bool
	finished bool
	rejected bool
}

// New creates a Client. No connection is made until it is needed.
func New(opts Options) *Client {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.WithComponent("rosbridge")
	}
	return &Client{
		url:         opts.URL,
		dialTimeout: opts.DialTimeout,
		logger:      opts.Logger,
		calls:       make(map[string]chan *protocol.Message),
		goals:       make(map[string]*goal),
	}
}

// WaitForServer blocks until action is advertised or timeout elapses.
// Dial failures and missing servers are retried every poll interval.
// On timeout the returned error wraps ErrServerUnavailable.
func (c *Client) WaitForServer(ctx context.Context, action string, timeout, poll time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := c.probe(waitCtx, action)
		if ok {
			return nil
		}
		// A check cut short by the deadline says nothing about the server.
		if err != nil && waitCtx.Err() == nil {
			lastErr = err
			c.logger.Debug("action server not available yet", "action", action, "error", err)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if lastErr == nil {
				lastErr = fmt.Errorf("%s not advertised", action)
			}
			return fmt.Errorf("%w after %v: %v", ErrServerUnavailable, timeout, lastErr)
		case <-ticker.C:
		}
	}
}

// probe reports whether action is currently served.
func (c *Client) probe(ctx context.Context, action string) (bool, error) {
	sess, err := c.session(ctx)
	if err != nil {
		return false, err
	}

	resp, err := c.callService(ctx, sess, protocol.ActionServersService)
	if err != nil {
		return false, err
	}
	if !resp.Succeeded() {
		c.logger.Warn("rosapi unavailable, treating a live bridge as server availability",
			"service", protocol.ActionServersService, "detail", resp.ValuesText())
		return true, nil
	}

	var list protocol.ActionServersResponse
	if err := protocol.DecodeValues(resp, &list); err != nil {
		return false, err
	}
	want := strings.TrimPrefix(action, "/")
	for _, name := range list.ActionServers {
		if strings.TrimPrefix(name, "/") == want {
			return true, nil
		}
	}
	return false, fmt.Errorf("%s not in advertised action servers %v", action, list.ActionServers)
}

// SendGoal submits req and waits until the server accepts or rejects it.
func (c *Client) SendGoal(ctx context.Context, req GoalRequest) (Acceptance, error) {
	sess, err := c.session(ctx)
	if err != nil {
		return Acceptance{}, err
	}

	msg, err := protocol.NewActionGoal(req.ID, req.Action, req.ActionType, req.Goal)
	if err != nil {
		return Acceptance{}, err
	}

	g := &goal{
		id:       req.ID,
		sess:     sess,
		ack:      make(chan Acceptance, 1),
		feedback: make(chan nav.Feedback, feedbackBuffer),
		result:   make(chan *protocol.Message, 1),
	}
	c.mu.Lock()
	if _, dup := c.goals[req.ID]; dup {
		c.mu.Unlock()
		return Acceptance{}, fmt.Errorf("goal %s already sent", req.ID)
	}
	c.goals[req.ID] = g
	c.mu.Unlock()

	if err := sess.write(msg); err != nil {
		return Acceptance{}, fmt.Errorf("send goal: %w", err)
	}

	select {
	case a := <-g.ack:
		return a, nil
	case <-sess.done:
		select {
		case a := <-g.ack:
			return a, nil
		default:
		}
		return Acceptance{}, fmt.Errorf("%w: %v", ErrConnectionClosed, sess.err)
	case <-ctx.Done():
		return Acceptance{}, ctx.Err()
	}
}

// Feedback returns the feedback stream of an accepted goal. The channel is
// closed once the goal finishes or the bridge connection drops.
func (c *Client) Feedback(goalID string) <-chan nav.Feedback {
	c.mu.Lock()
	g, ok := c.goals[goalID]
	c.mu.Unlock()
	if !ok {
		ch := make(chan nav.Feedback)
		close(ch)
		return ch
	}
	return g.feedback
}

// Result blocks until the goal's terminal status arrives.
// There is no timeout beyond ctx.
func (c *Client) Result(ctx context.Context, goalID string) (nav.Status, error) {
	c.mu.Lock()
	g, ok := c.goals[goalID]
	c.mu.Unlock()
	if !ok {
		return nav.StatusUnknown, fmt.Errorf("%w: %s", ErrUnknownGoal, goalID)
	}

	select {
	case msg := <-g.result:
		// Keep the result readable for repeated calls.
		g.result <- msg
		return g.status(msg)
	case <-g.sess.done:
		// The result may have raced the disconnect.
		select {
		case msg := <-g.result:
			g.result <- msg
			return g.status(msg)
		default:
		}
		return nav.StatusUnknown, fmt.Errorf("%w: %v", ErrConnectionClosed, g.sess.err)
	case <-ctx.Done():
		return nav.StatusUnknown, ctx.Err()
	}
}

func (g *goal) status(msg *protocol.Message) (nav.Status, error) {
	switch {
	case g.rejected:
		return nav.StatusUnknown, fmt.Errorf("%w: %s", ErrGoalRejected, msg.Msg)
	case msg.Op == protocol.OpStatus:
		return nav.StatusUnknown, fmt.Errorf("%w: %s", ErrActionFailed, msg.Msg)
	case !msg.Succeeded():
		return msg.GoalStatus(), fmt.Errorf("%w: %s", ErrActionFailed, msg.ValuesText())
	default:
		return msg.GoalStatus(), nil
	}
}

// Close tears down the bridge connection.
func (c *Client) Close() error {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()
	if sess == nil {
		return nil
	}
	err := sess.conn.Close()
	<-sess.done
	return err
}

// session returns the live session, dialing a new one if needed.
func (c *Client) session(ctx context.Context) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil {
		select {
		case <-c.sess.done:
			c.sess = nil
		default:
			return c.sess, nil
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	dctx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()
	conn, _, err := dialer.DialContext(dctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.logger.Debug("bridge connected", "url", c.url)

	sess := &session{conn: conn, done: make(chan struct{})}
	c.sess = sess
	go c.readLoop(sess)
	return sess, nil
}

func (c *Client) callService(ctx context.Context, sess *session, service string) (*protocol.Message, error) {
	id := fmt.Sprintf("call_service:%s:%d", service, c.seq.Add(1))
	ch := make(chan *protocol.Message, 1)

	c.mu.Lock()
	c.calls[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.calls, id)
		c.mu.Unlock()
	}()

	if err := sess.write(protocol.NewServiceCall(id, service)); err != nil {
		return nil, fmt.Errorf("call %s: %w", service, err)
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-sess.done:
		return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, sess.err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *session) write(m *protocol.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	w, err := s.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err := protocol.Encode(w, m); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// readLoop routes frames until the connection fails.
func (c *Client) readLoop(sess *session) {
	var err error
	defer func() {
		sess.err = err
		c.abandonGoals(sess)
		close(sess.done)
		_ = sess.conn.Close()
	}()

	for {
		var frame []byte
		_, frame, err = sess.conn.ReadMessage()
		if err != nil {
			c.logger.Debug("bridge read loop stopped", "error", err)
			return
		}

		msg, derr := protocol.Decode(bytes.NewReader(frame))
		if derr != nil {
			c.logger.Warn("ignoring bridge frame", "error", derr)
			continue
		}
		c.route(msg)
	}
}

func (c *Client) route(msg *protocol.Message) {
	switch msg.Op {
	case protocol.OpServiceResponse:
		c.mu.Lock()
		ch, ok := c.calls[msg.ID]
		c.mu.Unlock()
		if ok {
			select {
			case ch <- msg:
			default:
			}
		}
		return
	case protocol.OpStatus:
		if msg.ID == "" {
			c.logger.Info("bridge status", "level", msg.Level, "msg", msg.Msg)
			return
		}
	}

	c.mu.Lock()
	g, ok := c.goals[msg.ID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("frame for unknown id", "op", msg.Op, "id", msg.ID)
		return
	}
	if g.finished {
		return
	}

	switch msg.Op {
	case protocol.OpActionFeedback:
		c.acknowledge(g, true, "")
		var fb protocol.NavigateToPoseFeedback
		if err := protocol.DecodeValues(msg, &fb); err != nil {
			c.logger.Warn("bad feedback frame", "goal_id", g.id, "error", err)
			return
		}
		select {
		case g.feedback <- fb.ToFeedback():
		default:
			c.logger.Debug("feedback dropped, consumer is behind", "goal_id", g.id)
		}

	case protocol.OpActionResult:
		if !g.acked && !msg.Succeeded() {
			c.reject(g, msg.ValuesText())
			return
		}
		c.acknowledge(g, true, "")
		c.finish(g, msg)

	case protocol.OpStatus:
		if msg.Level != "error" {
			c.logger.Info("bridge status", "goal_id", g.id, "level", msg.Level, "msg", msg.Msg)
			return
		}
		if !g.acked {
			c.reject(g, msg.Msg)
			return
		}
		c.finish(g, msg)
	}
}

func (c *Client) acknowledge(g *goal, accepted bool, reason string) {
	if g.acked {
		return
	}
	g.acked = true
	g.ack <- Acceptance{GoalID: g.id, Accepted: accepted, Reason: reason}
}

func (c *Client) reject(g *goal, reason string) {
	c.acknowledge(g, false, reason)
	g.rejected = true
	c.finish(g, &protocol.Message{Op: protocol.OpStatus, ID: g.id, Level: "error", Msg: reason})
}

func (c *Client) finish(g *goal, msg *protocol.Message) {
	g.result <- msg
	g.finished = true
	close(g.feedback)
}

// abandonGoals closes the feedback streams of goals still running on sess.
func (c *Client) abandonGoals(sess *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range c.goals {
		if g.sess == sess && !g.finished {
			g.finished = true
			close(g.feedback)
		}
	}
}
