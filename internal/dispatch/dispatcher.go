package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/PhamBao-egn/BAOPHAM/internal/events"
	"github.com/PhamBao-egn/BAOPHAM/internal/log"
	"github.com/PhamBao-egn/BAOPHAM/internal/nav"
	"github.com/PhamBao-egn/BAOPHAM/internal/protocol"
	"github.com/PhamBao-egn/BAOPHAM/internal/rosbridge"
)

// ErrAlreadySubmitted is returned by a second Submit on the same Dispatcher.
var ErrAlreadySubmitted = errors.New("goal already submitted")

// Phase is the dispatcher state.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseWaitingServer
	PhasePendingAcceptance
	PhaseActive
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWaitingServer:
		return "waiting_server"
	case PhasePendingAcceptance:
		return "pending_acceptance"
	case PhaseActive:
		return "active"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Config names the action server and how long to wait for it.
type Config struct {
	Action        string
	ActionType    string
	Frame         string
	BehaviorTree  string
	ServerTimeout time.Duration
	PollInterval  time.Duration
}

// Dispatcher sends a single goal and resolves its outcome exactly once.
type Dispatcher struct {
	client  ActionClient
	cfg     Config
	hub     *events.Hub
	journal Journal
	metrics Recorder
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	submitted atomic.Bool
	phase     atomic.Int32
	outcome   atomic.Int32
	id        atomic.Pointer[string]

	once   sync.Once
	done   chan struct{}
	result nav.Result // written once before done is closed
	goalID string
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithEvents publishes lifecycle events on hub.
func WithEvents(hub *events.Hub) Option {
	return func(d *Dispatcher) { d.hub = hub }
}

// WithJournal records the goal and its outcome.
func WithJournal(j Journal) Option {
	return func(d *Dispatcher) { d.journal = j }
}

// WithMetrics reports to r.
func WithMetrics(r Recorder) Option {
	return func(d *Dispatcher) { d.metrics = r }
}

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithClock replaces time.Now, for stamps and durations.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithGoalID fixes the goal id instead of generating a UUID.
func WithGoalID(id string) Option {
	return func(d *Dispatcher) { d.newID = func() string { return id } }
}

// New creates a Dispatcher for one goal.
func New(client ActionClient, cfg Config, opts ...Option) *Dispatcher {
	if cfg.Frame == "" {
		cfg.Frame = nav.DefaultFrame
	}
	if cfg.ServerTimeout <= 0 {
		cfg.ServerTimeout = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}

	d := &Dispatcher{
		client:  client,
		cfg:     cfg,
		metrics: noopRecorder{},
		logger:  log.WithComponent("dispatch"),
		now:     time.Now,
		newID:   uuid.NewString,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit builds the pose goal and starts dispatching it in the background.
// It returns the goal id. The context governs the whole goal lifetime.
func (d *Dispatcher) Submit(ctx context.Context, x, y, z, w float64) (string, error) {
	if !d.submitted.CompareAndSwap(false, true) {
		return "", ErrAlreadySubmitted
	}

	goal := nav.NewPoseGoal(x, y, z, w, d.cfg.Frame, d.now())
	d.goalID = d.newID()
	d.id.Store(&d.goalID)
	d.result = nav.Result{GoalID: d.goalID, LastDistance: -1, Started: goal.Stamp}

	go d.run(ctx, goal)
	return d.goalID, nil
}

// Wait blocks until the outcome is resolved or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) (nav.Result, error) {
	select {
	case <-d.done:
		return d.result, nil
	case <-ctx.Done():
		return nav.Result{GoalID: d.goalID, Outcome: d.Outcome()}, ctx.Err()
	}
}

// Run is Submit followed by Wait.
func (d *Dispatcher) Run(ctx context.Context, x, y, z, w float64) (nav.Result, error) {
	if _, err := d.Submit(ctx, x, y, z, w); err != nil {
		return nav.Result{}, err
	}
	return d.Wait(ctx)
}

// Outcome returns the current outcome without blocking.
func (d *Dispatcher) Outcome() nav.Outcome {
	return nav.Outcome(d.outcome.Load())
}

// Phase returns the current state.
func (d *Dispatcher) Phase() Phase {
	return Phase(d.phase.Load())
}

// Status is a point-in-time view of the dispatcher, safe to take from any goroutine.
type Status struct {
	GoalID  string
	Phase   Phase
	Outcome nav.Outcome
}

// Status returns the goal id (empty before Submit), phase and outcome.
func (d *Dispatcher) Status() Status {
	st := Status{Phase: d.Phase(), Outcome: d.Outcome()}
	if id := d.id.Load(); id != nil {
		st.GoalID = *id
	}
	return st
}

// Done is closed once the outcome is resolved.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) run(ctx context.Context, goal nav.PoseGoal) {
	logger := d.logger.With("goal_id", d.goalID)
	d.setPhase(PhaseWaitingServer)

	logger.Info("sending goal pose", "x", goal.X, "y", goal.Y, "z", goal.Z, "w", goal.W, "frame", goal.Frame)
	d.publish(events.GoalSubmitted, events.GoalPayload{
		GoalID: d.goalID, X: goal.X, Y: goal.Y, Z: goal.Z, W: goal.W, Frame: goal.Frame,
	})
	if d.journal != nil {
		if err := d.journal.Begin(ctx, d.goalID, d.cfg.Action, goal); err != nil {
			logger.Warn("failed to record goal", "error", err)
		}
	}

	waitStart := d.now()
	err := d.client.WaitForServer(ctx, d.cfg.Action, d.cfg.ServerTimeout, d.cfg.PollInterval)
	d.metrics.ObserveServerWait(d.now().Sub(waitStart), err == nil)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("abandoned while waiting for action server", "error", ctx.Err())
			return
		}
		logger.Error("action server not available", "action", d.cfg.Action, "timeout", d.cfg.ServerTimeout, "error", err)
		d.publish(events.GoalServerUnavailable, events.GoalPayload{GoalID: d.goalID})
		d.resolve(ctx, nav.OutcomeNotReached, nav.ReasonServerUnavailable, nav.StatusUnknown, err.Error())
		return
	}

	d.setPhase(PhasePendingAcceptance)
	acc, err := d.client.SendGoal(ctx, rosbridge.GoalRequest{
		ID:         d.goalID,
		Action:     d.cfg.Action,
		ActionType: d.cfg.ActionType,
		Goal:       protocol.GoalFromPose(goal, d.cfg.BehaviorTree),
	})
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("abandoned while waiting for acceptance", "error", ctx.Err())
			return
		}
		logger.Error("failed to submit goal", "error", err)
		d.resolve(ctx, nav.OutcomeNotReached, nav.ReasonConnectionLost, nav.StatusUnknown, err.Error())
		return
	}
	if !acc.Accepted {
		logger.Info("goal rejected", "reason", acc.Reason)
		d.publish(events.GoalRejected, events.GoalPayload{GoalID: d.goalID})
		d.resolve(ctx, nav.OutcomeNotReached, nav.ReasonRejected, nav.StatusUnknown, acc.Reason)
		return
	}

	logger.Info("goal accepted")
	d.publish(events.GoalAccepted, events.GoalPayload{GoalID: d.goalID})
	d.setPhase(PhaseActive)
	d.track(ctx, logger)
}

type resultMsg struct {
	status nav.Status
	err    error
}

// track follows feedback until the result arrives.
func (d *Dispatcher) track(ctx context.Context, logger *slog.Logger) {
	results := make(chan resultMsg, 1)
	go func() {
		status, err := d.client.Result(ctx, d.goalID)
		results <- resultMsg{status: status, err: err}
	}()

	feedback := d.client.Feedback(d.goalID)
	for {
		select {
		case fb, ok := <-feedback:
			if !ok {
				feedback = nil
				continue
			}
			d.onFeedback(fb, logger)

		case r := <-results:
			d.drainFeedback(feedback, logger)
			d.onResult(ctx, r, logger)
			return

		case <-ctx.Done():
			logger.Warn("abandoned while waiting for result", "error", ctx.Err())
			return
		}
	}
}

func (d *Dispatcher) drainFeedback(feedback <-chan nav.Feedback, logger *slog.Logger) {
	if feedback == nil {
		return
	}
	for {
		select {
		case fb, ok := <-feedback:
			if !ok {
				return
			}
			d.onFeedback(fb, logger)
		default:
			return
		}
	}
}

func (d *Dispatcher) onFeedback(fb nav.Feedback, logger *slog.Logger) {
	d.result.FeedbackCount++
	d.result.LastDistance = fb.DistanceRemaining

	logger.Info("feedback",
		"distance_remaining", fmt.Sprintf("%.2f", fb.DistanceRemaining),
		"number_of_recoveries", fb.NumberOfRecoveries,
	)
	d.metrics.ObserveFeedback(fb)
	d.publish(events.GoalFeedback, events.FeedbackPayload{
		GoalID:            d.goalID,
		DistanceRemaining: fb.DistanceRemaining,
		Recoveries:        fb.NumberOfRecoveries,
	})
}

func (d *Dispatcher) onResult(ctx context.Context, r resultMsg, logger *slog.Logger) {
	if r.err != nil {
		if ctx.Err() != nil {
			logger.Warn("abandoned while waiting for result", "error", ctx.Err())
			return
		}
		reason := nav.ReasonStatus
		if errors.Is(r.err, rosbridge.ErrConnectionClosed) {
			reason = nav.ReasonConnectionLost
		}
		logger.Error("goal result unavailable", "error", r.err, "status", r.status.String())
		d.resolve(ctx, nav.OutcomeNotReached, reason, r.status, r.err.Error())
		return
	}

	outcome := nav.OutcomeForStatus(r.status)
	if outcome == nav.OutcomeReached {
		logger.Info("robot reached the goal")
		d.resolve(ctx, outcome, nav.ReasonSucceeded, r.status, "")
		return
	}
	logger.Info("navigation did not succeed", "status", r.status.String(), "status_code", int(r.status))
	d.resolve(ctx, outcome, nav.ReasonStatus, r.status, "")
}

// resolve writes the outcome. Only the first call has any effect.
func (d *Dispatcher) resolve(ctx context.Context, outcome nav.Outcome, reason nav.Reason, status nav.Status, detail string) {
	d.once.Do(func() {
		d.result.Outcome = outcome
		d.result.Reason = reason
		d.result.Status = status
		d.result.Detail = detail
		d.result.Finished = d.now()

		d.outcome.Store(int32(outcome))
		d.setPhase(PhaseDone)
		d.metrics.ObserveResult(d.result)

		if d.journal != nil {
			if err := d.journal.Finish(context.WithoutCancel(ctx), d.result); err != nil {
				d.logger.Warn("failed to record outcome", "goal_id", d.goalID, "error", err)
			}
		}
		d.publish(events.GoalResult, events.ResultPayload{
			GoalID:  d.goalID,
			Outcome: outcome.String(),
			Reason:  string(reason),
			Status:  int(status),
			Reached: outcome.Reached(),
			Detail:  detail,
		})
		close(d.done)
	})
}

func (d *Dispatcher) setPhase(p Phase) {
	d.phase.Store(int32(p))
}

func (d *Dispatcher) publish(eventType string, payload any) {
	if d.hub != nil {
		d.hub.Publish(eventType, payload)
	}
}
