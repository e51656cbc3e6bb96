// Package nav holds the navigation goal domain: the pose goal that is sent to
// the action server, the terminal status codes it answers with, and the
// tri-state outcome a dispatcher resolves exactly once.
package nav

import (
	"fmt"
	"time"
)

// DefaultFrame is the global frame goals are expressed in.
const DefaultFrame = "map"

// PoseGoal is a navigation target. It is immutable once submitted.
type PoseGoal struct {
	X, Y, Z float64
	// W is the quaternion scalar; the vector part of the orientation is zero.
	W     float64
	Frame string
	Stamp time.Time
}

// NewPoseGoal builds a goal in frame with the stamp taken from now.
func NewPoseGoal(x, y, z, w float64, frame string, now time.Time) PoseGoal {
	if frame == "" {
		frame = DefaultFrame
	}
	return PoseGoal{X: x, Y: y, Z: z, W: w, Frame: frame, Stamp: now}
}

func (g PoseGoal) String() string {
	return fmt.Sprintf("x=%g, y=%g, z=%g, w=%g", g.X, g.Y, g.Z, g.W)
}

// Status is an action_msgs/GoalStatus code.
type Status int8

const (
	StatusUnknown   Status = 0
	StatusAccepted  Status = 1
	StatusExecuting Status = 2
	StatusCanceling Status = 3
	StatusSucceeded Status = 4
	StatusCanceled  Status = 5
	StatusAborted   Status = 6
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusAccepted:
		return "accepted"
	case StatusExecuting:
		return "executing"
	case StatusCanceling:
		return "canceling"
	case StatusSucceeded:
		return "succeeded"
	case StatusCanceled:
		return "canceled"
	case StatusAborted:
		return "aborted"
	default:
		return fmt.Sprintf("status(%d)", int8(s))
	}
}

// Terminal reports whether no further transitions follow s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusCanceled || s == StatusAborted
}

// Outcome is the tri-state result of one goal submission.
type Outcome int32

const (
	OutcomeUnknown Outcome = iota
	OutcomeReached
	OutcomeNotReached
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReached:
		return "reached"
	case OutcomeNotReached:
		return "not_reached"
	default:
		return "unknown"
	}
}

// Reached is the boolean printed to the caller. Unknown counts as false.
func (o Outcome) Reached() bool {
	return o == OutcomeReached
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) Outcome {
	switch s {
	case "reached":
		return OutcomeReached
	case "not_reached":
		return OutcomeNotReached
	default:
		return OutcomeUnknown
	}
}

// Reason says which terminal branch resolved the outcome. The caller only
// ever sees the boolean; the reason feeds logs, events and the journal.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonSucceeded         Reason = "succeeded"
	ReasonServerUnavailable Reason = "server_unavailable"
	ReasonRejected          Reason = "rejected"
	ReasonStatus            Reason = "terminal_status"
	ReasonConnectionLost    Reason = "connection_lost"
)

// OutcomeForStatus maps a terminal status code onto an outcome.
func OutcomeForStatus(s Status) Outcome {
	if s == StatusSucceeded {
		return OutcomeReached
	}
	return OutcomeNotReached
}

// Feedback is one progress update for an active goal.
type Feedback struct {
	DistanceRemaining      float64
	NavigationTime         time.Duration
	EstimatedTimeRemaining time.Duration
	NumberOfRecoveries     int
}

// Result is the resolved state of one goal submission.
type Result struct {
	GoalID        string
	Outcome       Outcome
	Reason        Reason
	Status        Status
	Detail        string
	FeedbackCount int
	// LastDistance is the last distance_remaining seen, or -1 without feedback.
	LastDistance float64
	Started      time.Time
	Finished     time.Time
}

// Duration is the time from submission to resolution.
func (r Result) Duration() time.Duration {
	if r.Finished.IsZero() || r.Started.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
