package protocol

import (
	"encoding/json"
	"time"

	"github.com/PhamBao-egn/BAOPHAM/internal/nav"
)

// Op names of the rosbridge v2 protocol used by the action client.
const (
	OpCallService      = "call_service"
	OpServiceResponse  = "service_response"
	OpSendActionGoal   = "send_action_goal"
	OpActionFeedback   = "action_feedback"
	OpActionResult     = "action_result"
	OpCancelActionGoal = "cancel_action_goal"
	OpStatus           = "status"
)

// ActionServersService lists the action servers currently advertised.
const ActionServersService = "/rosapi/action_servers"

// Message is the rosbridge envelope. Only the fields relevant to Op are set.
type Message struct {
	Op         string          `json:"op"`
	ID         string          `json:"id,omitempty"`
	Service    string          `json:"service,omitempty"`
	Action     string          `json:"action,omitempty"`
	ActionType string          `json:"action_type,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Values     json.RawMessage `json:"values,omitempty"`
	Result     *bool           `json:"result,omitempty"`
	Status     *int8           `json:"status,omitempty"`
	Feedback   bool            `json:"feedback,omitempty"`
	Level      string          `json:"level,omitempty"` // status op only: info | warning | error
	Msg        string          `json:"msg,omitempty"`
}

// Succeeded reports whether a service_response or action_result carries result=true.
func (m *Message) Succeeded() bool {
	return m.Result != nil && *m.Result
}

// GoalStatus returns the terminal status of an action_result, or unknown if absent.
func (m *Message) GoalStatus() nav.Status {
	if m.Status == nil {
		return nav.StatusUnknown
	}
	return nav.Status(*m.Status)
}

// ValuesText returns Values as a plain string when the bridge sent an error text
// instead of an object, or the raw JSON otherwise.
func (m *Message) ValuesText() string {
	var s string
	if err := json.Unmarshal(m.Values, &s); err == nil {
		return s
	}
	return string(m.Values)
}

// Time is builtin_interfaces/Time.
type Time struct {
	Sec     int32  `json:"sec"`
	Nanosec uint32 `json:"nanosec"`
}

// TimeFrom converts a wall clock time into a ROS stamp.
func TimeFrom(t time.Time) Time {
	return Time{Sec: int32(t.Unix()), Nanosec: uint32(t.Nanosecond())}
}

// Time converts the stamp back to wall clock time (UTC).
func (t Time) Time() time.Time {
	return time.Unix(int64(t.Sec), int64(t.Nanosec)).UTC()
}

// Duration is builtin_interfaces/Duration.
type Duration struct {
	Sec     int32  `json:"sec"`
	Nanosec uint32 `json:"nanosec"`
}

// DurationFrom converts a Go duration.
func DurationFrom(d time.Duration) Duration {
	return Duration{Sec: int32(d / time.Second), Nanosec: uint32(d % time.Second)}
}

// Duration converts back to a Go duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d.Sec)*time.Second + time.Duration(d.Nanosec)
}

type Header struct {
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

type Pose struct {
	Position    Point      `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

type PoseStamped struct {
	Header Header `json:"header"`
	Pose   Pose   `json:"pose"`
}

// NavigateToPoseGoal is the goal part of nav2_msgs/action/NavigateToPose.
type NavigateToPoseGoal struct {
	Pose         PoseStamped `json:"pose"`
	BehaviorTree string      `json:"behavior_tree"`
}

// NavigateToPoseFeedback is the feedback part of nav2_msgs/action/NavigateToPose.
type NavigateToPoseFeedback struct {
	CurrentPose            PoseStamped `json:"current_pose"`
	NavigationTime         Duration    `json:"navigation_time"`
	EstimatedTimeRemaining Duration    `json:"estimated_time_remaining"`
	NumberOfRecoveries     int16       `json:"number_of_recoveries"`
	DistanceRemaining      float64     `json:"distance_remaining"`
}

// ActionServersResponse is the values payload of /rosapi/action_servers.
type ActionServersResponse struct {
	ActionServers []string `json:"action_servers"`
}

// GoalFromPose builds the NavigateToPose goal for g.
func GoalFromPose(g nav.PoseGoal, behaviorTree string) NavigateToPoseGoal {
	return NavigateToPoseGoal{
		Pose: PoseStamped{
			Header: Header{Stamp: TimeFrom(g.Stamp), FrameID: g.Frame},
			Pose: Pose{
				Position:    Point{X: g.X, Y: g.Y, Z: g.Z},
				Orientation: Quaternion{W: g.W},
			},
		},
		BehaviorTree: behaviorTree,
	}
}

// PoseFromGoal is the inverse of GoalFromPose.
func PoseFromGoal(goal NavigateToPoseGoal) nav.PoseGoal {
	p := goal.Pose
	return nav.PoseGoal{
		X:     p.Pose.Position.X,
		Y:     p.Pose.Position.Y,
		Z:     p.Pose.Position.Z,
		W:     p.Pose.Orientation.W,
		Frame: p.Header.FrameID,
		Stamp: p.Header.Stamp.Time(),
	}
}

// ToFeedback converts the wire feedback into the domain type.
func (f NavigateToPoseFeedback) ToFeedback() nav.Feedback {
	return nav.Feedback{
		DistanceRemaining:      f.DistanceRemaining,
		NavigationTime:         f.NavigationTime.Duration(),
		EstimatedTimeRemaining: f.EstimatedTimeRemaining.Duration(),
		NumberOfRecoveries:     int(f.NumberOfRecoveries),
	}
}
