package events

// Goal lifecycle event types.
const (
	GoalSubmitted         = "goal.submitted"
	GoalServerUnavailable = "goal.server_unavailable"
	GoalAccepted          = "goal.accepted"
	GoalRejected          = "goal.rejected"
	GoalFeedback          = "goal.feedback"
	GoalResult            = "goal.result"
)

// GoalPayload identifies the goal an event belongs to.
type GoalPayload struct {
	GoalID string  `json:"goal_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	W      float64 `json:"w"`
	Frame  string  `json:"frame"`
}

// FeedbackPayload is published for every feedback message.
type FeedbackPayload struct {
	GoalID            string  `json:"goal_id"`
	DistanceRemaining float64 `json:"distance_remaining"`
	Recoveries        int     `json:"number_of_recoveries"`
}

// ResultPayload is published once, when the outcome resolves.
type ResultPayload struct {
	GoalID  string `json:"goal_id"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
	Status  int    `json:"status"`
	Reached bool   `json:"reached"`
	Detail  string `json:"detail,omitempty"`
}
