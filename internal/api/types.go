package api

import "github.com/PhamBao-egn/BAOPHAM/internal/history"

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	GoalID        string `json:"goal_id,omitempty"`
	Phase         string `json:"phase"`
	Outcome       string `json:"outcome"`
	Done          bool   `json:"done"`
}

// GoalListResponse is returned by GET /goals.
type GoalListResponse struct {
	Goals []*history.Entry `json:"goals"`
}
