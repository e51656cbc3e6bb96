package dispatch

import (
	"context"
	"time"

	"github.com/PhamBao-egn/BAOPHAM/internal/nav"
	"github.com/PhamBao-egn/BAOPHAM/internal/rosbridge"
)

//go:generate mockgen -destination=mocks/mock_action_client.go -package=mocks github.com/PhamBao-egn/BAOPHAM/internal/dispatch ActionClient

// ActionClient is the navigation action protocol as the dispatcher uses it.
type ActionClient interface {
	WaitForServer(ctx context.Context, action string, timeout, poll time.Duration) error
	SendGoal(ctx context.Context, req rosbridge.GoalRequest) (rosbridge.Acceptance, error)
	Feedback(goalID string) <-chan nav.Feedback
	Result(ctx context.Context, goalID string) (nav.Status, error)
}

// Journal persists goals and their outcomes.
type Journal interface {
	Begin(ctx context.Context, goalID, action string, goal nav.PoseGoal) error
	Finish(ctx context.Context, res nav.Result) error
}

// Recorder receives dispatcher metrics.
type Recorder interface {
	ObserveServerWait(d time.Duration, available bool)
	ObserveFeedback(f nav.Feedback)
	ObserveResult(res nav.Result)
}

type noopRecorder struct{}

func (noopRecorder) ObserveServerWait(time.Duration, bool) {}
func (noopRecorder) ObserveFeedback(nav.Feedback)          {}
func (noopRecorder) ObserveResult(nav.Result)              {}
