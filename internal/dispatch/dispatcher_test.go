package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhamBao-egn/BAOPHAM/internal/dispatch/mocks"
	"github.com/PhamBao-egn/BAOPHAM/internal/events"
	"github.com/PhamBao-egn/BAOPHAM/internal/nav"
	"github.com/PhamBao-egn/BAOPHAM/internal/rosbridge"
)

const testGoalID = "goal-1"

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), &buf
}

func testConfig() Config {
	return Config{
		Action:        "/navigate_to_pose",
		ActionType:    "nav2_msgs/action/NavigateToPose",
		ServerTimeout: 50 * time.Millisecond,
		PollInterval:  10 * time.Millisecond,
	}
}

type fakeJournal struct {
	mu       sync.Mutex
	begun    []string
	finished []nav.Result
	goal     nav.PoseGoal
}

func (j *fakeJournal) Begin(_ context.Context, goalID, _ string, goal nav.PoseGoal) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.begun = append(j.begun, goalID)
	j.goal = goal
	return nil
}

func (j *fakeJournal) Finish(_ context.Context, res nav.Result) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finished = append(j.finished, res)
	return nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	waits     []bool
	feedbacks int
	results   []nav.Result
}

func (r *fakeRecorder) ObserveServerWait(_ time.Duration, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, available)
}

func (r *fakeRecorder) ObserveFeedback(nav.Feedback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedbacks++
}

func (r *fakeRecorder) ObserveResult(res nav.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func feedbackChan(distances ...float64) <-chan nav.Feedback {
	ch := make(chan nav.Feedback, len(distances))
	for _, d := range distances {
		ch <- nav.Feedback{DistanceRemaining: d}
	}
	close(ch)
	return ch
}

func eventTypes(hub *events.Hub) []string {
	var out []string
	for _, ev := range hub.SnapshotSince(0) {
		out = append(out, ev.Type)
	}
	return out
}

func TestDispatcherGoalReached(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockActionClient(ctrl)
	logger, logBuf := newTestLogger()
	hub := events.NewHub(32)
	journal := &fakeJournal{}
	rec := &fakeRecorder{}

	d := New(client, testConfig(),
		WithLogger(logger), WithEvents(hub), WithJournal(journal),
		WithMetrics(rec), WithGoalID(testGoalID))

	gomock.InOrder(
		client.EXPECT().WaitForServer(gomock.Any(), "/navigate_to_pose", 50*time.Millisecond, 10*time.Millisecond).Return(nil),
		client.EXPECT().SendGoal(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req rosbridge.GoalRequest) (rosbridge.Acceptance, error) {
				assert.Equal(t, testGoalID, req.ID)
				assert.Equal(t, "nav2_msgs/action/NavigateToPose", req.ActionType)
				assert.Equal(t, "map", req.Goal.Pose.Header.FrameID)
				assert.Equal(t, 2.0, req.Goal.Pose.Pose.Position.X)
				assert.Equal(t, 3.0, req.Goal.Pose.Pose.Position.Y)
				assert.Equal(t, 2.0, req.Goal.Pose.Pose.Position.Z)
				assert.Equal(t, 1.0, req.Goal.Pose.Pose.Orientation.W)
				assert.Zero(t, req.Goal.Pose.Pose.Orientation.X)
				return rosbridge.Acceptance{GoalID: req.ID, Accepted: true}, nil
			}),
	)
	client.EXPECT().Feedback(testGoalID).Return(feedbackChan(4.257, 1.5))
	client.EXPECT().Result(gomock.Any(), testGoalID).Return(nav.StatusSucceeded, nil)

	assert.Equal(t, nav.OutcomeUnknown, d.Outcome())
	assert.Equal(t, PhaseIdle, d.Phase())

	res, err := d.Run(context.Background(), 2.0, 3.0, 2.0, 1.0)
	require.NoError(t, err)

	assert.Equal(t, nav.OutcomeReached, res.Outcome)
	assert.True(t, res.Outcome.Reached())
	assert.Equal(t, nav.ReasonSucceeded, res.Reason)
	assert.Equal(t, nav.StatusSucceeded, res.Status)
	assert.Equal(t, 2, res.FeedbackCount)
	assert.Equal(t, 1.5, res.LastDistance)
	assert.Equal(t, nav.OutcomeReached, d.Outcome())
	assert.Equal(t, PhaseDone, d.Phase())

	logs := logBuf.String()
	assert.Contains(t, logs, "sending goal pose")
	assert.Contains(t, logs, "goal accepted")
	assert.Contains(t, logs, `"distance_remaining":"4.26"`)
	assert.Contains(t, logs, `"distance_remaining":"1.50"`)
	assert.Contains(t, logs, "robot reached the goal")

	assert.Equal(t, []string{
		events.GoalSubmitted,
		events.GoalAccepted,
		events.GoalFeedback,
		events.GoalFeedback,
		events.GoalResult,
	}, eventTypes(hub))

	require.Len(t, journal.begun, 1)
	require.Len(t, journal.finished, 1)
	assert.Equal(t, nav.OutcomeReached, journal.finished[0].Outcome)
	assert.Equal(t, "map", journal.goal.Frame)

	assert.Equal(t, []bool{true}, rec.waits)
	assert.Equal(t, 2, rec.feedbacks)
	require.Len(t, rec.results, 1)
}

func TestDispatcherServerUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockActionClient(ctrl)
	logger, logBuf := newTestLogger()
	hub := events.NewHub(32)
	rec := &fakeRecorder{}

	client.EXPECT().WaitForServer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("%w after 50ms", rosbridge.ErrServerUnavailable))
	// No SendGoal, Feedback or Result call is expected.

	d := New(client, testConfig(), WithLogger(logger), WithEvents(hub), WithMetrics(rec), WithGoalID(testGoalID))
	res, err := d.Run(context.Background(), 1, 1, 0, 1)
	require.NoError(t, err)

	assert.Equal(t, nav.OutcomeNotReached, res.Outcome)
	assert.Equal(t, nav.ReasonServerUnavailable, res.Reason)
	assert.Equal(t, -1.0, res.LastDistance)
	assert.Contains(t, logBuf.String(), "action server not available")
	assert.Equal(t, []string{events.GoalSubmitted, events.GoalServerUnavailable, events.GoalResult}, eventTypes(hub))
	assert.Equal(t, []bool{false}, rec.waits)
}

func TestDispatcherGoalRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockActionClient(ctrl)
	logger, logBuf := newTestLogger()
	hub := events.NewHub(32)

	client.EXPECT().WaitForServer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	client.EXPECT().SendGoal(gomock.Any(), gomock.Any()).
		Return(rosbridge.Acceptance{GoalID: testGoalID, Accepted: false, Reason: "goal outside map"}, nil)
	// Result must never be requested for a rejected goal.
	client.EXPECT().Result(gomock.Any(), gomock.Any()).Times(0)

	d := New(client, testConfig(), WithLogger(logger), WithEvents(hub), WithGoalID(testGoalID))
	res, err := d.Run(context.Background(), 2, 3, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, nav.OutcomeNotReached, res.Outcome)
	assert.Equal(t, nav.ReasonRejected, res.Reason)
	assert.Equal(t, "goal outside map", res.Detail)
	assert.Contains(t, logBuf.String(), "goal rejected")

	var payload events.ResultPayload
	evs := hub.SnapshotSince(0)
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	require.Equal(t, events.GoalResult, last.Type)
	require.NoError(t, last.Decode(&payload))
	assert.False(t, payload.Reached)
	assert.Equal(t, "rejected", payload.Reason)
}

func TestDispatcherNonSuccessStatus(t *testing.T) {
	statuses := []nav.Status{
		nav.StatusAborted,
		nav.StatusCanceled,
		nav.StatusUnknown,
		nav.StatusExecuting,
	}

	for _, status := range statuses {
		t.Run(status.String(), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			client := mocks.NewMockActionClient(ctrl)
			logger, logBuf := newTestLogger()

			client.EXPECT().WaitForServer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			client.EXPECT().SendGoal(gomock.Any(), gomock.Any()).Return(rosbridge.Acceptance{Accepted: true}, nil)
			client.EXPECT().Feedback(gomock.Any()).Return(feedbackChan())
			client.EXPECT().Result(gomock.Any(), gomock.Any()).Return(status, nil)

			d := New(client, testConfig(), WithLogger(logger))
			res, err := d.Run(context.Background(), 0, 0, 0, 1)
			require.NoError(t, err)

			assert.Equal(t, nav.OutcomeNotReached, res.Outcome)
			assert.Equal(t, nav.ReasonStatus, res.Reason)
			assert.Equal(t, status, res.Status)
			assert.Equal(t, 0, res.FeedbackCount)
			assert.Contains(t, logBuf.String(), "navigation did not succeed")
			assert.Contains(t, logBuf.String(), fmt.Sprintf(`"status_code":%d`, int(status)))
		})
	}
}

func TestDispatcherConnectionLost(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockActionClient(ctrl)
	logger, _ := newTestLogger()

	client.EXPECT().WaitForServer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	client.EXPECT().SendGoal(gomock.Any(), gomock.Any()).Return(rosbridge.Acceptance{Accepted: true}, nil)
	client.EXPECT().Feedback(gomock.Any()).Return(feedbackChan(3))
	client.EXPECT().Result(gomock.Any(), gomock.Any()).
		Return(nav.StatusUnknown, fmt.Errorf("waiting for result: %w", rosbridge.ErrConnectionClosed))

	d := New(client, testConfig(), WithLogger(logger))
	res, err := d.Run(context.Background(), 1, 2, 0, 1)
	require.NoError(t, err)

	assert.Equal(t, nav.OutcomeNotReached, res.Outcome)
	assert.Equal(t, nav.ReasonConnectionLost, res.Reason)
	assert.Equal(t, 1, res.FeedbackCount)
}

func TestDispatcherSendGoalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockActionClient(ctrl)
	logger, _ := newTestLogger()

	client.EXPECT().WaitForServer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	client.EXPECT().SendGoal(gomock.Any(), gomock.Any()).Return(rosbridge.Acceptance{}, rosbridge.ErrConnectionClosed)

	d := New(client, testConfig(), WithLogger(logger))
	res, err := d.Run(context.Background(), 1, 2, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, nav.OutcomeNotReached, res.Outcome)
	assert.Equal(t, nav.ReasonConnectionLost, res.Reason)
}

func TestDispatcherSubmitTwice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockActionClient(ctrl)
	logger, _ := newTestLogger()
	client.EXPECT().WaitForServer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(rosbridge.ErrServerUnavailable)

	d := New(client, testConfig(), WithLogger(logger), WithGoalID(testGoalID))
	id, err := d.Submit(context.Background(), 1, 1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, testGoalID, id)

	_, err = d.Submit(context.Background(), 1, 1, 1, 1)
	assert.True(t, errors.Is(err, ErrAlreadySubmitted))

	<-d.Done()
	assert.Equal(t, nav.OutcomeNotReached, d.Outcome())
}

func TestDispatcherResolvesOnce(t *testing.T) {
	journal := &fakeJournal{}
	rec := &fakeRecorder{}
	logger, _ := newTestLogger()
	d := New(nil, testConfig(), WithLogger(logger), WithJournal(journal), WithMetrics(rec))

	ctx := context.Background()
	d.resolve(ctx, nav.OutcomeReached, nav.ReasonSucceeded, nav.StatusSucceeded, "")
	d.resolve(ctx, nav.OutcomeNotReached, nav.ReasonStatus, nav.StatusAborted, "")

	assert.Equal(t, nav.OutcomeReached, d.Outcome())
	assert.Len(t, journal.finished, 1)
	assert.Len(t, rec.results, 1)

	select {
	case <-d.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestDispatcherContextCancelledWhileActive(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockActionClient(ctrl)
	logger, _ := newTestLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	block := make(chan nav.Feedback)
	var tracking sync.WaitGroup
	tracking.Add(2)
	client.EXPECT().WaitForServer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	client.EXPECT().SendGoal(gomock.Any(), gomock.Any()).Return(rosbridge.Acceptance{Accepted: true}, nil)
	client.EXPECT().Feedback(gomock.Any()).DoAndReturn(func(string) <-chan nav.Feedback {
		tracking.Done()
		return block
	})
	client.EXPECT().Result(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) (nav.Status, error) {
			tracking.Done()
			<-ctx.Done()
			return nav.StatusUnknown, ctx.Err()
		})

	d := New(client, testConfig(), WithLogger(logger))
	_, err := d.Submit(ctx, 1, 1, 0, 1)
	require.NoError(t, err)

	tracking.Wait()
	assert.Equal(t, PhaseActive, d.Phase())
	cancel()

	res, err := d.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, nav.OutcomeUnknown, res.Outcome)
	assert.Equal(t, nav.OutcomeUnknown, d.Outcome())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "waiting_server", PhaseWaitingServer.String())
	assert.Equal(t, "pending_acceptance", PhasePendingAcceptance.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}

func TestDispatcherStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockActionClient(ctrl)
	logger, _ := newTestLogger()
	client.EXPECT().WaitForServer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(rosbridge.ErrServerUnavailable)

	d := New(client, testConfig(), WithLogger(logger), WithGoalID(testGoalID))
	assert.Equal(t, Status{Phase: PhaseIdle, Outcome: nav.OutcomeUnknown}, d.Status())

	_, err := d.Run(context.Background(), 1, 1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, Status{GoalID: testGoalID, Phase: PhaseDone, Outcome: nav.OutcomeNotReached}, d.Status())
}
