package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhamBao-egn/BAOPHAM/internal/events"
	"github.com/PhamBao-egn/BAOPHAM/internal/nav"
)

func mkEvent(t *testing.T, id int64, typ string, payload any) events.Event {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return events.Event{ID: id, Type: typ, At: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), Data: data}
}

func testGoal() nav.PoseGoal {
	return nav.NewPoseGoal(2, 3, 2, 1, "map", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC))
}

func TestModelTracksFeedback(t *testing.T) {
	backlog := []events.Event{
		mkEvent(t, 1, events.GoalSubmitted, events.GoalPayload{GoalID: "g", X: 2, Y: 3, Z: 2, W: 1}),
		mkEvent(t, 2, events.GoalAccepted, events.GoalPayload{GoalID: "g"}),
		mkEvent(t, 3, events.GoalFeedback, events.FeedbackPayload{GoalID: "g", DistanceRemaining: 4}),
		mkEvent(t, 4, events.GoalFeedback, events.FeedbackPayload{GoalID: "g", DistanceRemaining: 1}),
	}
	m := New(testGoal(), nil, backlog)

	assert.Equal(t, "navigating", m.phase)
	assert.Equal(t, 2, m.feedbacks)
	assert.InDelta(t, 0.75, m.Fraction(), 1e-9)
	assert.Nil(t, m.Result())

	view := m.View()
	assert.Contains(t, view, "NAVGOAL")
	assert.Contains(t, view, "1.00 m left")
	assert.Contains(t, view, "navigating")
}

func TestModelIgnoresReplayedEvents(t *testing.T) {
	fb := mkEvent(t, 3, events.GoalFeedback, events.FeedbackPayload{DistanceRemaining: 2})
	m := New(testGoal(), nil, []events.Event{fb})

	next, cmd := m.Update(eventMsg(fb))
	require.NotNil(t, cmd)
	assert.Equal(t, 1, next.(Model).feedbacks)
}

func TestModelQuitsOnResult(t *testing.T) {
	m := New(testGoal(), nil, nil)
	assert.Equal(t, 0.0, m.Fraction())
	assert.Contains(t, m.View(), "no feedback yet")

	next, cmd := m.Update(eventMsg(mkEvent(t, 1, events.GoalResult,
		events.ResultPayload{GoalID: "g", Outcome: "not_reached", Reason: "rejected"})))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	fm := next.(Model)
	require.NotNil(t, fm.Result())
	assert.False(t, fm.Result().Reached)
	assert.Contains(t, fm.View(), "goal not reached (rejected)")
}

func TestModelQuitsWhenStreamCloses(t *testing.T) {
	ch := make(chan events.Event)
	close(ch)
	m := New(testGoal(), ch, nil)

	msg := receiveNextEvent(ch)()
	assert.Equal(t, streamClosedMsg{}, msg)

	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModelReachedFillsBar(t *testing.T) {
	m := New(testGoal(), nil, []events.Event{
		mkEvent(t, 1, events.GoalFeedback, events.FeedbackPayload{DistanceRemaining: 3}),
		mkEvent(t, 2, events.GoalResult, events.ResultPayload{Outcome: "reached", Reason: "succeeded", Reached: true}),
	})
	assert.Equal(t, 1.0, m.Fraction())
	assert.Contains(t, m.View(), "goal reached")
}

func TestModelWindowResize(t *testing.T) {
	m := New(testGoal(), nil, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	fm := next.(Model)
	assert.Equal(t, 100, fm.width)
	assert.Equal(t, 76, fm.bar.Width)
}

func TestDescribeEvent(t *testing.T) {
	assert.Equal(t, "1.23 m remaining", describeEvent(mkEvent(t, 1, events.GoalFeedback, events.FeedbackPayload{DistanceRemaining: 1.234})))
	assert.Equal(t, "reached", describeEvent(mkEvent(t, 2, events.GoalResult, events.ResultPayload{Reached: true})))
	assert.Equal(t, "server_unavailable", describeEvent(mkEvent(t, 3, events.GoalResult, events.ResultPayload{Reason: "server_unavailable"})))
	assert.Equal(t, "", describeEvent(mkEvent(t, 4, events.GoalAccepted, events.GoalPayload{})))
}

func TestRunReturnsBufferedResult(t *testing.T) {
	hub := events.NewHub(16)
	hub.Publish(events.GoalSubmitted, events.GoalPayload{GoalID: "g"})
	hub.Publish(events.GoalResult, events.ResultPayload{GoalID: "g", Outcome: "reached", Reason: "succeeded", Reached: true})

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := Run(ctx, hub, testGoal(), &out)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Reached)
}
