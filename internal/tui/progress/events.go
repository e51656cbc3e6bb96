package progress

import (
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PhamBao-egn/BAOPHAM/internal/events"
)

const maxEventLines = 6

type eventMsg events.Event

type streamClosedMsg struct{}

// receiveNextEvent waits for the next event from the subscription.
func receiveNextEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func renderEventLog(log []events.Event, theme Theme, width int) string {
	if len(log) == 0 {
		return theme.Dim.Render("  Waiting for events...")
	}

	lines := make([]string, 0, len(log))
	for _, e := range log {
		lines = append(lines, formatEvent(e, theme))
	}
	return lipgloss.NewStyle().Padding(0, 1).MaxWidth(width).Render(strings.Join(lines, "\n"))
}

func formatEvent(e events.Event, theme Theme) string {
	ts := theme.Dim.Render(e.At.Format("15:04:05"))

	var typeStyle lipgloss.Style
	switch e.Type {
	case events.GoalAccepted:
		typeStyle = theme.Active
	case events.GoalRejected, events.GoalServerUnavailable:
		typeStyle = theme.Failed
	case events.GoalResult:
		typeStyle = theme.Emphasis
	default:
		typeStyle = theme.Dim
	}

	return fmt.Sprintf("%s %s %s", ts, typeStyle.Render(fmt.Sprintf("%-24s", e.Type)), describeEvent(e))
}

func describeEvent(e events.Event) string {
	switch e.Type {
	case events.GoalFeedback:
		var fb events.FeedbackPayload
		if err := json.Unmarshal(e.Data, &fb); err == nil {
			return fmt.Sprintf("%.2f m remaining", fb.DistanceRemaining)
		}
	case events.GoalResult:
		var res events.ResultPayload
		if err := json.Unmarshal(e.Data, &res); err == nil {
			if res.Reached {
				return "reached"
			}
			return res.Reason
		}
	case events.GoalSubmitted:
		var g events.GoalPayload
		if err := json.Unmarshal(e.Data, &g); err == nil {
			return fmt.Sprintf("(%.2f, %.2f, %.2f) w=%.2f", g.X, g.Y, g.Z, g.W)
		}
	}
	return ""
}
