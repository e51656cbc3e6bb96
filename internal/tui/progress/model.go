package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PhamBao-egn/BAOPHAM/internal/events"
	"github.com/PhamBao-egn/BAOPHAM/internal/nav"
)

const defaultWidth = 60

// Model is the BubbleTea model for the goal progress view.
type Model struct {
	goal  nav.PoseGoal
	width int

	phase     string
	initial   float64
	remaining float64
	feedbacks int
	result    *events.ResultPayload
	lastID    int64
	eventLog  []events.Event

	sub      <-chan events.Event
	spinner  spinner.Model
	bar      progress.Model
	theme    Theme
	quitting bool
}

// New creates a progress model reading events from sub. Events in backlog
// are applied first; later duplicates by id are ignored.
func New(goal nav.PoseGoal, sub <-chan events.Event, backlog []events.Event) Model {
	theme := NewDefaultTheme()
	m := Model{
		goal:      goal,
		width:     defaultWidth,
		phase:     "waiting for action server",
		remaining: -1,
		sub:       sub,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.Spinner)),
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(defaultWidth-20)),
		theme:     theme,
	}
	for _, ev := range backlog {
		m = m.apply(ev)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.result != nil {
		return tea.Quit
	}
	return tea.Batch(m.spinner.Tick, receiveNextEvent(m.sub))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, msg.Width-24)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m = m.apply(events.Event(msg))
		if m.result != nil {
			m.quitting = true
			return m, tea.Quit
		}
		return m, receiveNextEvent(m.sub)

	case streamClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// apply folds one event into the view state.
func (m Model) apply(ev events.Event) Model {
	if ev.ID != 0 && ev.ID <= m.lastID {
		return m
	}
	if ev.ID != 0 {
		m.lastID = ev.ID
	}

	m.eventLog = append(m.eventLog, ev)
	if len(m.eventLog) > maxEventLines {
		m.eventLog = m.eventLog[len(m.eventLog)-maxEventLines:]
	}

	switch ev.Type {
	case events.GoalSubmitted:
		m.phase = "waiting for action server"
	case events.GoalServerUnavailable:
		m.phase = "action server unavailable"
	case events.GoalAccepted:
		m.phase = "navigating"
	case events.GoalRejected:
		m.phase = "goal rejected"
	case events.GoalFeedback:
		var fb events.FeedbackPayload
		if err := ev.Decode(&fb); err == nil {
			m.feedbacks++
			m.remaining = fb.DistanceRemaining
			if fb.DistanceRemaining > m.initial {
				m.initial = fb.DistanceRemaining
			}
		}
	case events.GoalResult:
		var res events.ResultPayload
		if err := ev.Decode(&res); err == nil {
			m.result = &res
			if res.Reached {
				m.phase = "goal reached"
			} else {
				m.phase = "goal not reached"
			}
		}
	}
	return m
}

// Fraction is how much of the initial distance has been covered, in [0, 1].
func (m Model) Fraction() float64 {
	if m.result != nil && m.result.Reached {
		return 1
	}
	if m.initial <= 0 || m.remaining < 0 {
		return 0
	}
	return math.Min(1, math.Max(0, 1-m.remaining/m.initial))
}

// Result returns the final result payload, or nil while the goal is running.
func (m Model) Result() *events.ResultPayload {
	return m.result
}

func (m Model) View() string {
	innerWidth := max(20, m.width-4)

	title := m.theme.Title.Render("NAVGOAL")
	goalLine := fmt.Sprintf(" Goal  x=%.2f y=%.2f z=%.2f w=%.2f  frame=%s",
		m.goal.X, m.goal.Y, m.goal.Z, m.goal.W, m.goal.Frame)

	var status string
	switch {
	case m.result == nil:
		status = fmt.Sprintf(" %s %s", m.spinner.View(), m.theme.Active.Render(m.phase))
	case m.result.Reached:
		status = " " + m.theme.Reached.Render("✔ "+m.phase)
	default:
		status = " " + m.theme.Failed.Render(fmt.Sprintf("✘ %s (%s)", m.phase, m.result.Reason))
	}

	distance := m.theme.Dim.Render(" no feedback yet")
	if m.remaining >= 0 {
		distance = fmt.Sprintf(" %s  %s", m.bar.ViewAs(m.Fraction()),
			m.theme.Emphasis.Render(fmt.Sprintf("%.2f m left", m.remaining)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		goalLine,
		status,
		distance,
		"",
		renderEventLog(m.eventLog, m.theme, innerWidth),
	)
	view := m.theme.Border.Width(innerWidth).Render(content)
	if m.quitting {
		view += "\n"
	}
	return view
}

// Run shows the progress view on out until the goal resolves, the hub closes
// or ctx ends. It returns the last result seen, if any.
func Run(ctx context.Context, hub *events.Hub, goal nav.PoseGoal, out io.Writer) (*events.ResultPayload, error) {
	sub, cancel := hub.Subscribe()
	defer cancel()

	m := New(goal, sub, hub.SnapshotSince(0))
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	if fm, ok := final.(Model); ok {
		return fm.Result(), nil
	}
	return nil, nil
}
