package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/PhamBao-egn/BAOPHAM/internal/config"
	"github.com/PhamBao-egn/BAOPHAM/internal/history"
)

func (c *cli) runHistory(args []string) int {
	fs := c.newFlagSet("history")
	configPath := fs.String("config", "", "Path to configuration file or directory")
	historyPath := fs.String("history", "", "Goal journal SQLite file (default: state.path)")
	limit := fs.Int("limit", history.DefaultListLimit, "Maximum number of goals to list")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(c.errOut, "Usage: navgoal history [--history PATH] [--limit N] [--json] [goal-id]")
		return exitFailure
	}

	path := *historyPath
	if path == "" {
		cfg, err := config.Resolve(*configPath)
		if err != nil {
			fmt.Fprintf(c.errOut, "Failed to load config: %v\n", err)
			return exitFailure
		}
		path = cfg.State.Path
	}
	if path == "" {
		fmt.Fprintln(c.errOut, "No goal journal configured: pass --history or set state.path")
		return exitFailure
	}

	ctx := context.Background()
	store, err := history.Open(ctx, path)
	if err != nil {
		fmt.Fprintf(c.errOut, "Failed to open goal journal: %v\n", err)
		return exitFailure
	}
	defer func() { _ = store.Close() }()

	var entries []*history.Entry
	if fs.NArg() == 1 {
		entry, err := store.Get(ctx, fs.Arg(0))
		if errors.Is(err, history.ErrGoalNotFound) {
			fmt.Fprintf(c.errOut, "Goal %s not found\n", fs.Arg(0))
			return exitFailure
		}
		if err != nil {
			fmt.Fprintf(c.errOut, "Failed to read goal: %v\n", err)
			return exitFailure
		}
		entries = []*history.Entry{entry}
	} else {
		entries, err = store.List(ctx, *limit)
		if err != nil {
			fmt.Fprintf(c.errOut, "Failed to list goals: %v\n", err)
			return exitFailure
		}
	}

	if *jsonOut {
		if entries == nil {
			entries = []*history.Entry{}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			fmt.Fprintf(c.errOut, "Failed to render JSON: %v\n", err)
			return exitFailure
		}
		fmt.Fprintln(c.out, string(data))
		return exitOK
	}

	if len(entries) == 0 {
		fmt.Fprintln(c.out, "No goals recorded.")
		return exitOK
	}
	fmt.Fprintln(c.out, renderHistoryTable(entries))
	return exitOK
}

func renderHistoryTable(entries []*history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := "-"
		if e.StatusCode != nil {
			status = strconv.Itoa(*e.StatusCode)
		}
		distance := "-"
		if e.LastDistance != nil {
			distance = fmt.Sprintf("%.2f", *e.LastDistance)
		}
		rows = append(rows, []string{
			e.ID,
			e.CreatedAt.Local().Format(time.DateTime),
			fmt.Sprintf("%.2f, %.2f, %.2f, %.2f", e.X, e.Y, e.Z, e.W),
			e.OutcomeText,
			string(e.Reason),
			status,
			distance,
		})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "CREATED", "POSE (x, y, z, w)", "OUTCOME", "REASON", "STATUS", "LAST DIST").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Render()
}
