package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PhamBao-egn/BAOPHAM/internal/api"
	"github.com/PhamBao-egn/BAOPHAM/internal/config"
	"github.com/PhamBao-egn/BAOPHAM/internal/dispatch"
	"github.com/PhamBao-egn/BAOPHAM/internal/events"
	"github.com/PhamBao-egn/BAOPHAM/internal/history"
	"github.com/PhamBao-egn/BAOPHAM/internal/input"
	"github.com/PhamBao-egn/BAOPHAM/internal/lock"
	"github.com/PhamBao-egn/BAOPHAM/internal/log"
	"github.com/PhamBao-egn/BAOPHAM/internal/metrics"
	"github.com/PhamBao-egn/BAOPHAM/internal/nav"
	"github.com/PhamBao-egn/BAOPHAM/internal/rosbridge"
	"github.com/PhamBao-egn/BAOPHAM/internal/tui/progress"
)

func (c *cli) runSend(args []string) int {
	fs := c.newFlagSet("send")
	configPath := fs.String("config", "", "Path to configuration file or directory")
	pose := fs.String("pose", "", "Goal as x,y,z,w instead of prompting")
	bridgeURL := fs.String("bridge", "", "Override bridge.url")
	listen := fs.String("listen", "", "Serve the status endpoints on this address")
	historyPath := fs.String("history", "", "Journal the goal to this SQLite file")
	showTUI := fs.Bool("tui", false, "Show a live progress view on stderr")
	noLock := fs.Bool("no-lock", false, "Skip the per-bridge single goal lock")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(c.errOut, "Unexpected arguments: %v\n", fs.Args())
		return exitFailure
	}

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		fmt.Fprintf(c.errOut, "Failed to load config: %v\n", err)
		return exitFailure
	}
	if *bridgeURL != "" {
		cfg.Bridge.URL = *bridgeURL
	}
	if *historyPath != "" {
		cfg.State.Path = *historyPath
	}
	if *listen != "" {
		cfg.Status.Enabled = true
		cfg.Status.Listen = *listen
	}

	logger := log.New(cfg.Service.LogLevel, cfg.Service.LogFormat, c.errOut)

	coords, err := c.readCoordinates(*pose)
	if err != nil {
		logger.Error("invalid goal pose", "error", err, "example", input.Example)
		return exitFailure
	}

	if !*noLock {
		l, err := lock.AcquirePIDLock(lock.PathFor("", cfg.Bridge.URL))
		if err != nil {
			if errors.Is(err, lock.ErrHeld) {
				logger.Error("another navgoal is already driving this robot", "bridge", cfg.Bridge.URL, "error", err)
			} else {
				logger.Error("failed to take goal lock", "error", err)
			}
			return exitFailure
		}
		defer func() { _ = l.Release() }()
	}

	// The progress view owns stderr while it runs.
	runLogger := logger
	if *showTUI {
		runLogger = log.New(cfg.Service.LogLevel, cfg.Service.LogFormat, io.Discard)
	}
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat, c.errOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.sendGoal(ctx, cfg, coords, *showTUI, runLogger)
}

func (c *cli) readCoordinates(pose string) (input.Coordinates, error) {
	if pose != "" {
		return input.Parse(pose)
	}
	return input.Prompt(c.in, c.errOut)
}

func (c *cli) sendGoal(ctx context.Context, cfg *config.Config, coords input.Coordinates, showTUI bool, logger *slog.Logger) int {
	hub := events.NewHub(256)
	defer hub.Close()
	recorder := metrics.NewPrometheusRecorder()

	client := rosbridge.New(rosbridge.Options{
		URL:         cfg.Bridge.URL,
		DialTimeout: cfg.Bridge.DialTimeout,
		Logger:      logger.With("component", "rosbridge"),
	})
	defer func() { _ = client.Close() }()

	opts := []dispatch.Option{
		dispatch.WithEvents(hub),
		dispatch.WithMetrics(recorder),
		dispatch.WithLogger(logger.With("component", "dispatch")),
	}

	var store *history.Store
	if cfg.State.Path != "" {
		var err error
		store, err = history.Open(ctx, cfg.State.Path)
		if err != nil {
			logger.Error("failed to open goal journal", "path", cfg.State.Path, "error", err)
			return exitFailure
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, dispatch.WithJournal(store))
	}

	d := dispatch.New(client, dispatch.Config{
		Action:        cfg.Action.Name,
		ActionType:    cfg.Action.Type,
		Frame:         cfg.Action.Frame,
		BehaviorTree:  cfg.Action.BehaviorTree,
		ServerTimeout: cfg.Action.ServerTimeout,
		PollInterval:  cfg.Action.PollInterval,
	}, opts...)

	if cfg.Status.Enabled {
		apiCfg := api.Config{Listen: cfg.Status.Listen, Metrics: recorder.Handler()}
		if store != nil {
			apiCfg.History = store
		}
		srv := api.New(apiCfg, d, hub, logger.With("component", "api"))
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := srv.Start(srvCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("status server failed", "error", err)
			}
		}()
	}

	if _, err := d.Submit(ctx, coords.X, coords.Y, coords.Z, coords.W); err != nil {
		logger.Error("failed to submit goal", "error", err)
		return exitFailure
	}

	if showTUI {
		goal := nav.NewPoseGoal(coords.X, coords.Y, coords.Z, coords.W, cfg.Action.Frame, time.Now())
		if _, err := progress.Run(ctx, hub, goal, c.errOut); err != nil {
			logger.Warn("progress view stopped", "error", err)
		}
	}

	res, err := d.Wait(ctx)
	if err != nil {
		logger.Warn("interrupted before the goal resolved", "goal_id", res.GoalID, "error", err)
		fmt.Fprintln(c.out, resultText(false))
		return exitInterrupted
	}

	logger.Info("goal finished",
		"goal_id", res.GoalID,
		"outcome", res.Outcome.String(),
		"reason", string(res.Reason),
		"duration_ms", res.Duration().Milliseconds(),
	)
	fmt.Fprintln(c.out, resultText(res.Outcome.Reached()))
	return exitOK
}

func resultText(reached bool) string {
	if reached {
		return "True"
	}
	return "False"
}
