package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PhamBao-egn/BAOPHAM/internal/log"
	"github.com/PhamBao-egn/BAOPHAM/internal/nav"
	"github.com/PhamBao-egn/BAOPHAM/internal/sim"
)

func (c *cli) runSim(args []string) int {
	sc := sim.DefaultScenario()

	fs := c.newFlagSet("sim")
	listen := fs.String("listen", "127.0.0.1:9090", "Address to serve the bridge websocket on")
	fs.StringVar(&sc.ActionName, "action", sc.ActionName, "Action server name to advertise")
	fs.BoolVar(&sc.Reject, "reject", false, "Reject every goal")
	status := fs.Int("status", int(nav.StatusSucceeded), "Terminal status code for accepted goals (4 succeeded, 5 canceled, 6 aborted)")
	fs.IntVar(&sc.FeedbackSteps, "steps", sc.FeedbackSteps, "Feedback messages per goal")
	fs.DurationVar(&sc.StepInterval, "interval", sc.StepInterval, "Delay between feedback messages")
	fs.BoolVar(&sc.Unavailable, "unavailable", false, "Do not advertise the action server")
	fs.BoolVar(&sc.NoRosapi, "no-rosapi", false, "Answer the rosapi action server query with a failure")
	fs.BoolVar(&sc.DropAfterFeedback, "drop", false, "Close the connection after the first feedback")
	logLevel := fs.String("log-level", "info", "Log level")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if *status < 0 || *status > int(nav.StatusAborted) {
		fmt.Fprintf(c.errOut, "Invalid --status %d: must be between 0 and %d\n", *status, int(nav.StatusAborted))
		return exitFailure
	}
	sc.FinalStatus = nav.Status(*status)

	logger := log.New(*logLevel, "text", c.errOut).With("component", "sim")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sim.New(sc, logger).Start(ctx, *listen); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("simulator stopped", "error", err)
		return exitFailure
	}
	return exitOK
}
