package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(args []string) int {
	return newCLI(os.Stdin, os.Stdout, os.Stderr).run(args)
}

// cli carries the process streams so commands can be driven from tests.
// stdout only ever receives command output; logs and prompts go to stderr.
type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newCLI(in io.Reader, out, errOut io.Writer) *cli {
	return &cli{in: in, out: out, errOut: errOut}
}

func (c *cli) run(args []string) int {
	// No subcommand, or flags only, means send.
	if len(args) == 0 || strings.HasPrefix(args[0], "-") && !isHelpToken(args[0]) && args[0] != "--version" {
		return c.runSend(args)
	}

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	case "send":
		return c.runSend(rest)
	case "sim":
		return c.runSim(rest)
	case "history":
		return c.runHistory(rest)
	case "config":
		return c.runConfigNoun(rest)
	case "version", "--version":
		return c.runVersion(rest)
	case "help", "--help", "-h":
		c.printUsage(c.out)
		return exitOK
	default:
		fmt.Fprintf(c.errOut, "Unknown command: %s\n\n", cmd)
		c.printUsage(c.errOut)
		return exitFailure
	}
}

func (c *cli) printUsage(w io.Writer) {
	fmt.Fprint(w, `navgoal - send one navigation goal and report whether the robot got there

Usage:
  navgoal [send] [flags]        Prompt for x, y, z, w and send the goal (prints True/False)
  navgoal sim [flags]           Run a simulated rosbridge action server
  navgoal history [flags] [id]  Show journaled goals
  navgoal config show|check|hash
                                Print the effective config, check it against the robot,
                                or write its .checksums
  navgoal version [--json]      Show version information

Send flags:
  --config PATH     Config file or directory (default: $NAVGOAL_CONFIG, ~/.config/navgoal/config.yaml)
  --pose x,y,z,w    Use these coordinates instead of prompting
  --bridge URL      Override bridge.url
  --listen ADDR     Serve /healthz, /events and /metrics on ADDR while the goal runs
  --history PATH    Journal the goal to this SQLite file
  --tui             Show a live progress view on stderr
  --no-lock         Allow a second concurrent goal on the same bridge

Exit codes: 0 result printed, 1 usage/config/input error, 130 interrupted.
`)
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func (c *cli) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func (c *cli) runVersion(args []string) int {
	fs := c.newFlagSet("version")
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(c.errOut, "Usage: navgoal version [--json]")
		return exitFailure
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(c.errOut, "Failed to render version JSON: %v\n", err)
			return exitFailure
		}
		fmt.Fprintln(c.out, string(data))
		return exitOK
	}

	fmt.Fprintf(c.out, "navgoal %s\n", info.Version)
	fmt.Fprintf(c.out, "commit: %s\n", info.Commit)
	fmt.Fprintf(c.out, "built_at: %s\n", info.BuildTime)
	return exitOK
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = readBuildSetting("vcs.revision")
	}
	if commit != "" {
		info.Commit = shortenCommit(commit)
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = readBuildSetting("vcs.time")
	}
	if t, err := time.Parse(time.RFC3339Nano, built); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}
	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return strings.TrimSpace(setting.Value)
		}
	}
	return ""
}
