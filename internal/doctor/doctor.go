// Package doctor checks a navgoal configuration against the machine and the
// robot it is about to drive.
package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PhamBao-egn/BAOPHAM/internal/config"
	"github.com/PhamBao-egn/BAOPHAM/internal/storage"
)

// DefaultProbeTimeout bounds the action server probe.
const DefaultProbeTimeout = 3 * time.Second

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Prober reports whether the configured action server is reachable.
// *rosbridge.Client satisfies it.
type Prober interface {
	WaitForServer(ctx context.Context, action string, timeout, poll time.Duration) error
}

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg          *config.Config
	prober       Prober
	probeTimeout time.Duration
}

// New creates a Doctor. A nil prober skips the action server check.
func New(cfg *config.Config, prober Prober) *Doctor {
	return &Doctor{cfg: cfg, prober: prober, probeTimeout: DefaultProbeTimeout}
}

// WithProbeTimeout overrides DefaultProbeTimeout.
func (d *Doctor) WithProbeTimeout(timeout time.Duration) *Doctor {
	if timeout > 0 {
		d.probeTimeout = timeout
	}
	return d
}

// LoadFailure wraps a config that could not be loaded at all.
func LoadFailure(err error) *Result {
	return &Result{
		Valid:  false,
		Errors: []Issue{{Category: "config", Message: err.Error()}},
	}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate(ctx context.Context) *Result {
	r := &Result{Valid: true}

	d.validateJournal(r)
	d.validateStatus(r)
	d.validateServer(ctx, r)
	d.warnTimeouts(r)
	d.warnBehaviorTree(r)
	d.warnMissingEnvVars(r)
	d.warnChecksums(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateJournal checks the goal journal sits on a local, writable disk.
func (d *Doctor) validateJournal(r *Result) {
	path := d.cfg.State.Path
	if path == "" {
		return
	}
	if err := storage.CheckJournalPath(path); err != nil {
		d.addError(r, "journal", "state.path", err.Error())
		return
	}

	dir := filepath.Dir(path)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	f, err := os.CreateTemp(dir, ".navgoal-check-*")
	if err != nil {
		d.addError(r, "journal", "state.path",
			fmt.Sprintf("journal directory %q is not writable: %v", dir, err))
		return
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
}

// validateStatus checks the status listen address parses.
func (d *Doctor) validateStatus(r *Result) {
	if !d.cfg.Status.Enabled {
		return
	}
	_, port, err := net.SplitHostPort(d.cfg.Status.Listen)
	if err != nil {
		d.addError(r, "status", "status.listen",
			fmt.Sprintf("invalid listen address %q: %v", d.cfg.Status.Listen, err))
		return
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		d.addError(r, "status", "status.listen",
			fmt.Sprintf("invalid port %q in %q", port, d.cfg.Status.Listen))
	}
}

// validateServer asks the bridge whether the action server is up.
func (d *Doctor) validateServer(ctx context.Context, r *Result) {
	if d.prober == nil {
		return
	}
	err := d.prober.WaitForServer(ctx, d.cfg.Action.Name, d.probeTimeout, d.cfg.Action.PollInterval)
	if err == nil {
		return
	}
	msg := fmt.Sprintf("action server %s not reachable via %s: %v", d.cfg.Action.Name, d.cfg.Bridge.URL, err)
	if errors.Is(err, context.Canceled) {
		msg = "action server probe interrupted"
	}
	d.addError(r, "bridge", "action.name", msg)
}

// warnTimeouts flags timings that leave the server wait little room.
func (d *Doctor) warnTimeouts(r *Result) {
	a := d.cfg.Action
	if a.PollInterval > 0 && a.ServerTimeout/a.PollInterval < 3 {
		d.addWarning(r, "timing", "action.poll_interval",
			fmt.Sprintf("poll_interval %v allows fewer than 3 probes within server_timeout %v", a.PollInterval, a.ServerTimeout))
	}
	if d.cfg.Bridge.DialTimeout > a.ServerTimeout {
		d.addWarning(r, "timing", "bridge.dial_timeout",
			fmt.Sprintf("dial_timeout %v exceeds server_timeout %v; a slow dial uses up the whole wait", d.cfg.Bridge.DialTimeout, a.ServerTimeout))
	}
}

// warnBehaviorTree flags tree paths the robot is unlikely to resolve.
func (d *Doctor) warnBehaviorTree(r *Result) {
	bt := d.cfg.Action.BehaviorTree
	if bt == "" {
		return
	}
	if !strings.HasPrefix(bt, "/") {
		d.addWarning(r, "action", "action.behavior_tree",
			fmt.Sprintf("behavior_tree %q is resolved on the robot; use an absolute path", bt))
	}
	if !strings.HasSuffix(bt, ".xml") {
		d.addWarning(r, "action", "action.behavior_tree",
			fmt.Sprintf("behavior_tree %q does not look like an XML tree file", bt))
	}
}

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// warnMissingEnvVars warns about ${VAR} references where VAR is not set.
func (d *Doctor) warnMissingEnvVars(r *Result) {
	if d.cfg.SourcePath == "" {
		return
	}
	data, err := os.ReadFile(d.cfg.SourcePath)
	if err != nil {
		return
	}
	seen := make(map[string]bool)
	for _, m := range envVarRe.FindAllStringSubmatch(string(data), -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := os.LookupEnv(name); !ok {
			d.addWarning(r, "env_vars", "",
				fmt.Sprintf("environment variable ${%s} not set", name))
		}
	}
}

// warnChecksums notes configs that are not pinned by a checksum manifest.
func (d *Doctor) warnChecksums(r *Result) {
	if d.cfg.SourcePath == "" {
		return
	}
	_, err := config.LoadChecksums(filepath.Dir(d.cfg.SourcePath))
	if errors.Is(err, os.ErrNotExist) {
		d.addWarning(r, "integrity", "",
			fmt.Sprintf("no %s next to %s; run 'navgoal config hash' to pin it", config.ChecksumFile, d.cfg.SourcePath))
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
